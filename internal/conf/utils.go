package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/cropdoc/internal/errors"
)

const appDirName = "cropdoc"

// lookupEnv is replaced in tests
var lookupEnv = os.LookupEnv

// GetDefaultConfigPaths lists the directories searched for config.yaml, in
// priority order: the user config dir, then /etc/cropdoc outside Windows.
// When one of them already holds a config.yaml only that one is returned.
func GetDefaultConfigPaths() ([]string, error) {
	userDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "user_config_dir").
			Build()
	}

	dirs := []string{filepath.Join(userDir, appDirName)}
	if runtime.GOOS != "windows" {
		dirs = append(dirs, filepath.Join("/etc", appDirName))
	}

	for _, dir := range dirs {
		if info, err := os.Stat(filepath.Join(dir, "config.yaml")); err == nil && info.Mode().IsRegular() {
			return []string{dir}, nil
		}
	}
	return dirs, nil
}
