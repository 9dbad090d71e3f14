package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tphakala/cropdoc/internal/errors"
)

// MaxImageSize bounds images read from disk.
const MaxImageSize = 32 << 20

// ReadImage reads an image file, rejecting directories, empty files and
// files larger than MaxImageSize.
func ReadImage(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("image not found: %s", path)).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Build()
	}

	switch {
	case fi.IsDir():
		return nil, errors.Newf("%s is a directory, not a file", filepath.Base(path)).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	case fi.Size() == 0:
		return nil, errors.Newf("file %s is empty", filepath.Base(path)).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	case fi.Size() > MaxImageSize:
		return nil, errors.Newf("file %s exceeds %d bytes", filepath.Base(path), MaxImageSize).
			Component("analysis").
			Category(errors.CategoryLimit).
			FileContext(path, fi.Size()).
			Build()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(err, path, fi.Size())
	}
	return data, nil
}

// FileAnalysis analyzes one image file and writes the diagnosis to w, as
// JSON when asJSON is set. With JSON output, failures are also written as
// {"error": ...} before being returned.
func FileAnalysis(ctx context.Context, a *Analyzer, path string, w io.Writer, asJSON bool) error {
	res, err := analyzeFile(ctx, a, path)
	if err != nil {
		if asJSON {
			_ = WriteJSON(w, ErrorOutput{Error: err.Error()})
		}
		return err
	}

	if asJSON {
		return WriteJSON(w, res.Report)
	}
	return WriteReportText(w, filepath.Base(path), res.Report)
}

func analyzeFile(ctx context.Context, a *Analyzer, path string) (Result, error) {
	data, err := ReadImage(path)
	if err != nil {
		return Result{}, err
	}
	return a.Analyze(ctx, Input{
		Image:  data,
		Name:   filepath.Base(path),
		Source: SourceCLI,
	})
}
