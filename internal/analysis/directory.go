package analysis

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

// imageExtensions are the file types picked up by directory analysis.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// FileResult is the outcome for one file of a directory analysis.
type FileResult struct {
	Path   string            `json:"path"`
	Report *diagnosis.Report `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Summary counts directory analysis outcomes by status.
type Summary struct {
	Total    int `json:"total"`
	Healthy  int `json:"healthy"`
	Diseased int `json:"diseased"`
	Failed   int `json:"failed"`
}

// DirectoryReport is the JSON output of DirectoryAnalysis.
type DirectoryReport struct {
	Directory string       `json:"directory"`
	Results   []FileResult `json:"results"`
	Summary   Summary      `json:"summary"`
}

// FindImages lists image files under dir in lexical order.
func FindImages(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("operation", "scan_directory").
			Build()
	}
	slices.Sort(files)
	return files, nil
}

// DirectoryAnalysis analyzes every image in dir with up to workers
// concurrent classifications. Per-file failures are reported in the output
// and do not stop the run; only a cancelled context or an unreadable
// directory return an error.
func DirectoryAnalysis(ctx context.Context, a *Analyzer, dir string, recursive bool, workers int, w io.Writer, asJSON bool) (Summary, error) {
	files, err := FindImages(dir, recursive)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		GetLogger().Info("no images found", logger.String("directory", dir))
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeOne(gctx, a, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := summarize(results)
	GetLogger().Info("directory analysis complete",
		logger.String("directory", dir),
		logger.Int("images", summary.Total),
		logger.Int("diseased", summary.Diseased),
		logger.Int("failed", summary.Failed),
		logger.Duration("elapsed", time.Since(start)))

	if asJSON {
		return summary, WriteJSON(w, DirectoryReport{Directory: dir, Results: results, Summary: summary})
	}
	return summary, writeDirectoryText(w, results, summary)
}

func analyzeOne(ctx context.Context, a *Analyzer, path string) FileResult {
	fr := FileResult{Path: path}
	res, err := analyzeFile(ctx, a, path)
	if err != nil {
		fr.Error = err.Error()
		if errors.Is(err, ErrClassification) {
			fr.Report = &res.Report
		}
		return fr
	}
	fr.Report = &res.Report
	return fr
}

func summarize(results []FileResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Report == nil || r.Report.Status == diagnosis.StatusFailed:
			s.Failed++
		case r.Report.Status == diagnosis.StatusHealthy:
			s.Healthy++
		default:
			s.Diseased++
		}
	}
	return s
}

func writeDirectoryText(w io.Writer, results []FileResult, s Summary) error {
	for _, r := range results {
		if r.Report == nil || r.Report.Status == diagnosis.StatusFailed {
			if _, err := fmt.Fprintf(w, "Error: %s: %s\n", filepath.Base(r.Path), r.Error); err != nil {
				return err
			}
			continue
		}
		if err := WriteReportText(w, filepath.Base(r.Path), *r.Report); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d images: %d healthy, %d diseased, %d failed\n",
		s.Total, s.Healthy, s.Diseased, s.Failed)
	return err
}
