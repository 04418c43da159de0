package split

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// SplitIntoPages splits a multi-page PDF into single-page PDFs under outDir,
// named <base>_<n>.pdf, and returns their paths in page order.
func SplitIntoPages(inPath, outDir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pageCount, err := api.PageCountFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("page count %s: %w", inPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create split dir: %w", err)
	}
	if err := api.SplitFile(inPath, outDir, 1, nil); err != nil {
		return nil, fmt.Errorf("split %s: %w", inPath, err)
	}

	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	pages := make([]string, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		page := filepath.Join(outDir, fmt.Sprintf("%s_%d.pdf", base, n))
		if _, err := os.Stat(page); err != nil {
			return nil, fmt.Errorf("expected split page missing: %w", err)
		}
		pages = append(pages, page)
	}

	logger.Info("split.ok", "source", inPath, "pages", len(pages))
	return pages, nil
}

// CollectPages walks dir and returns all PDF files, sorted by name. Hidden
// files and directories are skipped.
func CollectPages(dir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var pages []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if isHidden(d.Name()) && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(pages)
	logger.Info("split.collect", "dir", dir, "pages", len(pages))
	return pages, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
