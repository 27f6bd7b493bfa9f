package pdfextract

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfcpu names extracted files <base>_<page>_<resource>.<ext>; the page
// number in the name is our provenance.
var imageFilePattern = regexp.MustCompile(`_(\d+)_[^_]+\.(?:png|jpe?g|tiff?)$`)

// extractFigures pulls embedded page images into a scratch directory with
// pdfcpu, then moves them into imageDir under document-addressed names, so a
// re-run of the same document regenerates the same filenames.
func extractFigures(path, docID, imageDir, urlPrefix string, captions map[int]string) ([]Figure, error) {
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create image dir: %v", ErrExtraction, err)
	}

	scratch, err := os.MkdirTemp("", "pdfextract-")
	if err != nil {
		return nil, fmt.Errorf("%w: create scratch dir: %v", ErrExtraction, err)
	}
	defer os.RemoveAll(scratch)

	if err := api.ExtractImagesFile(path, scratch, nil, nil); err != nil {
		return nil, fmt.Errorf("%w: extract images: %v", ErrExtraction, err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return nil, fmt.Errorf("%w: read scratch dir: %v", ErrExtraction, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sortFigureNames(names)

	var figures []Figure
	for i, name := range names {
		src := filepath.Join(scratch, name)
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		target := fmt.Sprintf("%s_fig_%d.%s", docID, i, ext)
		if err := moveFile(src, filepath.Join(imageDir, target)); err != nil {
			return nil, fmt.Errorf("%w: store figure %s: %v", ErrExtraction, target, err)
		}

		fig := Figure{
			URL:  strings.TrimRight(urlPrefix, "/") + "/" + target,
			BBox: imageBounds(filepath.Join(imageDir, target)),
		}
		if page := pageFromImageName(name); page > 0 {
			p := page
			fig.Page = &p
			if caption, ok := captions[page]; ok {
				c := caption
				fig.Caption = &c
			}
		}
		figures = append(figures, fig)
	}
	return figures, nil
}

// sortFigureNames orders extracted images by page number, then name, so
// figure indices follow document order (lexicographic sorting would put page
// 10 before page 2).
func sortFigureNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := pageFromImageName(names[i]), pageFromImageName(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
}

func pageFromImageName(name string) int {
	m := imageFilePattern.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	page, _ := strconv.Atoi(m[1])
	return page
}

// imageBounds records the pixel dimensions of the stored image; placement on
// the page is not recoverable from the extracted stream.
func imageBounds(path string) *BBox {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil
	}
	return &BBox{X1: 0, Y1: 0, X2: float64(cfg.Width), Y2: float64(cfg.Height)}
}

// moveFile renames when possible and copies across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
