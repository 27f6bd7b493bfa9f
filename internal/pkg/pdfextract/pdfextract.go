// Package pdfextract turns a PDF file into typed content: a markdown-like
// prose stream, tables, and figure images with page provenance.
package pdfextract

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction wraps every failure in this package. An unreadable or
// unsupported PDF aborts the whole extraction; there is no partial result.
var ErrExtraction = errors.New("pdf extraction failed")

// BBox is a best-effort bounding box for a figure.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Table is one detected table rendered as markdown.
type Table struct {
	Markdown string
	Page     int
}

// Figure describes an extracted image written to the static area. Optional
// fields are populated here during classification and never probed later.
type Figure struct {
	URL     string
	Caption *string
	Page    *int
	BBox    *BBox
}

// Result is the full structural decomposition of one document.
type Result struct {
	Prose     string
	Tables    []Table
	Figures   []Figure
	PageCount int
}

// Extract parses the PDF at path, reconstructs its prose stream and tables
// from positioned text, and writes embedded images under imageDir named by
// docID (stable across re-runs). urlPrefix is prepended to figure filenames
// to form the served URL.
func Extract(path, docID, imageDir, urlPrefix string) (result *Result, err error) {
	// The underlying parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: parser panic: %v", ErrExtraction, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrExtraction, err)
	}
	defer f.Close()

	pageCount := reader.NumPage()
	var proseParts []string
	var tables []Table
	captions := make(map[int]string)

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		lines := buildLines(page.Content().Text)
		if len(lines) == 0 {
			continue
		}

		pageTables, proseLines := splitTables(lines)
		for _, md := range pageTables {
			tables = append(tables, Table{Markdown: md, Page: pageNum})
		}

		if prose := renderProse(proseLines); prose != "" {
			proseParts = append(proseParts, prose)
		}

		for _, ln := range proseLines {
			if caption, ok := captionText(ln.text()); ok {
				if _, exists := captions[pageNum]; !exists {
					captions[pageNum] = caption
				}
			}
		}
	}

	figures, err := extractFigures(path, docID, imageDir, urlPrefix, captions)
	if err != nil {
		return nil, err
	}

	return &Result{
		Prose:     strings.TrimSpace(strings.Join(proseParts, "\n\n")),
		Tables:    tables,
		Figures:   figures,
		PageCount: pageCount,
	}, nil
}

const (
	lineYTolerance  = 2.0
	columnTolerance = 4.0
	headingDelta    = 1.5
	maxHeadingLen   = 120
)

type line struct {
	y        float64
	fontSize float64
	cells    []string
	xStarts  []float64
}

func (l line) text() string {
	return strings.Join(l.cells, " ")
}

// buildLines groups positioned text into reading-order lines, and line text
// into cells wherever a horizontal gap is too wide to be word spacing. A line
// with multiple cells is a table-row candidate.
func buildLines(texts []pdf.Text) []line {
	if len(texts) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y // PDF Y grows upward
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []line
	var group []pdf.Text
	flush := func() {
		if len(group) == 0 {
			return
		}
		if ln := newLine(group); len(ln.cells) > 0 {
			lines = append(lines, ln)
		}
		group = nil
	}
	for _, t := range sorted {
		if len(group) > 0 && group[0].Y-t.Y > lineYTolerance {
			flush()
		}
		group = append(group, t)
	}
	flush()
	return lines
}

func newLine(group []pdf.Text) line {
	sort.SliceStable(group, func(i, j int) bool { return group[i].X < group[j].X })

	ln := line{y: group[0].Y}
	var cell strings.Builder
	var cellStart float64
	prevEnd := group[0].X

	for _, t := range group {
		if t.FontSize > ln.fontSize {
			ln.fontSize = t.FontSize
		}
		gap := t.X - prevEnd
		switch {
		case cell.Len() == 0:
			cellStart = t.X
		case gap > cellGap(t.FontSize):
			ln.cells = append(ln.cells, strings.TrimSpace(cell.String()))
			ln.xStarts = append(ln.xStarts, cellStart)
			cell.Reset()
			cellStart = t.X
		case gap > wordGap(t.FontSize):
			cell.WriteByte(' ')
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if text := strings.TrimSpace(cell.String()); text != "" {
		ln.cells = append(ln.cells, text)
		ln.xStarts = append(ln.xStarts, cellStart)
	}

	// Drop empty cells left by stray whitespace glyphs.
	cells := ln.cells[:0]
	xStarts := ln.xStarts[:0]
	for i, c := range ln.cells {
		if c != "" {
			cells = append(cells, c)
			xStarts = append(xStarts, ln.xStarts[i])
		}
	}
	ln.cells = cells
	ln.xStarts = xStarts
	return ln
}

func cellGap(fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 10
	}
	return fontSize * 2.5
}

func wordGap(fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 10
	}
	return fontSize * 0.25
}

// splitTables pulls table blocks out of the page lines so table rows do not
// leak into the prose stream.
func splitTables(lines []line) ([]string, []line) {
	var tables []string
	var prose []line
	i := 0
	for i < len(lines) {
		run := tableRun(lines, i)
		if run >= 2 {
			tables = append(tables, renderTable(lines[i:i+run]))
			i += run
			continue
		}
		prose = append(prose, lines[i])
		i++
	}
	return tables, prose
}

// tableRun counts consecutive lines from start that read as rows of one
// table: at least two cells each, matching cell counts, first columns
// aligned within tolerance.
func tableRun(lines []line, start int) int {
	first := lines[start]
	if len(first.cells) < 2 {
		return 0
	}
	run := 1
	for i := start + 1; i < len(lines); i++ {
		cur := lines[i]
		if len(cur.cells) != len(first.cells) {
			break
		}
		if math.Abs(cur.xStarts[0]-first.xStarts[0]) > columnTolerance {
			break
		}
		run++
	}
	return run
}

func renderTable(rows []line) string {
	var b strings.Builder
	for i, row := range rows {
		b.WriteString("| ")
		b.WriteString(strings.Join(row.cells, " | "))
		b.WriteString(" |\n")
		if i == 0 {
			b.WriteString("|")
			b.WriteString(strings.Repeat(" --- |", len(row.cells)))
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderProse joins page lines into paragraphs, promoting lines set in a
// font measurably larger than the page body size to markdown headings.
func renderProse(lines []line) string {
	if len(lines) == 0 {
		return ""
	}
	body := bodyFontSize(lines)

	var blocks []string
	var para []string
	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, strings.Join(para, " "))
			para = nil
		}
	}

	prevY := lines[0].y
	for i, ln := range lines {
		text := ln.text()
		if text == "" {
			continue
		}
		if ln.fontSize >= body+headingDelta && len(text) <= maxHeadingLen {
			flushPara()
			blocks = append(blocks, "## "+text)
		} else {
			if i > 0 && prevY-ln.y > paragraphGap(ln.fontSize) {
				flushPara()
			}
			para = append(para, text)
		}
		prevY = ln.y
	}
	flushPara()
	return strings.Join(blocks, "\n\n")
}

// bodyFontSize is the most common font size on the page, the baseline for
// heading detection.
func bodyFontSize(lines []line) float64 {
	counts := make(map[float64]int)
	for _, ln := range lines {
		counts[math.Round(ln.fontSize*2)/2]++
	}
	best, bestCount := 10.0, 0
	for size, n := range counts {
		if n > bestCount || (n == bestCount && size < best) {
			best, bestCount = size, n
		}
	}
	return best
}

func paragraphGap(fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 10
	}
	return fontSize * 1.8
}

// captionText reports whether a line reads like a figure caption.
func captionText(text string) (string, bool) {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "figure ") || strings.HasPrefix(lower, "fig. ") {
		return text, true
	}
	return "", false
}
