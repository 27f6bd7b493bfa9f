package pdfextract

import (
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word lays out a run of glyph-per-char texts starting at (x, y).
func word(s string, x, y, fontSize float64) []pdf.Text {
	texts := make([]pdf.Text, 0, len(s))
	w := fontSize * 0.5
	for i, r := range s {
		texts = append(texts, pdf.Text{
			S:        string(r),
			X:        x + float64(i)*w,
			Y:        y,
			W:        w,
			FontSize: fontSize,
		})
	}
	return texts
}

func TestBuildLines_GroupsByBaseline(t *testing.T) {
	var texts []pdf.Text
	texts = append(texts, word("hello", 10, 700, 10)...)
	texts = append(texts, word("world", 45, 700.5, 10)...) // same line, tiny Y jitter
	texts = append(texts, word("below", 10, 680, 10)...)

	lines := buildLines(texts)
	require.Len(t, lines, 2)
	assert.Equal(t, "hello world", lines[0].text())
	assert.Equal(t, "below", lines[1].text())
}

func TestBuildLines_WideGapSplitsCells(t *testing.T) {
	var texts []pdf.Text
	texts = append(texts, word("name", 10, 700, 10)...)
	texts = append(texts, word("value", 200, 700, 10)...) // far beyond cell gap

	lines := buildLines(texts)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].cells, 2)
	assert.Equal(t, "name", lines[0].cells[0])
	assert.Equal(t, "value", lines[0].cells[1])
}

func TestTableRun_DetectsAlignedRows(t *testing.T) {
	rows := []line{
		{y: 700, cells: []string{"Name", "Score"}, xStarts: []float64{10, 200}},
		{y: 685, cells: []string{"Alice", "91"}, xStarts: []float64{11, 200}},
		{y: 670, cells: []string{"Bob", "87"}, xStarts: []float64{10, 201}},
		{y: 655, cells: []string{"plain prose line"}, xStarts: []float64{10}},
	}

	assert.Equal(t, 3, tableRun(rows, 0))
	assert.Equal(t, 0, tableRun(rows, 3))
}

func TestTableRun_MisalignedFirstColumnBreaks(t *testing.T) {
	rows := []line{
		{y: 700, cells: []string{"a", "b"}, xStarts: []float64{10, 200}},
		{y: 685, cells: []string{"c", "d"}, xStarts: []float64{60, 200}},
	}
	assert.Equal(t, 1, tableRun(rows, 0))
}

func TestSplitTables_RendersMarkdown(t *testing.T) {
	rows := []line{
		{y: 700, cells: []string{"Name", "Score"}, xStarts: []float64{10, 200}},
		{y: 685, cells: []string{"Alice", "91"}, xStarts: []float64{10, 200}},
	}

	tables, prose := splitTables(rows)
	require.Len(t, tables, 1)
	assert.Empty(t, prose)

	md := tables[0]
	assert.Contains(t, md, "| Name | Score |")
	assert.Contains(t, md, "| --- | --- |")
	assert.Contains(t, md, "| Alice | 91 |")
}

func TestRenderProse_HeadingsAndParagraphs(t *testing.T) {
	lines := []line{
		{y: 720, fontSize: 16, cells: []string{"Introduction"}, xStarts: []float64{10}},
		{y: 700, fontSize: 10, cells: []string{"Body sentence one."}, xStarts: []float64{10}},
		{y: 688, fontSize: 10, cells: []string{"Body sentence two."}, xStarts: []float64{10}},
		{y: 640, fontSize: 10, cells: []string{"New paragraph starts here."}, xStarts: []float64{10}},
	}

	prose := renderProse(lines)
	parts := strings.Split(prose, "\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, "## Introduction", parts[0])
	assert.Equal(t, "Body sentence one. Body sentence two.", parts[1])
	assert.Equal(t, "New paragraph starts here.", parts[2])
}

func TestBodyFontSize_PicksModalSize(t *testing.T) {
	lines := []line{
		{fontSize: 10}, {fontSize: 10}, {fontSize: 10}, {fontSize: 16},
	}
	assert.Equal(t, 10.0, bodyFontSize(lines))
}

func TestCaptionText(t *testing.T) {
	caption, ok := captionText("Figure 2: system architecture")
	assert.True(t, ok)
	assert.Equal(t, "Figure 2: system architecture", caption)

	_, ok = captionText("This paragraph mentions a figure later.")
	assert.False(t, ok)

	caption, ok = captionText("Fig. 3 overview")
	assert.True(t, ok)
	assert.Equal(t, "Fig. 3 overview", caption)
}

func TestSortFigureNames_PageOrderNotLexicographic(t *testing.T) {
	names := []string{
		"doc_10_Im0.png",
		"doc_2_Im1.png",
		"doc_2_Im0.png",
		"doc_1_Im0.png",
	}
	sortFigureNames(names)
	assert.Equal(t, []string{
		"doc_1_Im0.png",
		"doc_2_Im0.png",
		"doc_2_Im1.png",
		"doc_10_Im0.png",
	}, names)
}

func TestPageFromImageName(t *testing.T) {
	assert.Equal(t, 4, pageFromImageName("report_4_Im0.png"))
	assert.Equal(t, 12, pageFromImageName("doc_12_Image7.jpg"))
	assert.Equal(t, 0, pageFromImageName("noise.txt"))
}
