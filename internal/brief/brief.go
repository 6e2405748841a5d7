// Package brief renders a markdown mission brief into the styled, paginated
// PDF that gets mailed to the operator.
package brief

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

var ErrMissingInput = errors.New("brief input not found")

// Palette and layout constants for the operational-directive template.
var (
	accentColor     = rgb{0, 152, 230}   // #0098e6
	inkColor        = rgb{0, 60, 125}    // #003c7d
	backgroundColor = rgb{240, 244, 247} // #f0f4f7
	bodyColor       = rgb{0, 0, 0}
	mutedColor      = rgb{128, 128, 128}
)

const (
	pageMarginSide   = 20.0 // mm
	pageMarginTop    = 30.0
	pageMarginBottom = 30.0
	headerBandHeight = 25.0
	bodyLineHeight   = 5.0
)

type rgb struct{ r, g, b int }

type Config struct {
	Title     string // header band title
	Subtitle  string // smaller line under the title
	FooterTag string // trailing footer text after the page number
	Author    string // PDF metadata author/title
}

type Exporter struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Exporter {
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = "OPERATIONAL DIRECTIVE"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, logger: logger}
}

// OutputName returns the dated file name the exporter and notifier agree on.
func OutputName(dir string, when time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("Mission Brief %s.pdf", when.Format("2006-01-02")))
}

// Export reads the markdown artifact at inputPath and writes the rendered
// PDF to outputPath.
func (e *Exporter) Export(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingInput, inputPath)
		}
		return fmt.Errorf("read brief input: %w", err)
	}

	pdf := e.newDocument()
	pdf.AddPage()
	e.renderBody(pdf, strings.Split(string(data), "\n"))
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render brief: %w", err)
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write brief pdf: %w", err)
	}
	e.logger.Info("brief exported", "input", inputPath, "output", outputPath)
	return nil
}

func (e *Exporter) newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMarginSide, pageMarginTop, pageMarginSide)
	pdf.SetAutoPageBreak(true, pageMarginBottom)
	pdf.SetTitle(e.cfg.Author, true)
	pdf.SetAuthor(e.cfg.Author, true)
	pdf.SetSubject("Mission Brief", true)

	pdf.SetHeaderFunc(func() {
		pageWidth, pageHeight := pdf.GetPageSize()

		setFill(pdf, backgroundColor)
		pdf.Rect(0, 0, pageWidth, pageHeight, "F")

		setFill(pdf, accentColor)
		pdf.Rect(0, 0, pageWidth, headerBandHeight, "F")

		setText(pdf, rgb{255, 255, 255})
		pdf.SetFont("Helvetica", "B", 24.5)
		pdf.Text(pageMarginSide, headerBandHeight-12.5, e.cfg.Title)
		if e.cfg.Subtitle != "" {
			pdf.SetFont("Helvetica", "B", 10.5)
			pdf.Text(pageMarginSide, headerBandHeight-8, e.cfg.Subtitle)
		}
	})
	pdf.SetFooterFunc(func() {
		pageWidth, _ := pdf.GetPageSize()
		footer := fmt.Sprintf("DOCUMENT PAGE %d", pdf.PageNo())
		if e.cfg.FooterTag != "" {
			footer += " // " + e.cfg.FooterTag
		}
		pdf.SetFont("Helvetica", "I", 8)
		setText(pdf, inkColor)
		pdf.SetY(-15)
		pdf.CellFormat(pageWidth-2*pageMarginSide, 4, footer, "", 0, "C", false, 0, "")
	})
	return pdf
}

func (e *Exporter) renderBody(pdf *fpdf.Fpdf, lines []string) {
	contentWidth, _ := contentSize(pdf)
	lastWasBody := false

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if isTableStart(lines, i) {
			header, rows, next := collectTable(lines, i)
			e.renderTable(pdf, header, rows, contentWidth)
			pdf.Ln(5)
			i = next - 1
			lastWasBody = false
			continue
		}

		switch {
		case strings.HasPrefix(line, "##### "):
			e.heading(pdf, strings.TrimPrefix(line, "##### "), 10, mutedColor, 1.5)
			lastWasBody = false
		case strings.HasPrefix(line, "#### "):
			e.heading(pdf, strings.TrimPrefix(line, "#### "), 12, bodyColor, 2)
			lastWasBody = false
		case strings.HasPrefix(line, "### "):
			e.heading(pdf, strings.TrimPrefix(line, "### "), 14, accentColor, 2.5)
			lastWasBody = false
		case strings.HasPrefix(line, "## "):
			if lastWasBody {
				pdf.Ln(3)
			}
			e.heading(pdf, strings.TrimPrefix(line, "## "), 18, inkColor, 1)
			e.rule(pdf, contentWidth, 1.2)
			pdf.Ln(4)
			lastWasBody = false
		case strings.HasPrefix(line, "# "):
			e.heading(pdf, strings.TrimPrefix(line, "# "), 24, inkColor, 4)
			lastWasBody = false
		case strings.HasPrefix(line, "* "):
			e.bullet(pdf, strings.TrimPrefix(line, "* "))
			lastWasBody = false
		case strings.HasPrefix(line, "---"):
			pdf.Ln(5)
			e.rule(pdf, contentWidth, 0.2)
			pdf.Ln(5)
			lastWasBody = false
		default:
			e.paragraph(pdf, line)
			lastWasBody = true
		}
	}
}

func (e *Exporter) heading(pdf *fpdf.Fpdf, text string, size float64, color rgb, spaceAfter float64) {
	pdf.SetFont("Helvetica", "B", size)
	setText(pdf, color)
	pdf.MultiCell(0, size*0.45, plainText(text), "", "L", false)
	pdf.Ln(spaceAfter)
}

func (e *Exporter) paragraph(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, bodyColor)
	writeInline(pdf, text, 10)
	pdf.Ln(bodyLineHeight)
	pdf.Ln(3)
}

func (e *Exporter) bullet(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, bodyColor)
	pdf.SetX(pdf.GetX() + 5)
	pdf.Write(bodyLineHeight, "•   ")
	writeInline(pdf, text, 10)
	pdf.Ln(bodyLineHeight)
	pdf.Ln(1)
}

func (e *Exporter) rule(pdf *fpdf.Fpdf, width, thickness float64) {
	setDraw(pdf, accentColor)
	pdf.SetLineWidth(thickness)
	y := pdf.GetY()
	pdf.Line(pageMarginSide, y, pageMarginSide+width, y)
	pdf.SetLineWidth(0.2)
}

func (e *Exporter) renderTable(pdf *fpdf.Fpdf, header []string, rows [][]string, contentWidth float64) {
	if len(header) == 0 {
		return
	}
	colWidth := contentWidth / float64(len(header))

	pdf.SetFont("Helvetica", "B", 10)
	setFill(pdf, accentColor)
	setText(pdf, rgb{255, 255, 255})
	setDraw(pdf, mutedColor)
	e.tableRow(pdf, header, colWidth, true)

	pdf.SetFont("Helvetica", "", 10)
	setFill(pdf, backgroundColor)
	setText(pdf, bodyColor)
	for _, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		e.tableRow(pdf, row[:len(header)], colWidth, true)
	}
}

// tableRow draws one row of equal-width cells, wrapping cell text and sizing
// the row to the tallest cell.
func (e *Exporter) tableRow(pdf *fpdf.Fpdf, cells []string, colWidth float64, fill bool) {
	const cellPadding = 1.5
	wrapped := make([][]string, len(cells))
	maxLines := 1
	for idx, cell := range cells {
		wrapped[idx] = pdf.SplitText(plainText(cell), colWidth-2*cellPadding)
		if len(wrapped[idx]) > maxLines {
			maxLines = len(wrapped[idx])
		}
	}
	rowHeight := float64(maxLines)*bodyLineHeight + 2*cellPadding

	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY()+rowHeight > pageHeight-pageMarginBottom {
		pdf.AddPage()
	}

	x := pageMarginSide
	y := pdf.GetY()
	for idx := range cells {
		style := "D"
		if fill {
			style = "FD"
		}
		pdf.Rect(x, y, colWidth, rowHeight, style)
		for lineIdx, textLine := range wrapped[idx] {
			lineY := y + cellPadding + float64(lineIdx)*bodyLineHeight + bodyLineHeight*0.75
			lineWidth := pdf.GetStringWidth(textLine)
			pdf.Text(x+(colWidth-lineWidth)/2, lineY, textLine)
		}
		x += colWidth
	}
	pdf.SetY(y + rowHeight)
}

// writeInline flows text with **bold** and *italic* spans rendered in the
// matching font style.
func writeInline(pdf *fpdf.Fpdf, text string, size float64) {
	for _, segment := range parseInline(text) {
		pdf.SetFont("Helvetica", segment.style, size)
		pdf.Write(bodyLineHeight, segment.text)
	}
	pdf.SetFont("Helvetica", "", size)
}

type inlineSegment struct {
	text  string
	style string
}

// parseInline splits markdown emphasis into styled segments. Bold is matched
// before italic so ** is never read as two italic markers.
func parseInline(text string) []inlineSegment {
	segments := make([]inlineSegment, 0, 4)
	rest := text
	for rest != "" {
		boldStart := strings.Index(rest, "**")
		italicStart := indexSingleStar(rest)

		if boldStart >= 0 && (italicStart < 0 || boldStart <= italicStart) {
			if end := strings.Index(rest[boldStart+2:], "**"); end >= 0 {
				if boldStart > 0 {
					segments = append(segments, inlineSegment{text: rest[:boldStart]})
				}
				segments = append(segments, inlineSegment{text: rest[boldStart+2 : boldStart+2+end], style: "B"})
				rest = rest[boldStart+2+end+2:]
				continue
			}
		}
		if italicStart >= 0 {
			tail := rest[italicStart+1:]
			if end := indexSingleStar(tail); end >= 0 {
				if italicStart > 0 {
					segments = append(segments, inlineSegment{text: rest[:italicStart]})
				}
				segments = append(segments, inlineSegment{text: tail[:end], style: "I"})
				rest = tail[end+1:]
				continue
			}
		}
		segments = append(segments, inlineSegment{text: rest})
		break
	}
	return segments
}

func indexSingleStar(text string) int {
	for idx := 0; idx < len(text); idx++ {
		if text[idx] != '*' {
			continue
		}
		if idx+1 < len(text) && text[idx+1] == '*' {
			idx++
			continue
		}
		return idx
	}
	return -1
}

// plainText strips emphasis markers where styled rendering is not available.
func plainText(text string) string {
	var builder strings.Builder
	for _, segment := range parseInline(text) {
		builder.WriteString(segment.text)
	}
	return builder.String()
}

func isTableStart(lines []string, i int) bool {
	line := strings.TrimSpace(lines[i])
	if !strings.HasPrefix(line, "|") || isTableSeparator(line) {
		return false
	}
	if i+1 >= len(lines) {
		return false
	}
	return isTableSeparator(strings.TrimSpace(lines[i+1]))
}

func isTableSeparator(line string) bool {
	return strings.HasPrefix(line, "|--") || strings.HasPrefix(line, "| :-") || strings.HasPrefix(line, "|:-")
}

// collectTable gathers the contiguous table block starting at i and returns
// the header cells, the body rows, and the index of the first line after the
// table. A non-pipe continuation line is folded into the previous row's last
// cell, matching how briefs with wrapped cells arrive.
func collectTable(lines []string, i int) ([]string, [][]string, int) {
	end := i
	for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
		end++
	}
	block := lines[i:end]

	header := splitTableRow(block[0])
	rows := make([][]string, 0, len(block))
	var current []string
	for _, raw := range block[2:] {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "|") {
			if current != nil {
				rows = append(rows, current)
			}
			current = splitTableRow(line)
			continue
		}
		if len(current) > 0 {
			current[len(current)-1] += " " + line
		}
	}
	if current != nil {
		rows = append(rows, current)
	}
	return header, rows, end
}

func splitTableRow(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 3 {
		return nil
	}
	cells := make([]string, 0, len(parts)-2)
	for _, part := range parts[1 : len(parts)-1] {
		cells = append(cells, strings.TrimSpace(part))
	}
	return cells
}

func contentSize(pdf *fpdf.Fpdf) (float64, float64) {
	pageWidth, pageHeight := pdf.GetPageSize()
	return pageWidth - 2*pageMarginSide, pageHeight - pageMarginTop - pageMarginBottom
}

func setFill(pdf *fpdf.Fpdf, color rgb) { pdf.SetFillColor(color.r, color.g, color.b) }
func setText(pdf *fpdf.Fpdf, color rgb) { pdf.SetTextColor(color.r, color.g, color.b) }
func setDraw(pdf *fpdf.Fpdf, color rgb) { pdf.SetDrawColor(color.r, color.g, color.b) }
