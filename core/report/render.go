package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatHTML = "html"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Renderer turns an assembled Document into bytes of one concrete format.
// The content type and extension always describe the bytes actually produced;
// there is no silent substitution of one format for another.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Ext() string
}

// Registry maps a requested format to its renderer.
type Registry map[string]Renderer

// DefaultRegistry wires every built-in renderer. PDF rendering is built in
// (no optional engine probing), so a pdf request can always be honored.
func DefaultRegistry() Registry {
	return Registry{
		FormatCSV:  CSVRenderer{},
		FormatHTML: HTMLRenderer{},
		FormatPDF:  PDFRenderer{},
		FormatXLSX: XLSXRenderer{},
	}
}

// Get resolves a format or returns an error naming the supported ones.
func (r Registry) Get(format string) (Renderer, error) {
	if rdr, ok := r[format]; ok {
		return rdr, nil
	}
	formats := make([]string, 0, len(r))
	for f := range r {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return nil, errors.Errorf("unsupported report format %q (supported: %s)", format, strings.Join(formats, ", "))
}

// CSVRenderer emits each section as a title line, a header row and data rows,
// sections separated by a blank line.
type CSVRenderer struct{}

var _ Renderer = CSVRenderer{}

func (CSVRenderer) ContentType() string { return "text/csv" }
func (CSVRenderer) Ext() string         { return "csv" }

func (CSVRenderer) Render(doc Document) ([]byte, error) {
	var buff bytes.Buffer
	w := csv.NewWriter(&buff)

	multi := len(doc.Sections) > 1
	for i, sec := range doc.Sections {
		if multi {
			if i > 0 {
				if err := w.Write([]string{}); err != nil {
					return nil, err
				}
			}
			if err := w.Write([]string{sec.Title}); err != nil {
				return nil, err
			}
		}
		if err := w.Write(sec.Headers); err != nil {
			return nil, err
		}
		for _, row := range sec.Rows {
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range .Sections}}<h2>{{.Title}}</h2>
<table border="1" cellspacing="0" cellpadding="4">
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}</body>
</html>
`))

// HTMLRenderer emits a standalone HTML page with one table per section.
type HTMLRenderer struct{}

var _ Renderer = HTMLRenderer{}

func (HTMLRenderer) ContentType() string { return "text/html" }
func (HTMLRenderer) Ext() string         { return "html" }

func (HTMLRenderer) Render(doc Document) ([]byte, error) {
	var buff bytes.Buffer
	if err := htmlTmpl.Execute(&buff, doc); err != nil {
		return nil, errors.Wrap(err, "rendering report HTML")
	}
	return buff.Bytes(), nil
}

// PDFRenderer emits an A4 landscape PDF with one table per section.
type PDFRenderer struct{}

var _ Renderer = PDFRenderer{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Ext() string         { return "pdf" }

func (PDFRenderer) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(doc.Title, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "L", false, 0, "")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	for _, sec := range doc.Sections {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, sec.Title, "", 1, "L", false, 0, "")

		cols := len(sec.Headers)
		if cols == 0 {
			continue
		}
		colW := usable / float64(cols)

		pdf.SetFont("Helvetica", "B", 9)
		for _, h := range sec.Headers {
			pdf.CellFormat(colW, 7, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, row := range sec.Rows {
			for i := 0; i < cols; i++ {
				var cell string
				if i < len(row) {
					cell = row[i]
				}
				pdf.CellFormat(colW, 6, cell, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buff bytes.Buffer
	if err := pdf.Output(&buff); err != nil {
		return nil, errors.Wrap(err, "rendering report PDF")
	}
	return buff.Bytes(), nil
}

// XLSXRenderer emits a workbook with one sheet per section.
type XLSXRenderer struct{}

var _ Renderer = XLSXRenderer{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXRenderer) Ext() string { return "xlsx" }

func (XLSXRenderer) Render(doc Document) ([]byte, error) {
	f := excelize.NewFile()

	for i, sec := range doc.Sections {
		sheet := sheetName(sec.Title, i)
		if i == 0 {
			f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			f.NewSheet(sheet)
		}

		if err := f.SetSheetRow(sheet, "A1", &sec.Headers); err != nil {
			return nil, errors.Wrap(err, "writing sheet header")
		}
		for r, row := range sec.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, errors.Wrap(err, "writing sheet row")
			}
		}
	}

	buff, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "rendering report XLSX")
	}
	return buff.Bytes(), nil
}

// sheetName keeps titles within Excel's 31-char sheet name limit.
func sheetName(title string, idx int) string {
	if title == "" {
		return fmt.Sprintf("Sheet%d", idx+1)
	}
	if len(title) > 31 {
		return title[:31]
	}
	return title
}
