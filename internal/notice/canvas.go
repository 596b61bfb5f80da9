package notice

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing surface a notice is laid out on. Coordinates follow
// PDF user space: origin at the bottom-left corner, y growing upwards.
type Canvas interface {
	AddPage(width, height float64)
	DrawText(text string, x, y float64, style TextStyle)
	// WrapText splits text into lines no wider than maxWidth at style.
	WrapText(text string, style TextStyle, maxWidth float64) []string
	PageCount() int
	Bytes() ([]byte, error)
}

// CanvasFactory creates the canvas for one document. created is stamped into
// the document metadata so identical input renders identical bytes.
type CanvasFactory func(width, height float64, created time.Time) Canvas

const fontFamily = "Helvetica"

type pdfCanvas struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	height float64
}

// NewPDFCanvas returns a Canvas backed by fpdf using the Helvetica core
// fonts in their Windows-1252 encoding.
func NewPDFCanvas(width, height float64, created time.Time) Canvas {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCellMargin(0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetTitle("Mise en demeure de payer", true)
	pdf.SetCreator("Yesod", true)

	return &pdfCanvas{
		pdf: pdf,
		// translator keeps a scratch buffer; one per document
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		height: height,
	}
}

func (c *pdfCanvas) AddPage(width, height float64) {
	c.height = height
	c.pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
}

func (c *pdfCanvas) setStyle(style TextStyle) {
	weight := ""
	if style.Bold {
		weight = "B"
	}
	c.pdf.SetFont(fontFamily, weight, style.Size)
	c.pdf.SetTextColor(channel(style.Color.R), channel(style.Color.G), channel(style.Color.B))
}

func (c *pdfCanvas) DrawText(text string, x, y float64, style TextStyle) {
	c.setStyle(style)
	c.pdf.Text(x, c.height-y, c.tr(text))
}

func (c *pdfCanvas) WrapText(text string, style TextStyle, maxWidth float64) []string {
	c.setStyle(style)
	return c.pdf.SplitText(text, maxWidth)
}

func (c *pdfCanvas) PageCount() int {
	return c.pdf.PageCount()
}

func (c *pdfCanvas) Bytes() ([]byte, error) {
	if err := c.pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return buf.Bytes(), nil
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
