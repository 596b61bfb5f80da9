// Package notice renders the "mise en demeure de payer" letter sent to
// debtors as a paginated A4 PDF.
package notice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"yesod/internal/domain"
	"yesod/internal/format"
)

// ErrGeneration wraps every failure to produce a notice.
var ErrGeneration = errors.New("notice generation failed")

// Formatter renders amounts and dates interpolated into the letter.
type Formatter interface {
	Currency(amount float64, currency string) string
	Date(iso string) string
	LongDate(t time.Time) string
}

// Letterhead is the firm identity printed on every notice.
type Letterhead struct {
	Name      string
	Subtitles [2]string
	Signature []string
}

var DefaultLetterhead = Letterhead{
	Name: "YESOD",
	Subtitles: [2]string{
		"Cabinet d'Avocats d'Affaires",
		"Spécialisé en Recouvrement de Créances",
	},
	Signature: []string{"Cabinet YESOD", "Avocat au Barreau"},
}

// LetterheadFor returns the default letterhead under another firm name.
func LetterheadFor(name string) Letterhead {
	lh := DefaultLetterhead
	if name == "" || name == lh.Name {
		return lh
	}
	lh.Name = strings.ToUpper(name)
	lh.Signature = []string{"Cabinet " + lh.Name, "Avocat au Barreau"}
	return lh
}

// Document is a rendered notice.
type Document struct {
	Data  []byte
	Pages int
}

type Generator struct {
	layout     Layout
	letterhead Letterhead
	format     Formatter
	now        func() time.Time
	newCanvas  CanvasFactory
}

type Option func(*Generator)

func WithLayout(l Layout) Option { return func(g *Generator) { g.layout = l } }
func WithLetterhead(lh Letterhead) Option { return func(g *Generator) { g.letterhead = lh } }
func WithFormatter(f Formatter) Option { return func(g *Generator) { g.format = f } }
func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }
func WithCanvas(factory CanvasFactory) Option { return func(g *Generator) { g.newCanvas = factory } }

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		layout:     A4,
		letterhead: DefaultLetterhead,
		format:     format.French{},
		now:        time.Now,
		newCanvas:  NewPDFCanvas,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate lays the notice out in a single pass and serialises it.
// Missing optional fields are skipped, never reported.
func (g *Generator) Generate(req domain.NoticeRequest) (*Document, error) {
	now := g.now()
	l := g.layout

	canvas := g.newCanvas(l.PageWidth, l.PageHeight, now)
	canvas.AddPage(l.PageWidth, l.PageHeight)

	w := &writer{canvas: canvas, layout: l}
	c := Cursor{Page: 1, X: l.Margin, Y: l.Top()}

	c, err := w.header(c, g.letterhead, "Le "+g.format.LongDate(now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	c, err = w.party(c.Down(l.BlockGap).At(l.Margin), "CRÉANCIER :", []field{
		{value: req.CreditorName},
		{value: req.CreditorAddress, multiline: true},
		{value: req.CreditorPhone, prefix: "Tél : "},
		{value: req.CreditorEmail, prefix: "Email : "},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	c, err = w.party(c.Down(l.DebtorGap).At(l.RightColumnX), "DÉBITEUR :", []field{
		{value: req.DebtorName},
		{value: req.DebtorAddress, multiline: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	c = c.Down(l.TitleGap).At((l.PageWidth - l.TitleWidth) / 2)
	if err := w.raw(c, "MISE EN DEMEURE DE PAYER", titleStyle); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	c = c.Down(l.BlockGap).At(l.Margin)
	for _, paragraph := range g.Body(req) {
		c = w.bodyParagraph(c, paragraph)
	}

	data, err := canvas.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return &Document{Data: data, Pages: canvas.PageCount()}, nil
}

// Body returns the letter's paragraphs in order, before wrapping and
// sanitising.
func (g *Generator) Body(req domain.NoticeRequest) []string {
	amount := g.format.Currency(req.Amount.Float(), req.Currency)

	invoice := req.InvoiceNumber
	if invoice == "" {
		invoice = "N/A"
	}

	body := []string{
		"Monsieur, Madame,",
		"",
		"Par la présente, nous vous mettons en demeure de bien vouloir régler la somme de " + amount + " correspondant à :",
		"",
		"- Facture n° " + invoice,
	}
	if req.InvoiceDate != "" {
		body = append(body, "- Date de facturation : "+g.format.Date(req.InvoiceDate))
	}
	if req.DueDate != "" {
		body = append(body, "- Date d'échéance : "+g.format.Date(req.DueDate))
	}
	if req.Description != "" {
		body = append(body, "- Objet : "+req.Description)
	}

	body = append(body,
		"",
		"Cette créance demeure impayée à ce jour malgré nos relances précédentes.",
		"",
		"En conséquence, nous vous demandons de bien vouloir procéder au règlement de cette somme dans un délai de HUIT (8) JOURS à compter de la réception de la présente mise en demeure.",
		"",
		"À défaut de règlement dans ce délai, nous nous réserverons le droit d'engager contre vous toute action en recouvrement que nous jugerons utile, y compris par voie judiciaire, et ce à vos frais, risques et périls.",
		"",
		"Nous vous rappelons qu'aux termes de l'article 1231-6 du Code civil, le débiteur est de plein droit constitué en demeure par la seule exigibilité de l'obligation, lorsque celle-ci résulte d'un écrit.",
		"",
		"Dans l'espoir que vous voudrez bien régulariser cette situation dans les meilleurs délais, nous vous prions d'agréer, Monsieur, Madame, l'expression de nos salutations distinguées.",
		"",
		"",
	)
	return append(body, g.letterhead.Signature...)
}

// field is one optional line of a party block.
type field struct {
	value     string
	prefix    string
	multiline bool
}

type writer struct {
	canvas Canvas
	layout Layout
}

// raw draws a line that is not sanitised. Glyphs the fonts cannot encode
// fail the document.
func (w *writer) raw(c Cursor, text string, style TextStyle) error {
	if r, bad := firstUnencodable(text); bad {
		return fmt.Errorf("cannot encode %q (U+%04X)", r, r)
	}
	w.canvas.DrawText(text, c.X, c.Y, style)
	return nil
}

func (w *writer) header(c Cursor, lh Letterhead, date string) (Cursor, error) {
	l := w.layout
	if err := w.raw(c, lh.Name, orgStyle); err != nil {
		return c, err
	}
	c = c.Down(l.HeadingLine)
	if err := w.raw(c, lh.Subtitles[0], subtitleStyle); err != nil {
		return c, err
	}
	c = c.Down(l.FieldLine)
	if err := w.raw(c, lh.Subtitles[1], subtitleStyle); err != nil {
		return c, err
	}
	c = c.Down(l.DateGap)
	if err := w.raw(c.At(l.PageWidth-l.DateInset), date, textStyle); err != nil {
		return c, err
	}
	return c, nil
}

// party draws a block label followed by every present field, one line
// each. Absent fields take no space.
func (w *writer) party(c Cursor, label string, fields []field) (Cursor, error) {
	if err := w.raw(c, label, labelStyle); err != nil {
		return c, err
	}
	c = c.Down(w.layout.LabelLine)

	var err error
	for _, f := range fields {
		if c, err = w.optional(c, f); err != nil {
			return c, err
		}
	}
	return c, nil
}

// optional draws f if it has a value and advances one field line per drawn
// line.
func (w *writer) optional(c Cursor, f field) (Cursor, error) {
	if f.value == "" {
		return c, nil
	}
	lines := []string{f.value}
	if f.multiline {
		lines = strings.Split(f.value, "\n")
	}
	for _, line := range lines {
		if err := w.raw(c, f.prefix+strings.TrimSuffix(line, "\r"), textStyle); err != nil {
			return c, err
		}
		c = c.Down(w.layout.FieldLine)
	}
	return c, nil
}

// bodyParagraph sanitises and wraps one paragraph, breaking to a new page
// before any line that would start below the threshold.
func (w *writer) bodyParagraph(c Cursor, paragraph string) Cursor {
	l := w.layout
	text := Sanitize(paragraph)

	lines := []string{""}
	if text != "" {
		if wrapped := w.canvas.WrapText(text, textStyle, l.BodyWidth()); len(wrapped) > 0 {
			lines = wrapped
		}
	}

	for _, line := range lines {
		if c.Y < l.BreakThreshold {
			w.canvas.AddPage(l.PageWidth, l.PageHeight)
			c = Cursor{Page: c.Page + 1, X: c.X, Y: l.Top()}
		}
		if line != "" {
			w.canvas.DrawText(line, c.X, c.Y, textStyle)
		}
		c = c.Down(l.BodyLine)
	}
	return c
}
