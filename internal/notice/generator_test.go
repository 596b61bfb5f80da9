package notice

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yesod/internal/domain"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type drawCall struct {
	Text  string
	X, Y  float64
	Style TextStyle
	Page  int
}

// recordingCanvas keeps draw calls instead of producing a PDF. wrapAt > 0
// splits body text every wrapAt runes.
type recordingCanvas struct {
	pages  int
	calls  []drawCall
	wrapAt int
}

func (r *recordingCanvas) AddPage(width, height float64) { r.pages++ }

func (r *recordingCanvas) DrawText(text string, x, y float64, style TextStyle) {
	r.calls = append(r.calls, drawCall{Text: text, X: x, Y: y, Style: style, Page: r.pages})
}

func (r *recordingCanvas) WrapText(text string, style TextStyle, maxWidth float64) []string {
	if r.wrapAt <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	var out []string
	for len(runes) > r.wrapAt {
		out = append(out, string(runes[:r.wrapAt]))
		runes = runes[r.wrapAt:]
	}
	return append(out, string(runes))
}

func (r *recordingCanvas) PageCount() int { return r.pages }

func (r *recordingCanvas) Bytes() ([]byte, error) { return []byte("recorded"), nil }

func (r *recordingCanvas) find(text string) (drawCall, bool) {
	for _, c := range r.calls {
		if c.Text == text {
			return c, true
		}
	}
	return drawCall{}, false
}

func recordingGenerator(rc **recordingCanvas, wrapAt int, opts ...Option) *Generator {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithCanvas(func(width, height float64, created time.Time) Canvas {
			*rc = &recordingCanvas{wrapAt: wrapAt}
			return *rc
		}),
	}, opts...)
	return NewGenerator(opts...)
}

func fullRequest() domain.NoticeRequest {
	return domain.NoticeRequest{
		CreditorName:    "SAS Martin Distribution",
		CreditorAddress: "12 rue de la Paix\n75002 Paris",
		CreditorPhone:   "01 23 45 67 89",
		CreditorEmail:   "compta@martin.fr",
		DebtorName:      "Jean Dupont",
		DebtorAddress:   "4 avenue Foch\n69006 Lyon",
		Amount:          "1500.5",
		Currency:        "EUR",
		InvoiceNumber:   "F-2024-001",
		InvoiceDate:     "2024-01-15",
		DueDate:         "2024-02-15",
		Description:     "Prestations de conseil",
	}
}

func TestGenerate_HeaderAndBlocks(t *testing.T) {
	var rc *recordingCanvas
	g := recordingGenerator(&rc, 0)

	doc, err := g.Generate(fullRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("recorded"), doc.Data)

	org, ok := rc.find("YESOD")
	require.True(t, ok)
	assert.Equal(t, 50.0, org.X)
	assert.Equal(t, 792.0, org.Y)
	assert.Equal(t, orgStyle, org.Style)

	date, ok := rc.find("Le 18 octobre 2026")
	require.True(t, ok)
	assert.Equal(t, 395.0, date.X)
	assert.Equal(t, 712.0, date.Y)

	creditor, _ := rc.find("CRÉANCIER :")
	assert.Equal(t, 672.0, creditor.Y)

	phone, ok := rc.find("Tél : 01 23 45 67 89")
	require.True(t, ok)
	assert.Equal(t, 50.0, phone.X)

	debtor, ok := rc.find("DÉBITEUR :")
	require.True(t, ok)
	assert.Equal(t, 300.0, debtor.X)
	// label 672, -20, five creditor lines of 15, -30
	assert.Equal(t, 672.0-20-5*15-30, debtor.Y)

	city, ok := rc.find("69006 Lyon")
	require.True(t, ok)
	assert.Equal(t, 300.0, city.X)

	title, ok := rc.find("MISE EN DEMEURE DE PAYER")
	require.True(t, ok)
	assert.Equal(t, 147.5, title.X)
	assert.Equal(t, city.Y-15-50, title.Y)
}

func TestGenerate_OptionalFieldsShiftByOneLine(t *testing.T) {
	base := fullRequest()

	titleY := func(req domain.NoticeRequest) float64 {
		var rc *recordingCanvas
		_, err := recordingGenerator(&rc, 0).Generate(req)
		require.NoError(t, err)
		title, ok := rc.find("MISE EN DEMEURE DE PAYER")
		require.True(t, ok)
		return title.Y
	}
	full := titleY(base)

	omit := map[string]func(*domain.NoticeRequest){
		"creditor name":  func(r *domain.NoticeRequest) { r.CreditorName = "" },
		"creditor phone": func(r *domain.NoticeRequest) { r.CreditorPhone = "" },
		"creditor email": func(r *domain.NoticeRequest) { r.CreditorEmail = "" },
		"debtor name":    func(r *domain.NoticeRequest) { r.DebtorName = "" },
	}
	for name, apply := range omit {
		t.Run(name, func(t *testing.T) {
			req := base
			apply(&req)
			assert.Equal(t, full+15, titleY(req))
		})
	}

	t.Run("two-line address", func(t *testing.T) {
		req := base
		req.DebtorAddress = ""
		assert.Equal(t, full+30, titleY(req))
	})

	t.Run("everything omitted", func(t *testing.T) {
		req := domain.NoticeRequest{}
		// five creditor lines and three debtor lines
		assert.Equal(t, full+8*15, titleY(req))
	})
}

func TestGenerate_OmittedFieldsLeaveNoBlankLine(t *testing.T) {
	var rc *recordingCanvas
	_, err := recordingGenerator(&rc, 0).Generate(domain.NoticeRequest{CreditorEmail: "a@b.fr"})
	require.NoError(t, err)

	label, _ := rc.find("CRÉANCIER :")
	email, ok := rc.find("Email : a@b.fr")
	require.True(t, ok)
	assert.Equal(t, label.Y-20, email.Y)

	for _, c := range rc.calls {
		assert.NotEqual(t, "Tél : ", c.Text)
		assert.NotEmpty(t, c.Text)
	}
}

func TestGenerate_ShortBodyFitsOnePage(t *testing.T) {
	tall := A4
	tall.PageHeight = 1400

	var rc *recordingCanvas
	doc, err := recordingGenerator(&rc, 0, WithLayout(tall)).Generate(fullRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages)
	for _, c := range rc.calls {
		assert.Equal(t, 1, c.Page)
	}
}

func TestGenerate_BreaksBelowThreshold(t *testing.T) {
	var rc *recordingCanvas
	req := fullRequest()
	req.Description = strings.Repeat("Honoraires de recouvrement. ", 60)

	doc, err := recordingGenerator(&rc, 80).Generate(req)
	require.NoError(t, err)
	assert.Greater(t, doc.Pages, 1)

	for _, c := range rc.calls {
		assert.GreaterOrEqual(t, c.Y, A4.BreakThreshold, "line %q drawn below threshold", c.Text)
	}

	for _, c := range rc.calls {
		assert.LessOrEqual(t, c.Y, A4.Top())
		assert.LessOrEqual(t, c.Page, doc.Pages)
	}
}

func TestGenerate_PagesGrowWithBody(t *testing.T) {
	prev := 0
	for n := 0; n <= 400; n += 20 {
		var rc *recordingCanvas
		req := fullRequest()
		req.Description = strings.Repeat("x", n*10)

		doc, err := recordingGenerator(&rc, 90).Generate(req)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, doc.Pages, prev, "description of %d runes", n*10)
		prev = doc.Pages
	}
}

func TestGenerate_BodyIsSanitised(t *testing.T) {
	var rc *recordingCanvas
	req := fullRequest()
	req.Description = "Loyer 👍 impayé mars"

	_, err := recordingGenerator(&rc, 0).Generate(req)
	require.NoError(t, err)

	_, ok := rc.find("- Objet : Loyer ?? impayé mars")
	assert.True(t, ok)
	for _, c := range rc.calls {
		for _, r := range c.Text {
			assert.True(t, isLatin1Printable(r), "rune %U in line %q", r, c.Text)
		}
	}
}

type recordingFormatter struct {
	currencyCalls []struct {
		Amount   float64
		Currency string
	}
	dates []string
}

func (f *recordingFormatter) Currency(amount float64, currency string) string {
	f.currencyCalls = append(f.currencyCalls, struct {
		Amount   float64
		Currency string
	}{amount, currency})
	return "<montant>"
}

func (f *recordingFormatter) Date(iso string) string {
	f.dates = append(f.dates, iso)
	return "<" + iso + ">"
}

func (f *recordingFormatter) LongDate(t time.Time) string { return "<aujourd'hui>" }

func TestGenerate_FormatterArguments(t *testing.T) {
	var rc *recordingCanvas
	rf := &recordingFormatter{}
	_, err := recordingGenerator(&rc, 0, WithFormatter(rf)).Generate(fullRequest())
	require.NoError(t, err)

	require.Len(t, rf.currencyCalls, 1)
	assert.Equal(t, 1500.5, rf.currencyCalls[0].Amount)
	assert.Equal(t, "EUR", rf.currencyCalls[0].Currency)
	assert.Equal(t, []string{"2024-01-15", "2024-02-15"}, rf.dates)

	_, ok := rc.find("Par la présente, nous vous mettons en demeure de bien vouloir régler la somme de <montant> correspondant à :")
	assert.True(t, ok)
	_, ok = rc.find("- Date d'échéance : <2024-02-15>")
	assert.True(t, ok)
	_, ok = rc.find("Le <aujourd'hui>")
	assert.True(t, ok)
}

func TestBody_DefaultsAndOptionalLines(t *testing.T) {
	g := NewGenerator(WithClock(func() time.Time { return fixedNow }))

	body := g.Body(domain.NoticeRequest{Amount: "abc", Currency: "EUR"})
	assert.Contains(t, body, "- Facture n° N/A")
	assert.Contains(t, body[2], "0,00")
	for _, line := range body {
		assert.False(t, strings.HasPrefix(line, "- Date"), "unexpected %q", line)
		assert.False(t, strings.HasPrefix(line, "- Objet"), "unexpected %q", line)
	}
	assert.Equal(t, []string{"Cabinet YESOD", "Avocat au Barreau"}, body[len(body)-2:])

	full := g.Body(fullRequest())
	assert.Contains(t, full, "- Date de facturation : 15/01/2024")
	assert.Contains(t, full, "- Objet : Prestations de conseil")
	assert.Len(t, full, len(body)+3)
}

func TestLetterheadFor(t *testing.T) {
	assert.Equal(t, DefaultLetterhead, LetterheadFor(""))
	lh := LetterheadFor("Levi")
	assert.Equal(t, "LEVI", lh.Name)
	assert.Equal(t, []string{"Cabinet LEVI", "Avocat au Barreau"}, lh.Signature)
	assert.Equal(t, DefaultLetterhead.Subtitles, lh.Subtitles)
}

func TestGenerate_UnencodableHeaderFails(t *testing.T) {
	var rc *recordingCanvas
	req := fullRequest()
	req.DebtorName = "Łukasz Nowak"

	doc, err := recordingGenerator(&rc, 0).Generate(req)
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
}

func TestGenerate_PDFIsDeterministic(t *testing.T) {
	g := NewGenerator(WithClock(func() time.Time { return fixedNow }))

	first, err := g.Generate(fullRequest())
	require.NoError(t, err)
	second, err := g.Generate(fullRequest())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(first.Data, []byte("%PDF-")))
	assert.True(t, bytes.Equal(first.Data, second.Data))
	assert.GreaterOrEqual(t, first.Pages, 1)
}

func TestGenerate_PDFPaginatesLongDescriptions(t *testing.T) {
	g := NewGenerator(WithClock(func() time.Time { return fixedNow }))

	short, err := g.Generate(domain.NoticeRequest{DebtorName: "Jean Dupont"})
	require.NoError(t, err)

	req := fullRequest()
	req.Description = strings.Repeat("Frais de relance et pénalités de retard. ", 200)
	long, err := g.Generate(req)
	require.NoError(t, err)

	assert.Greater(t, long.Pages, short.Pages)
}
