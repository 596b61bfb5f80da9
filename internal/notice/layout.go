package notice

// Color is an RGB colour with channels in [0, 1].
type Color struct {
	R, G, B float64
}

var (
	Black = Color{}
	Blue  = Color{R: 0, G: 0.4, B: 0.8}
	Grey  = Color{R: 0.3, G: 0.3, B: 0.3}
	Red   = Color{R: 0.8, G: 0, B: 0}
)

// Layout holds every distance used to place text on a notice, in PDF user
// units with the origin at the bottom-left corner of the page.
type Layout struct {
	PageWidth  float64
	PageHeight float64

	// Margin is both the left text margin and the distance from the top edge
	// to the first baseline of every page.
	Margin float64
	// RightColumnX is where the debtor block starts.
	RightColumnX float64
	// DateInset is the distance from the right edge to the date line.
	DateInset float64
	// TitleWidth is the nominal width used to centre the title.
	TitleWidth float64
	// BreakThreshold: a body line is moved to a new page when the cursor is
	// below this height.
	BreakThreshold float64

	FieldLine   float64 // one address/contact line
	BodyLine    float64 // one body line
	LabelLine   float64 // block label to first field
	HeadingLine float64 // organisation name to first subtitle

	DateGap   float64 // subtitles to date
	BlockGap  float64 // date to creditor label, title to body
	DebtorGap float64 // last creditor field to debtor label
	TitleGap  float64 // last debtor field to title
}

// A4 is the layout of every notice the firm sends.
var A4 = Layout{
	PageWidth:      595,
	PageHeight:     842,
	Margin:         50,
	RightColumnX:   300,
	DateInset:      200,
	TitleWidth:     300,
	BreakThreshold: 100,

	FieldLine:   15,
	BodyLine:    18,
	LabelLine:   20,
	HeadingLine: 25,

	DateGap:   40,
	BlockGap:  40,
	DebtorGap: 30,
	TitleGap:  50,
}

// Top is the y of the first baseline on a page.
func (l Layout) Top() float64 { return l.PageHeight - l.Margin }

// BodyWidth is the maximum width of a body line.
func (l Layout) BodyWidth() float64 { return l.PageWidth - 2*l.Margin }

// Cursor is the current drawing position. Page is 1-based.
type Cursor struct {
	Page int
	X    float64
	Y    float64
}

// Down moves the cursor dy units towards the bottom of the page.
func (c Cursor) Down(dy float64) Cursor {
	c.Y -= dy
	return c
}

// At moves the cursor to column x on the same line.
func (c Cursor) At(x float64) Cursor {
	c.X = x
	return c
}

// TextStyle describes how a single line is drawn.
type TextStyle struct {
	Size  float64
	Bold  bool
	Color Color
}

var (
	orgStyle      = TextStyle{Size: 20, Bold: true, Color: Blue}
	subtitleStyle = TextStyle{Size: 12, Color: Grey}
	labelStyle    = TextStyle{Size: 12, Bold: true}
	textStyle     = TextStyle{Size: 11}
	titleStyle    = TextStyle{Size: 16, Bold: true, Color: Red}
)
