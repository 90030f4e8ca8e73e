package model

// FontFamily selects the typeface family used when rendering a document.
type FontFamily string

const (
	FontSystem  FontFamily = "system"
	FontSerif   FontFamily = "serif"
	FontMono    FontFamily = "mono"
	FontRounded FontFamily = "rounded"
)

// Valid reports whether f is one of the known font families.
func (f FontFamily) Valid() bool {
	switch f {
	case FontSystem, FontSerif, FontMono, FontRounded:
		return true
	}
	return false
}

// DesignTemplate is one of the alternative visual layouts (1-4).
type DesignTemplate int

const (
	TemplateClassic DesignTemplate = 1
	TemplateModern  DesignTemplate = 2
	TemplateMinimal DesignTemplate = 3
	TemplateBold    DesignTemplate = 4
)

// Valid reports whether t is in 1..4.
func (t DesignTemplate) Valid() bool {
	return t >= TemplateClassic && t <= TemplateBold
}

func (t DesignTemplate) String() string {
	switch t {
	case TemplateClassic:
		return "classic"
	case TemplateModern:
		return "modern"
	case TemplateMinimal:
		return "minimal"
	case TemplateBold:
		return "bold"
	}
	return "unknown"
}

// Party is the sender or recipient of a document. BusinessNumber is only
// meaningful for the sender.
type Party struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	BusinessNumber string `json:"businessNumber,omitempty"`
}

// PaymentInfo is the bank transfer block printed on a document.
type PaymentInfo struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
}

// LineItem is a single billable row. Total always equals Quantity*UnitPrice
// after an edit; amounts are in the currency's minor unit.
type LineItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Total       int64  `json:"total"`
}

// Document is one estimate/invoice snapshot. It stores no derived totals.
//
// Optional fields and their defaults:
//   - Title, FileName, SavePath: "" (empty means "not set")
//   - FontFamily: FontSystem
//   - LogoImage: nil (no logo)
//   - IssueDate, DueDate: "" when absent, otherwise YYYY-MM-DD
//   - DesignTemplate: TemplateClassic
type Document struct {
	Title          string         `json:"title"`
	FileName       string         `json:"fileName"`
	FontFamily     FontFamily     `json:"fontFamily"`
	LogoImage      *string        `json:"logoDataUrl"` // data URI
	EstimateNumber string         `json:"estimateNumber"`
	IssueDate      string         `json:"issueDate"`
	DueDate        string         `json:"dueDate"`
	Sender         Party          `json:"sender"`
	Recipient      Party          `json:"recipient"`
	PaymentInfo    PaymentInfo    `json:"paymentInfo"`
	Items          []LineItem     `json:"items"`
	Notes          string         `json:"notes"`
	Terms          string         `json:"terms"`
	TaxRate        float64        `json:"taxRate"`      // fraction, 0.1 = 10%
	DiscountRate   float64        `json:"discountRate"` // percent, 0..100
	SavePath       string         `json:"savePath,omitempty"`
	DesignTemplate DesignTemplate `json:"designTemplate"`
}

// Clone returns a copy of d that shares no mutable state with it.
func (d Document) Clone() Document {
	c := d
	if d.Items != nil {
		c.Items = make([]LineItem, len(d.Items))
		copy(c.Items, d.Items)
	}
	if d.LogoImage != nil {
		logo := *d.LogoImage
		c.LogoImage = &logo
	}
	return c
}

// Item returns the line item with the given id.
func (d Document) Item(id string) (LineItem, bool) {
	for _, it := range d.Items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}

// SequenceState is the persisted per-year document counter.
type SequenceState struct {
	Year         int `json:"year"`
	LastSequence int `json:"lastSeq"`
}
