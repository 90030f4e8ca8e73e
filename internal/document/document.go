// Package document holds the pure transitions over model.Document. Every
// function takes a snapshot and returns a new one; the input is never mutated.
package document

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotemaker-dev/quotemaker/internal/model"
	"github.com/quotemaker-dev/quotemaker/internal/money"
)

var (
	// ErrUnknownField is returned for a field name the document does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrReadOnlyField is returned when editing a derived field.
	ErrReadOnlyField = errors.New("field is read-only")
)

// Document field names, matching the JSON keys.
const (
	FieldTitle          = "title"
	FieldFileName       = "fileName"
	FieldFontFamily     = "fontFamily"
	FieldLogo           = "logoDataUrl"
	FieldEstimateNumber = "estimateNumber"
	FieldIssueDate      = "issueDate"
	FieldDueDate        = "dueDate"
	FieldNotes          = "notes"
	FieldTerms          = "terms"
	FieldTaxRate        = "taxRate"
	FieldDiscountRate   = "discountRate"
	FieldSavePath       = "savePath"
	FieldDesignTemplate = "designTemplate"
)

// Line item field names.
const (
	ItemDescription = "description"
	ItemQuantity    = "quantity"
	ItemUnitPrice   = "unitPrice"
	ItemTotal       = "total"
)

// Default returns the starter document shown on first run.
func Default(now time.Time, estimateNumber string) model.Document {
	issue := now.Format(dateFormat)
	due := now.AddDate(0, 0, 7).Format(dateFormat)
	return model.Document{
		FontFamily:     model.FontSystem,
		EstimateNumber: estimateNumber,
		IssueDate:      issue,
		DueDate:        due,
		Sender: model.Party{
			Name:           "Quote Maker",
			Address:        "123 Teheran-ro, Gangnam-gu, Seoul",
			Email:          "contact@quote-maker.cx",
			Phone:          "02-1234-5678",
			BusinessNumber: "123-45-67890",
		},
		Recipient: model.Party{
			Name:    "Startup Inc.",
			Address: "Jung-gu, Seoul, 110022",
			Email:   "ceo@startup-kr.com",
			Phone:   "010-9876-5432",
		},
		PaymentInfo: model.PaymentInfo{
			BankName:      "00 Bank",
			AccountNumber: "1234-56-7890",
			AccountHolder: "Gildong Hong",
		},
		Items: []model.LineItem{
			{ID: "1", Description: "Website UI/UX design", Quantity: 1, UnitPrice: 1500000, Total: 1500000},
			{ID: "2", Description: "Frontend development (React)", Quantity: 1, UnitPrice: 2000000, Total: 2000000},
			{ID: "3", Description: "Backend API integration", Quantity: 1, UnitPrice: 1000000, Total: 1000000},
		},
		Notes:          ValidityNotes(issue, due),
		Terms:          "50% deposit, 50% balance (due within 7 days of completion)",
		TaxRate:        0.1,
		DesignTemplate: model.TemplateClassic,
	}
}

// WithField returns doc with one field set from its text form. Party and
// payment fields are addressed as "sender.name", "paymentInfo.bankName" etc.
// Numeric values are coerced, never rejected. Changing either date
// recomputes the notes.
func WithField(doc model.Document, field, value string) (model.Document, error) {
	next := doc.Clone()

	if group, key, ok := strings.Cut(field, "."); ok {
		if err := setNested(&next, group, key, value); err != nil {
			return doc, err
		}
		return next, nil
	}

	switch field {
	case FieldTitle:
		next.Title = value
	case FieldFileName:
		next.FileName = value
	case FieldFontFamily:
		next.FontFamily = coerceFont(model.FontFamily(value))
	case FieldLogo:
		if value == "" {
			next.LogoImage = nil
		} else {
			next.LogoImage = &value
		}
	case FieldEstimateNumber:
		next.EstimateNumber = value
	case FieldIssueDate:
		next.IssueDate = value
		next.Notes = ValidityNotes(next.IssueDate, next.DueDate)
	case FieldDueDate:
		next.DueDate = value
		next.Notes = ValidityNotes(next.IssueDate, next.DueDate)
	case FieldNotes:
		next.Notes = value
	case FieldTerms:
		next.Terms = value
	case FieldTaxRate:
		next.TaxRate = coerceRate(parseFloat(value), 1)
	case FieldDiscountRate:
		next.DiscountRate = coerceRate(parseFloat(value), 100)
	case FieldSavePath:
		next.SavePath = value
	case FieldDesignTemplate:
		next.DesignTemplate = coerceTemplate(model.DesignTemplate(parseInt(value)))
	default:
		return doc, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return next, nil
}

func setNested(doc *model.Document, group, key, value string) error {
	switch group {
	case "sender":
		return setParty(&doc.Sender, key, value, true)
	case "recipient":
		return setParty(&doc.Recipient, key, value, false)
	case "paymentInfo":
		switch key {
		case "bankName":
			doc.PaymentInfo.BankName = value
		case "accountNumber":
			doc.PaymentInfo.AccountNumber = value
		case "accountHolder":
			doc.PaymentInfo.AccountHolder = value
		default:
			return fmt.Errorf("%w: %q", ErrUnknownField, group+"."+key)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, group+"."+key)
}

func setParty(p *model.Party, key, value string, sender bool) error {
	switch key {
	case "name":
		p.Name = value
	case "address":
		p.Address = value
	case "email":
		p.Email = value
	case "phone":
		p.Phone = value
	case "businessNumber":
		if !sender {
			return fmt.Errorf("%w: %q", ErrUnknownField, "recipient."+key)
		}
		p.BusinessNumber = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return nil
}

// WithItem returns doc with one field of the item id set. Editing quantity
// or unitPrice recomputes that item's total. Both are clamped into
// [0, money.MaxAmount]. An absent id is a no-op.
func WithItem(doc model.Document, itemID, field, value string) (model.Document, error) {
	switch field {
	case ItemDescription, ItemQuantity, ItemUnitPrice:
	case ItemTotal:
		return doc, fmt.Errorf("%w: %q", ErrReadOnlyField, field)
	default:
		return doc, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	next := doc.Clone()
	for i := range next.Items {
		it := &next.Items[i]
		if it.ID != itemID {
			continue
		}
		switch field {
		case ItemDescription:
			it.Description = value
		case ItemQuantity:
			it.Quantity = money.Bound(parseInt(value))
			it.Total = money.LineTotal(it.Quantity, it.UnitPrice)
		case ItemUnitPrice:
			it.UnitPrice = money.Bound(parseInt(value))
			it.Total = money.LineTotal(it.Quantity, it.UnitPrice)
		}
	}
	return next, nil
}

// AddItem appends a blank item (quantity 1, price 0) with a fresh id.
func AddItem(doc model.Document) (model.Document, model.LineItem) {
	item := model.LineItem{
		ID:       uuid.NewString(),
		Quantity: 1,
	}
	next := doc.Clone()
	next.Items = append(next.Items, item)
	return next, item
}

// RemoveItem drops the item id; an absent id is a no-op.
func RemoveItem(doc model.Document, itemID string) model.Document {
	next := doc.Clone()
	kept := next.Items[:0]
	for _, it := range next.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	next.Items = kept
	return next
}

// Normalize applies numeric coercion to a document that came from outside
// (an import): negative amounts become 0, totals are recomputed, rates are
// clamped and unknown enums fall back to their defaults.
func Normalize(doc model.Document) model.Document {
	next := doc.Clone()
	for i := range next.Items {
		it := &next.Items[i]
		it.Quantity = money.Bound(it.Quantity)
		it.UnitPrice = money.Bound(it.UnitPrice)
		it.Total = money.LineTotal(it.Quantity, it.UnitPrice)
	}
	next.TaxRate = coerceRate(next.TaxRate, 1)
	next.DiscountRate = coerceRate(next.DiscountRate, 100)
	next.FontFamily = coerceFont(next.FontFamily)
	next.DesignTemplate = coerceTemplate(next.DesignTemplate)
	return next
}

// parseInt reads a leading integer ("12abc" -> 12); anything else is 0.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func coerceRate(v, upper float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > upper:
		return upper
	}
	return v
}

func coerceFont(f model.FontFamily) model.FontFamily {
	if f.Valid() {
		return f
	}
	return model.FontSystem
}

func coerceTemplate(t model.DesignTemplate) model.DesignTemplate {
	if t.Valid() {
		return t
	}
	return model.TemplateClassic
}
