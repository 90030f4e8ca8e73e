package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/money"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

const (
	pageMargin = 15.0
	rowHeight  = 7.0
	bandHeight = 40.0
	logoHeight = 16.0
	logoMaxW   = 50.0
	utf8Family = "quotemaker"
	untitled   = "ESTIMATE"
)

type rgb struct{ r, g, b int }

var (
	black = rgb{0, 0, 0}
	white = rgb{255, 255, 255}
	muted = rgb{110, 110, 110}
	light = rgb{240, 242, 245}
)

// palette is the visual treatment of one design template.
type palette struct {
	accent    rgb
	titleText rgb
	band      bool
	tableFill bool
	border    string
	titleSize float64
}

var palettes = map[model.DesignTemplate]palette{
	model.TemplateClassic: {accent: rgb{31, 56, 100}, titleText: rgb{31, 56, 100}, tableFill: true, border: "1", titleSize: 22},
	model.TemplateModern:  {accent: rgb{37, 99, 235}, titleText: white, band: true, tableFill: true, border: "B", titleSize: 20},
	model.TemplateMinimal: {accent: rgb{64, 64, 64}, titleText: rgb{64, 64, 64}, border: "B", titleSize: 18},
	model.TemplateBold:    {accent: rgb{17, 17, 17}, titleText: white, band: true, tableFill: true, border: "1", titleSize: 26},
}

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 90, "L"},
	{"Qty", 20, "R"},
	{"Unit price", 35, "R"},
	{"Amount", 35, "R"},
}

// PDF renders doc as a PDF. The recovery block is not included.
func (r *Renderer) PDF(ctx context.Context, doc model.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreationDate(r.now())
	pdf.SetCreator("quotemaker", false)
	pdf.SetTitle(doc.Title, true)

	w, err := r.newPDFWriter(pdf, doc)
	if err != nil {
		return nil, err
	}
	pdf.SetFooterFunc(w.pageFooter)

	pdf.AddPage()
	w.header()
	w.parties()
	w.items()
	w.summary(money.Summarize(doc))
	w.closing()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	pages, err := PageCount(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("validating pdf: %w", err)
	}
	r.logger.Debug("PDF rendered",
		zap.String("estimate_number", doc.EstimateNumber),
		zap.Int("pages", pages),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	doc    model.Document
	pal    palette
	family string
	tr     func(string) string
	amount func(int64) string
	logger *zap.Logger
}

func (r *Renderer) newPDFWriter(pdf *gofpdf.Fpdf, doc model.Document) (*pdfWriter, error) {
	pal, ok := palettes[doc.DesignTemplate]
	if !ok {
		pal = palettes[model.TemplateClassic]
	}
	w := &pdfWriter{pdf: pdf, doc: doc, pal: pal, logger: r.logger}

	if r.opts.FontPath != "" {
		if _, err := os.Stat(r.opts.FontPath); err != nil {
			return nil, fmt.Errorf("loading font: %w", err)
		}
		pdf.AddUTF8Font(utf8Family, "", r.opts.FontPath)
		pdf.AddUTF8Font(utf8Family, "B", r.opts.FontPath)
		w.family = utf8Family
		w.tr = func(s string) string { return s }
		w.amount = money.FormatCurrency
		return w, nil
	}

	// Core fonts are cp1252 only; the won sign is spelled out.
	w.family = coreFont(doc.FontFamily)
	w.tr = pdf.UnicodeTranslatorFromDescriptor("")
	w.amount = func(n int64) string { return "KRW " + money.FormatAmount(n) }
	return w, nil
}

func coreFont(f model.FontFamily) string {
	switch f {
	case model.FontSerif:
		return "Times"
	case model.FontMono:
		return "Courier"
	default:
		return "Helvetica"
	}
}

func (w *pdfWriter) text(c rgb) { w.pdf.SetTextColor(c.r, c.g, c.b) }
func (w *pdfWriter) fill(c rgb) { w.pdf.SetFillColor(c.r, c.g, c.b) }

func (w *pdfWriter) header() {
	pdf := w.pdf
	pageW, _ := pdf.GetPageSize()
	if w.pal.band {
		w.fill(w.pal.accent)
		pdf.Rect(0, 0, pageW, bandHeight, "F")
	}
	w.logo(pageW)

	title := w.doc.Title
	if title == "" {
		title = untitled
	}
	pdf.SetXY(pageMargin, pageMargin)
	w.text(w.pal.titleText)
	pdf.SetFont(w.family, "B", w.pal.titleSize)
	pdf.CellFormat(120, 11, w.fit(title, 120), "", 1, "L", false, 0, "")

	pdf.SetFont(w.family, "", 10)
	pdf.CellFormat(0, 5, w.tr("No. "+w.doc.EstimateNumber), "", 1, "L", false, 0, "")
	if w.doc.IssueDate != "" {
		pdf.CellFormat(0, 5, w.tr("Issued "+w.doc.IssueDate), "", 1, "L", false, 0, "")
	}
	if w.doc.DueDate != "" {
		pdf.CellFormat(0, 5, w.tr("Valid until "+w.doc.DueDate), "", 1, "L", false, 0, "")
	}

	if w.pal.band && pdf.GetY() < bandHeight {
		pdf.SetY(bandHeight)
	}
	pdf.Ln(8)
	w.text(black)
}

func (w *pdfWriter) logo(pageW float64) {
	if w.doc.LogoImage == nil || *w.doc.LogoImage == "" {
		return
	}
	raw, imageType, cfg, err := decodeLogo(*w.doc.LogoImage)
	if err != nil {
		w.logger.Warn("Skipping logo", zap.Error(err))
		return
	}

	width := logoHeight * float64(cfg.Width) / float64(cfg.Height)
	height := logoHeight
	if width > logoMaxW {
		height = height * logoMaxW / width
		width = logoMaxW
	}

	opts := gofpdf.ImageOptions{ImageType: imageType}
	w.pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(raw))
	w.pdf.ImageOptions("logo", pageW-pageMargin-width, pageMargin, width, height, false, opts, 0, "")
}

var logoTypes = map[string]string{
	"image/png":  "PNG",
	"image/jpeg": "JPG",
	"image/gif":  "GIF",
}

// decodeLogo decodes a base64 image data URI. The image type is sniffed from
// the content, not taken from the URI.
func decodeLogo(uri string) ([]byte, string, image.Config, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", image.Config{}, errors.New("logo is not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", image.Config{}, errors.New("logo data URI has no payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", image.Config{}, errors.New("logo data URI is not base64")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", image.Config{}, fmt.Errorf("decoding logo: %w", err)
	}
	detected := mimetype.Detect(raw)
	imageType, ok := logoTypes[detected.String()]
	if !ok {
		return nil, "", image.Config{}, fmt.Errorf("unsupported logo type %s", detected)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", image.Config{}, fmt.Errorf("reading logo: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, "", image.Config{}, errors.New("logo is empty")
	}
	return raw, imageType, cfg, nil
}

func (w *pdfWriter) parties() {
	pdf := w.pdf
	pageW, _ := pdf.GetPageSize()
	colW := (pageW - 2*pageMargin) / 2
	top := pdf.GetY()

	w.party("FROM", w.doc.Sender, pageMargin, top, colW-4)
	bottom := pdf.GetY()
	w.party("TO", w.doc.Recipient, pageMargin+colW, top, colW-4)
	pdf.SetXY(pageMargin, max(bottom, pdf.GetY())+8)
}

func (w *pdfWriter) party(label string, p model.Party, x, y, width float64) {
	pdf := w.pdf
	pdf.SetXY(x, y)

	w.text(w.pal.accent)
	pdf.SetFont(w.family, "B", 9)
	pdf.CellFormat(width, 5, label, "", 2, "L", false, 0, "")

	w.text(black)
	pdf.SetFont(w.family, "B", 11)
	pdf.CellFormat(width, 6, w.fit(p.Name, width), "", 2, "L", false, 0, "")

	pdf.SetFont(w.family, "", 9)
	lines := strings.Split(p.Address, "\n")
	lines = append(lines, p.Email, p.Phone)
	if p.BusinessNumber != "" {
		lines = append(lines, "Business No. "+p.BusinessNumber)
	}
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			pdf.CellFormat(width, 5, w.fit(line, width), "", 2, "L", false, 0, "")
		}
	}
}

func (w *pdfWriter) tableHeader() {
	pdf := w.pdf
	pdf.SetFont(w.family, "B", 9)
	if w.pal.tableFill {
		w.fill(w.pal.accent)
		w.text(white)
	} else {
		w.text(w.pal.accent)
	}
	for _, c := range columns {
		pdf.CellFormat(c.width, rowHeight, c.title, w.pal.border, 0, c.align, w.pal.tableFill, 0, "")
	}
	pdf.Ln(-1)
	w.text(black)
	pdf.SetFont(w.family, "", 9)
}

func (w *pdfWriter) items() {
	pdf := w.pdf
	_, pageH := pdf.GetPageSize()

	w.tableHeader()
	w.fill(light)
	for i, it := range w.doc.Items {
		if pdf.GetY()+rowHeight > pageH-pageMargin {
			pdf.AddPage()
			w.tableHeader()
			w.fill(light)
		}
		striped := w.pal.tableFill && i%2 == 1
		cells := []string{
			w.fit(it.Description, columns[0].width-2),
			strconv.FormatInt(it.Quantity, 10),
			w.tr(w.amount(it.UnitPrice)),
			w.tr(w.amount(it.Total)),
		}
		for j, c := range columns {
			pdf.CellFormat(c.width, rowHeight, cells[j], w.pal.border, 0, c.align, striped, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (w *pdfWriter) summary(s money.Summary) {
	pdf := w.pdf
	labelX := pageMargin + columns[0].width + columns[1].width
	labelW, valueW := columns[2].width, columns[3].width

	type row struct {
		label string
		value string
	}
	rows := []row{{"Subtotal", w.amount(s.Subtotal)}}
	if s.Discount > 0 {
		rows = append(rows, row{
			fmt.Sprintf("Discount (%s%%)", money.DiscountPercent(w.doc.DiscountRate)),
			"-" + w.amount(s.Discount),
		})
	}
	rows = append(rows, row{fmt.Sprintf("Tax (%s%%)", money.TaxPercent(w.doc.TaxRate)), w.amount(s.Tax)})

	pdf.Ln(3)
	pdf.SetFont(w.family, "", 9)
	for _, r := range rows {
		pdf.SetX(labelX)
		pdf.CellFormat(labelW, 6, w.tr(r.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, w.tr(r.value), "", 1, "R", false, 0, "")
	}

	pdf.SetX(labelX)
	pdf.SetFont(w.family, "B", 11)
	if w.pal.tableFill {
		w.fill(w.pal.accent)
		w.text(white)
	}
	pdf.CellFormat(labelW, 9, "Total", "T", 0, "L", w.pal.tableFill, 0, "")
	pdf.CellFormat(valueW, 9, w.tr(w.amount(s.Total)), "T", 1, "R", w.pal.tableFill, 0, "")
	w.text(black)
	pdf.Ln(6)
}

func (w *pdfWriter) closing() {
	p := w.doc.PaymentInfo
	if p.BankName != "" || p.AccountNumber != "" || p.AccountHolder != "" {
		w.section("PAYMENT")
		for _, line := range []string{p.BankName, p.AccountNumber, p.AccountHolder} {
			if line != "" {
				w.pdf.CellFormat(0, 5, w.tr(line), "", 1, "L", false, 0, "")
			}
		}
		w.pdf.Ln(3)
	}
	if w.doc.Notes != "" {
		w.section("NOTES")
		w.pdf.MultiCell(0, 5, w.tr(w.doc.Notes), "", "L", false)
		w.pdf.Ln(3)
	}
	if w.doc.Terms != "" {
		w.section("TERMS")
		w.pdf.MultiCell(0, 5, w.tr(w.doc.Terms), "", "L", false)
	}
}

func (w *pdfWriter) section(label string) {
	w.text(w.pal.accent)
	w.pdf.SetFont(w.family, "B", 9)
	w.pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
	w.text(black)
	w.pdf.SetFont(w.family, "", 9)
}

func (w *pdfWriter) pageFooter() {
	pdf := w.pdf
	pdf.SetY(-12)
	pdf.SetFont(w.family, "", 8)
	w.text(muted)
	footer := fmt.Sprintf("%s    %d", w.doc.EstimateNumber, pdf.PageNo())
	pdf.CellFormat(0, 5, w.tr(footer), "", 0, "C", false, 0, "")
	w.text(black)
}

// fit translates s and shortens it with an ellipsis to fit width.
func (w *pdfWriter) fit(s string, width float64) string {
	s = w.tr(s)
	if w.pdf.GetStringWidth(s) <= width {
		return s
	}
	// Translated core-font text is single-byte.
	cut := func(s string) string { return s[:len(s)-1] }
	if w.family == utf8Family {
		cut = func(s string) string {
			_, n := utf8.DecodeLastRuneInString(s)
			return s[:len(s)-n]
		}
	}
	const ellipsis = "..."
	for s != "" && w.pdf.GetStringWidth(s+ellipsis) > width {
		s = cut(s)
	}
	return s + ellipsis
}
