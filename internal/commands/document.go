package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/document"
	"github.com/quotemaker-dev/quotemaker/internal/model"
	"github.com/quotemaker-dev/quotemaker/internal/money"
)

func newNewCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new document with the next estimate number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd.Context(), cmd.OutOrStdout(), *cfgPath)
		},
	}
}

func runNew(ctx context.Context, out io.Writer, cfgPath string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := e.session.NewDocument(ctx)
	if err != nil {
		return fmt.Errorf("starting document: %w", err)
	}
	fmt.Fprintf(out, "Started %s\n", doc.EstimateNumber)
	return nil
}

func newShowCommand(cfgPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current document and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), cmd.OutOrStdout(), *cfgPath, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the document as JSON")

	return cmd
}

func runShow(ctx context.Context, out io.Writer, cfgPath string, asJSON bool) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	doc := e.session.Document()
	if asJSON {
		data, err := codec.EncodeJSON(doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	return printDocument(out, doc)
}

func printDocument(out io.Writer, doc model.Document) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Estimate\t%s\n", doc.EstimateNumber)
	if doc.Title != "" {
		fmt.Fprintf(tw, "Title\t%s\n", doc.Title)
	}
	fmt.Fprintf(tw, "Issued\t%s\n", doc.IssueDate)
	fmt.Fprintf(tw, "Valid until\t%s\n", doc.DueDate)
	fmt.Fprintf(tw, "From\t%s\n", partyLine(doc.Sender))
	fmt.Fprintf(tw, "To\t%s\n", partyLine(doc.Recipient))
	fmt.Fprintf(tw, "Template\t%d (%s), font %s\n", int(doc.DesignTemplate), doc.DesignTemplate, doc.FontFamily)
	if doc.SavePath != "" {
		fmt.Fprintf(tw, "Save path\t%s\n", doc.SavePath)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "ID\tDESCRIPTION\tQTY\tUNIT PRICE\tAMOUNT")
	for _, it := range doc.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			it.ID, it.Description, it.Quantity, money.FormatCurrency(it.UnitPrice), money.FormatCurrency(it.Total))
	}
	fmt.Fprintln(tw)

	s := money.Summarize(doc)
	fmt.Fprintf(tw, "Subtotal\t%s\n", money.FormatCurrency(s.Subtotal))
	if s.Discount > 0 {
		fmt.Fprintf(tw, "Discount (%s%%)\t-%s\n", money.DiscountPercent(doc.DiscountRate), money.FormatCurrency(s.Discount))
	}
	fmt.Fprintf(tw, "Tax (%s%%)\t%s\n", money.TaxPercent(doc.TaxRate), money.FormatCurrency(s.Tax))
	fmt.Fprintf(tw, "Total\t%s\n", money.FormatCurrency(s.Total))
	if err := tw.Flush(); err != nil {
		return err
	}

	if doc.Notes != "" {
		fmt.Fprintf(out, "\nNotes: %s\n", doc.Notes)
	}
	if doc.Terms != "" {
		fmt.Fprintf(out, "Terms: %s\n", doc.Terms)
	}
	return nil
}

// logoDataURI reads an image file into a data URI.
func logoDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading logo: %w", err)
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("logo %s is %s, not an image", path, mime)
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func partyLine(p model.Party) string {
	var parts []string
	for _, s := range []string{p.Name, p.Email, p.Phone} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func newSetCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a document field",
		Long: `Set a document field. Fields are title, fileName, fontFamily, logoDataUrl,
estimateNumber, issueDate, dueDate, notes, terms, taxRate, discountRate,
savePath, designTemplate, and sender.*, recipient.*, paymentInfo.* for the
party and payment fields (e.g. sender.name, paymentInfo.bankName).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd.Context(), cmd.OutOrStdout(), *cfgPath, args[0], args[1])
		},
	}
}

func runSet(ctx context.Context, out io.Writer, cfgPath, field, value string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if field == document.FieldDesignTemplate {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("design template must be 1-4, got %q", value)
		}
		if _, err := e.session.SetTemplate(ctx, model.DesignTemplate(n)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Set %s\n", field)
		return nil
	}

	if field == document.FieldLogo && value != "" && !strings.HasPrefix(value, "data:") {
		if value, err = logoDataURI(value); err != nil {
			return err
		}
	}

	_, err = e.session.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithField(d, field, value)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Set %s\n", field)
	return nil
}
