package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/export"
	"github.com/quotemaker-dev/quotemaker/internal/exportlog"
	"github.com/quotemaker-dev/quotemaker/internal/importer"
)

func newExportCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export [format...]",
		Short: "Export the current document (pdf, png, json, xlsx)",
		Long: `Export the current document. The default format is pdf. PDF exports
carry the document data so they can be imported again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{string(export.FormatPDF)}
			}
			var formats []export.Format
			for _, a := range args {
				f, err := export.ParseFormat(a)
				if err != nil {
					return err
				}
				formats = append(formats, f)
			}
			return runExport(cmd.Context(), cmd.OutOrStdout(), *cfgPath, formats)
		},
	}
}

func runExport(ctx context.Context, out io.Writer, cfgPath string, formats []export.Format) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	exp := e.exporter()
	doc := e.session.Document()
	for _, f := range formats {
		res, err := exp.Export(ctx, doc, e.session.Sequence(), f)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(out, "Exported %s\n", res.Path)
	}
	return nil
}

func newImportCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file|dir]",
		Short: "Replace the current document with a JSON or PDF export",
		Long: `Replace the current document with a JSON or PDF export. Given a directory,
or nothing (the export directory), list the files that can be imported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
					return runImport(cmd.Context(), cmd.OutOrStdout(), *cfgPath, args[0])
				}
				return runImportList(cmd.OutOrStdout(), *cfgPath, args[0])
			}
			return runImportList(cmd.OutOrStdout(), *cfgPath, "")
		},
	}
}

func runImport(ctx context.Context, out io.Writer, cfgPath, path string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := e.session.ImportFile(ctx, path)
	if err != nil {
		return importError(err)
	}
	fmt.Fprintf(out, "Imported %s\n", doc.EstimateNumber)
	return nil
}

func runImportList(out io.Writer, cfgPath, dir string) error {
	cfg, logger, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if dir == "" {
		dir = cfg.Export.OutputDir
	}
	files, err := importer.DefaultRegistry().Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No importable files in %s\n", dir)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tBYTES")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\n", f.Path, f.Size)
	}
	return tw.Flush()
}

// importError maps an import failure to a message the user can act on.
func importError(err error) error {
	var msg string
	switch {
	case errors.Is(err, codec.ErrInvalidJSON):
		msg = "not a valid estimate JSON file"
	case errors.Is(err, codec.ErrNoEmbeddedData):
		msg = "this PDF has no estimate data; only PDFs exported by quotemaker can be imported"
	case errors.Is(err, codec.ErrCorruptData):
		msg = "the estimate data in this PDF is damaged"
	case errors.Is(err, importer.ErrUnsupportedFormat):
		msg = "unsupported file type; import a .json or .pdf export"
	default:
		return fmt.Errorf("import failed: %w", err)
	}
	return fmt.Errorf("import failed: %s: %w", msg, err)
}

func newHistoryCommand(cfgPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.OutOrStdout(), *cfgPath, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")

	return cmd
}

func runHistory(out io.Writer, cfgPath string, limit int) error {
	cfg, logger, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	entries, err := exportlog.Read(cfg.ExportLogPath())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No exports yet.")
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFORMAT\tESTIMATE\tBYTES\tDESTINATION\tFILE")
	for _, en := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			en.Timestamp.Local().Format(time.DateTime), en.Format, en.EstimateNumber, en.Bytes, en.Destination, en.File)
	}
	return tw.Flush()
}
