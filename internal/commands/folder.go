package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quotemaker-dev/quotemaker/internal/document"
	"github.com/quotemaker-dev/quotemaker/internal/model"
	"github.com/quotemaker-dev/quotemaker/internal/savepoint"
)

func newFolderCommand(cfgPath *string) *cobra.Command {
	var clearPath bool

	cmd := &cobra.Command{
		Use:   "folder [path]",
		Short: "Choose the folder exports are saved to",
		Long: `Choose the folder exports are saved to. Without a path the folder is read
from standard input; an empty answer cancels. When a save endpoint is
configured the choice is confirmed by the endpoint.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearPath {
				return runFolderClear(cmd.Context(), cmd.OutOrStdout(), *cfgPath)
			}
			var path string
			if len(args) > 0 {
				path = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "Save folder (empty to cancel): ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("reading folder: %w", err)
				}
				path = strings.TrimSpace(line)
			}
			return runFolder(cmd.Context(), cmd.OutOrStdout(), *cfgPath, path)
		},
	}

	cmd.Flags().BoolVar(&clearPath, "clear", false, "forget the folder and use the export directory")

	return cmd
}

func runFolder(ctx context.Context, out io.Writer, cfgPath, path string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	chosen, err := selectFolder(ctx, e.saveClient(), path)
	if errors.Is(err, savepoint.ErrCancelled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("selecting folder: %w", err)
	}

	_, err = e.session.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithField(d, document.FieldSavePath, chosen)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exports will be saved to %s\n", chosen)
	return nil
}

// selectFolder confirms path through the endpoint when one is configured,
// otherwise checks it locally.
func selectFolder(ctx context.Context, client *savepoint.Client, path string) (string, error) {
	if client != nil {
		return client.SelectFolder(ctx, path)
	}
	if path == "" {
		return "", savepoint.ErrCancelled
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func runFolderClear(ctx context.Context, out io.Writer, cfgPath string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	_, err = e.session.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithField(d, document.FieldSavePath, "")
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exports will be saved to %s\n", e.cfg.Export.OutputDir)
	return nil
}

func newServeCommand(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local save endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout(), *cfgPath, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, out io.Writer, cfgPath, addr string) error {
	cfg, logger, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := savepoint.NewServer(addr, logger)
	fmt.Fprintf(out, "Save endpoint listening on http://%s\n", srv.Addr())
	return srv.Start(ctx)
}
