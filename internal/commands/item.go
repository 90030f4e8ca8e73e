package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quotemaker-dev/quotemaker/internal/document"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

func newItemCommand(cfgPath *string) *cobra.Command {
	itemCmd := &cobra.Command{
		Use:   "item",
		Short: "Edit line items",
	}
	itemCmd.AddCommand(
		newItemAddCommand(cfgPath),
		newItemSetCommand(cfgPath),
		newItemRemoveCommand(cfgPath),
	)
	return itemCmd
}

func newItemAddCommand(cfgPath *string) *cobra.Command {
	var description string
	var quantity, unitPrice int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a line item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemAdd(cmd.Context(), cmd.OutOrStdout(), *cfgPath, description, quantity, unitPrice)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "item description")
	cmd.Flags().Int64Var(&quantity, "quantity", 1, "quantity")
	cmd.Flags().Int64Var(&unitPrice, "unit-price", 0, "unit price")

	return cmd
}

func runItemAdd(ctx context.Context, out io.Writer, cfgPath, description string, quantity, unitPrice int64) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	var added model.LineItem
	_, err = e.session.Update(ctx, func(d model.Document) (model.Document, error) {
		d, added = document.AddItem(d)
		edits := [][2]string{
			{document.ItemDescription, description},
			{document.ItemQuantity, strconv.FormatInt(quantity, 10)},
			{document.ItemUnitPrice, strconv.FormatInt(unitPrice, 10)},
		}
		for _, edit := range edits {
			var err error
			if d, err = document.WithItem(d, added.ID, edit[0], edit[1]); err != nil {
				return d, err
			}
		}
		return d, nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added item %s\n", added.ID)
	return nil
}

func newItemSetCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Set description, quantity or unitPrice of an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemSet(cmd.Context(), cmd.OutOrStdout(), *cfgPath, args[0], args[1], args[2])
		},
	}
}

func runItemSet(ctx context.Context, out io.Writer, cfgPath, itemID, field, value string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, ok := e.session.Document().Item(itemID); !ok {
		return fmt.Errorf("no item with id %q", itemID)
	}
	doc, err := e.session.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithItem(d, itemID, field, value)
	})
	if err != nil {
		return err
	}
	it, _ := doc.Item(itemID)
	fmt.Fprintf(out, "Item %s: %d x %d = %d\n", it.ID, it.Quantity, it.UnitPrice, it.Total)
	return nil
}

func newItemRemoveCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a line item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemRemove(cmd.Context(), cmd.OutOrStdout(), *cfgPath, args[0])
		},
	}
}

func runItemRemove(ctx context.Context, out io.Writer, cfgPath, itemID string) error {
	e, err := openEnv(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, ok := e.session.Document().Item(itemID); !ok {
		return fmt.Errorf("no item with id %q", itemID)
	}
	_, err = e.session.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.RemoveItem(d, itemID), nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed item %s\n", itemID)
	return nil
}
