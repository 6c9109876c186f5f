package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

var notebooksCmd = &cobra.Command{
	Use:   "notebooks",
	Short: "List, count and create notebooks",
}

var notebooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notebooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		stack, _ := cmd.Flags().GetString("stack")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		byName, _ := cmd.Flags().GetBool("by-name")

		page := storage.Page{Limit: limit, Offset: offset}
		if byName {
			page.Order = storage.OrderByName
		}
		notebooks, err := store.ListNotebooks(ctx, storage.NotebookFilter{Stack: stack}, page)
		if err != nil {
			return err
		}

		printHeader(fmt.Sprintf("%-30s %-10s %-17s %s", "NAME", "FLAGS", "MODIFIED", "DEFAULT"))
		for _, nb := range notebooks {
			def := ""
			if nb.IsDefault {
				def = "default"
			}
			fmt.Printf("%-30s %-10s %-17s %s\n",
				nb.Name,
				formatFlags(nb.Dirty, nb.Local, nb.Favorited),
				formatTimestamp(nb.ModificationTimestamp),
				def,
			)
		}
		return nil
	},
}

var notebooksCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count notebooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := store.CountNotebooks(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var notebooksCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a notebook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		isDefault, _ := cmd.Flags().GetBool("default")
		stack, _ := cmd.Flags().GetString("stack")
		now := nowMillis()
		nb := &types.Notebook{
			LocalUID:              types.NewLocalUID(),
			Name:                  args[0],
			IsDefault:             isDefault,
			CreationTimestamp:     &now,
			ModificationTimestamp: &now,
			Local:                 true,
			Dirty:                 true,
		}
		if stack != "" {
			nb.Stack = &stack
		}
		if err := store.AddNotebook(ctx, nb); err != nil {
			return err
		}
		fmt.Println(nb.LocalUID)
		return nil
	},
}

func init() {
	notebooksListCmd.Flags().String("stack", "", "only notebooks on this stack")
	notebooksListCmd.Flags().Int("limit", 0, "maximum rows")
	notebooksListCmd.Flags().Int("offset", 0, "rows to skip")
	notebooksListCmd.Flags().Bool("by-name", false, "order alphabetically instead of by insertion")

	notebooksCreateCmd.Flags().Bool("default", false, "make this the default notebook")
	notebooksCreateCmd.Flags().String("stack", "", "stack to place the notebook on")

	notebooksCmd.AddCommand(notebooksListCmd)
	notebooksCmd.AddCommand(notebooksCountCmd)
	notebooksCmd.AddCommand(notebooksCreateCmd)
}
