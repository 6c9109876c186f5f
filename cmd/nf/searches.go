package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "List, count and create saved searches",
}

var searchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches alphabetically",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		searches, err := store.ListSavedSearches(ctx, storage.SavedSearchFilter{}, storage.Page{})
		if err != nil {
			return err
		}
		printHeader(fmt.Sprintf("%-30s %-10s %s", "NAME", "FLAGS", "QUERY"))
		for _, search := range searches {
			fmt.Printf("%-30s %-10s %s\n",
				search.Name,
				formatFlags(search.Dirty, search.Local, search.Favorited),
				search.Query,
			)
		}
		return nil
	},
}

var searchesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count saved searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := store.CountSavedSearches(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var searchesCreateCmd = &cobra.Command{
	Use:   "create <name> <query>",
	Short: "Create a saved search",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		search := &types.SavedSearch{
			LocalUID:       types.NewLocalUID(),
			Name:           args[0],
			Query:          args[1],
			Format:         types.Ptr(types.QueryFormatUser),
			IncludeAccount: true,
			Local:          true,
			Dirty:          true,
		}
		if err := store.AddSavedSearch(ctx, search); err != nil {
			return err
		}
		fmt.Println(search.LocalUID)
		return nil
	},
}

func init() {
	searchesCmd.AddCommand(searchesListCmd)
	searchesCmd.AddCommand(searchesCountCmd)
	searchesCmd.AddCommand(searchesCreateCmd)
}
