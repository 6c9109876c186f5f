package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List, count and create tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags alphabetically",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		withCounts, _ := cmd.Flags().GetBool("counts")

		tags, err := store.ListTags(ctx, storage.TagFilter{IncludeDeleted: includeDeleted}, storage.Page{})
		if err != nil {
			return err
		}
		printHeader(fmt.Sprintf("%-30s %-10s %s", "NAME", "FLAGS", "NOTES"))
		for _, tag := range tags {
			notes := ""
			if withCounts {
				n, err := store.CountNotesPerTag(ctx, tag.LocalUID)
				if err != nil {
					return err
				}
				notes = fmt.Sprintf("%d", n)
			}
			fmt.Printf("%-30s %-10s %s\n", tag.Name, formatFlags(tag.Dirty, tag.Local, tag.Favorited), notes)
		}
		return nil
	},
}

var tagsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count tags not marked as deleted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := store.CountTags(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var tagsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		tag := &types.Tag{
			LocalUID: types.NewLocalUID(),
			Name:     args[0],
			Local:    true,
			Dirty:    true,
		}
		if err := store.AddTag(ctx, tag); err != nil {
			return err
		}
		fmt.Println(tag.LocalUID)
		return nil
	},
}

func init() {
	tagsListCmd.Flags().Bool("include-deleted", false, "include tags marked as deleted")
	tagsListCmd.Flags().Bool("counts", false, "show per-tag note counts")

	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsCountCmd)
	tagsCmd.AddCommand(tagsCreateCmd)
}
