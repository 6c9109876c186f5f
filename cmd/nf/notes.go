package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List, count, show and create notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		notebookName, _ := cmd.Flags().GetString("notebook")
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		since, _ := cmd.Flags().GetString("created-since")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := storage.NoteFilter{IncludeDeleted: includeDeleted}
		if notebookName != "" {
			// The filter wants the notebook's local uid; resolve the name
			// through the notebook listing.
			notebooks, err := store.ListNotebooks(ctx, storage.NotebookFilter{}, storage.Page{})
			if err != nil {
				return err
			}
			for _, nb := range notebooks {
				if nb.Name == notebookName {
					filter.NotebookLocalUID = nb.LocalUID
					break
				}
			}
			if filter.NotebookLocalUID == "" {
				return fmt.Errorf("no notebook named %q", notebookName)
			}
		}

		var sinceMillis int64
		if since != "" {
			sinceMillis, err = parseWhen(since)
			if err != nil {
				return err
			}
		}

		notes, err := store.ListNotes(ctx, filter, storage.FindNoteOptions{}, storage.Page{
			Order: storage.OrderByModified, Direction: storage.Descending,
			Limit: limit, Offset: offset,
		})
		if err != nil {
			return err
		}

		printHeader(fmt.Sprintf("%-36s %-30s %-10s %s", "LOCAL UID", "TITLE", "FLAGS", "MODIFIED"))
		for _, n := range notes {
			if sinceMillis != 0 && (n.CreationTimestamp == nil || *n.CreationTimestamp < sinceMillis) {
				continue
			}
			fmt.Printf("%-36s %-30s %-10s %s\n",
				n.LocalUID,
				n.Title,
				formatFlags(n.Dirty, n.Local, n.Favorited),
				formatTimestamp(n.ModificationTimestamp),
			)
		}
		return nil
	},
}

var notesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count non-deleted notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := store.CountNotes(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <local-uid>",
	Short: "Show one note with its tags and resources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := store.FindNote(ctx, storage.LocalKey(args[0]), storage.FindNoteOptions{})
		if err != nil {
			return err
		}
		printHeader(n.Title)
		fmt.Println(dimStyle.Render("notebook: ") + n.NotebookLocalUID)
		if n.GUID != nil {
			fmt.Println(dimStyle.Render("guid:     ") + *n.GUID)
		}
		fmt.Println(dimStyle.Render("created:  ") + formatTimestamp(n.CreationTimestamp))
		fmt.Println(dimStyle.Render("modified: ") + formatTimestamp(n.ModificationTimestamp))
		if len(n.TagLocalUIDs) != 0 {
			fmt.Println(dimStyle.Render("tags:"))
			for _, uid := range n.TagLocalUIDs {
				tag, err := store.FindTag(ctx, storage.LocalKey(uid))
				if err != nil {
					return err
				}
				fmt.Println("  " + tag.Name)
			}
		}
		for _, r := range n.Resources {
			size := int32(0)
			if r.Data != nil {
				size = r.Data.Size
			}
			fmt.Printf("%s %s (%d bytes, %s)\n", dimStyle.Render("resource:"), r.LocalUID, size, r.Mime)
		}
		fmt.Println()
		fmt.Println(n.Content)
		return nil
	},
}

var notesCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a note in a notebook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		notebookName, _ := cmd.Flags().GetString("notebook")
		content, _ := cmd.Flags().GetString("content")

		var notebook *types.Notebook
		if notebookName == "" {
			notebook, err = store.FindDefaultOrLastUsedNotebook(ctx)
			if err != nil {
				return fmt.Errorf("no --notebook given and no default notebook: %w", err)
			}
		} else {
			notebooks, err := store.ListNotebooks(ctx, storage.NotebookFilter{}, storage.Page{})
			if err != nil {
				return err
			}
			for _, nb := range notebooks {
				if nb.Name == notebookName {
					notebook = nb
					break
				}
			}
			if notebook == nil {
				return fmt.Errorf("no notebook named %q", notebookName)
			}
		}

		now := nowMillis()
		n := &types.Note{
			LocalUID:              types.NewLocalUID(),
			NotebookLocalUID:      notebook.LocalUID,
			Title:                 args[0],
			Content:               content,
			CreationTimestamp:     &now,
			ModificationTimestamp: &now,
			IsActive:              true,
			Local:                 true,
			Dirty:                 true,
		}
		if err := store.AddNote(ctx, n); err != nil {
			return err
		}
		fmt.Println(n.LocalUID)
		return nil
	},
}

func init() {
	notesListCmd.Flags().String("notebook", "", "only notes in this notebook")
	notesListCmd.Flags().Bool("include-deleted", false, "include soft-deleted notes")
	notesListCmd.Flags().String("created-since", "", "only notes created since, e.g. \"2 days ago\"")
	notesListCmd.Flags().Int("limit", 0, "maximum rows")
	notesListCmd.Flags().Int("offset", 0, "rows to skip")

	notesCreateCmd.Flags().String("notebook", "", "target notebook name (default: the default notebook)")
	notesCreateCmd.Flags().String("content", "", "note content (ENML)")

	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesCountCmd)
	notesCmd.AddCommand(notesShowCmd)
	notesCmd.AddCommand(notesCreateCmd)
}
