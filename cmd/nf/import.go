package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/notefold/notefold/internal/types"
)

// seedFile is the YAML shape `nf import` accepts: a declarative set of
// notebooks, tags and saved searches to create in the account.
type seedFile struct {
	Notebooks []struct {
		Name    string `yaml:"name"`
		Stack   string `yaml:"stack"`
		Default bool   `yaml:"default"`
	} `yaml:"notebooks"`
	Tags []struct {
		Name string `yaml:"name"`
	} `yaml:"tags"`
	Searches []struct {
		Name  string `yaml:"name"`
		Query string `yaml:"query"`
	} `yaml:"searches"`
}

var importCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Create notebooks, tags and saved searches from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var seed seedFile
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		created := 0
		now := nowMillis()
		for _, entry := range seed.Notebooks {
			nb := &types.Notebook{
				LocalUID:              types.NewLocalUID(),
				Name:                  entry.Name,
				IsDefault:             entry.Default,
				CreationTimestamp:     &now,
				ModificationTimestamp: &now,
				Local:                 true,
				Dirty:                 true,
			}
			if entry.Stack != "" {
				nb.Stack = &entry.Stack
			}
			if err := store.AddNotebook(ctx, nb); err != nil {
				return fmt.Errorf("notebook %q: %w", entry.Name, err)
			}
			created++
		}
		for _, entry := range seed.Tags {
			tag := &types.Tag{LocalUID: types.NewLocalUID(), Name: entry.Name, Local: true, Dirty: true}
			if err := store.AddTag(ctx, tag); err != nil {
				return fmt.Errorf("tag %q: %w", entry.Name, err)
			}
			created++
		}
		for _, entry := range seed.Searches {
			search := &types.SavedSearch{
				LocalUID:       types.NewLocalUID(),
				Name:           entry.Name,
				Query:          entry.Query,
				Format:         types.Ptr(types.QueryFormatUser),
				IncludeAccount: true,
				Local:          true,
				Dirty:          true,
			}
			if err := store.AddSavedSearch(ctx, search); err != nil {
				return fmt.Errorf("search %q: %w", entry.Name, err)
			}
			created++
		}
		fmt.Printf("created %d entities\n", created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
