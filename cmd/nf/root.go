package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/notefold/notefold/internal/config"
	"github.com/notefold/notefold/internal/logging"
	"github.com/notefold/notefold/internal/storage/sqlite"
)

var (
	flagDataRoot string
	flagUser     string
	flagUserID   int32
	flagFresh    bool
)

var rootCmd = &cobra.Command{
	Use:           "nf",
	Short:         "Local note storage inspector",
	Long:          "nf opens a notefold account database and lists, counts and creates notebooks, notes, tags and saved searches.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		if flagDataRoot != "" {
			config.Set("data-root", flagDataRoot)
		}
		if flagUser != "" {
			config.Set("user", flagUser)
		}
		if flagUserID != 0 {
			config.Set("user-id", int(flagUserID))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataRoot, "data-root", "", "application data root (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "account username")
	rootCmd.PersistentFlags().Int32Var(&flagUserID, "user-id", 0, "account user id")
	rootCmd.PersistentFlags().BoolVar(&flagFresh, "start-from-scratch", false, "truncate the account database before opening")

	rootCmd.AddCommand(notebooksCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(searchesCmd)
}

// openStore opens the configured account's database for one command run.
func openStore(ctx context.Context) (*sqlite.LocalStorage, error) {
	username := config.Username()
	userID := config.UserID()
	if username == "" || userID == 0 {
		return nil, fmt.Errorf("an account is required: pass --user and --user-id or set them in config")
	}
	log := logging.New(logging.Options{
		FilePath:   config.LogFile(),
		Level:      config.LogLevel(),
		MaxSizeMB:  config.LogMaxSizeMB(),
		MaxBackups: config.LogMaxBackups(),
		MaxAgeDays: config.LogMaxAgeDays(),
	})
	slog.SetDefault(log)

	store := sqlite.New(config.DataRoot(), log)
	if err := store.SwitchUser(ctx, username, userID, flagFresh); err != nil {
		return nil, err
	}
	return store, nil
}

// parseWhen turns a natural or relative date ("2 days ago", "yesterday")
// into unix milliseconds.
func parseWhen(expr string) (int64, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	result, err := w.Parse(expr, time.Now())
	if err != nil {
		return 0, err
	}
	if result == nil {
		return 0, fmt.Errorf("cannot parse time expression %q", expr)
	}
	return result.Time.UnixMilli(), nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	flagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func printHeader(text string) {
	fmt.Println(headerStyle.Render(text))
}

func formatTimestamp(millis *int64) string {
	if millis == nil {
		return dimStyle.Render("-")
	}
	return time.UnixMilli(*millis).Format("2006-01-02 15:04")
}

func formatFlags(dirty, local, favorited bool) string {
	flags := ""
	if dirty {
		flags += "d"
	}
	if local {
		flags += "l"
	}
	if favorited {
		flags += "*"
	}
	if flags == "" {
		return dimStyle.Render("-")
	}
	return flagStyle.Render(flags)
}
