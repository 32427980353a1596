package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/config"
	"github.com/extracto-dev/extracto/internal/store"
)

func newInitCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new extracto ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(cmd.Context(), absDir, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized extracto ledger at %s for user %s\n", absDir, user)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "ledger owner id (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runInit(ctx context.Context, dir, user string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default(user)
	cfg.Root = dir

	// Create directory structure.
	dirs := []string{
		cfg.DataDir(),
		filepath.Join(cfg.DataDir(), "logs"),
		cfg.InboxPath(),
		filepath.Join(cfg.InboxPath(), "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Create the database at the current schema version.
	st, err := store.Open(ctx, cfg.DBPath())
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	gitignore := "data/\ninbox/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
