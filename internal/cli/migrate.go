package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/afikmenashe/notification-inbox/internal/database"
)

// SchemaMigrator applies and reports schema migrations.
type SchemaMigrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, ok bool, err error)
	Close() error
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := rootOpts.Config

	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply, roll back or report the database schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PostgresDSN == "" {
				return fmt.Errorf("invalid configuration: postgres-dsn cannot be empty")
			}
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			m, err := database.NewMigrator(cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					slog.Warn("Failed to close migrator", "error", err)
				}
			}()
			return runMigration(m, direction, cmd.OutOrStdout())
		},
	}
}

func runMigration(m SchemaMigrator, direction string, w io.Writer) error {
	switch direction {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, ok, err := m.Version()
		if err != nil {
			return err
		}
		if !ok {
			_, err = fmt.Fprintln(w, "no migration applied")
			return err
		}
		_, err = fmt.Fprintf(w, "version %d (dirty=%t)\n", version, dirty)
		return err
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}
