package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/database"
)

func migrateCommand() *cobra.Command {
	var dir string

	migrator := func() (database.Migrator, logger.Logger, error) {
		cfg, log, err := bootstrap()
		if err != nil {
			return database.Migrator{}, nil, err
		}
		return database.Migrator{DB: cfg.Database, Dir: dir, Log: log}, log, nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: migrations built into the binary)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				m, log, err := migrator()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				return m.Up()
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1 step)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				m, log, err := migrator()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				return m.Down(steps)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				m, log, err := migrator()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				c.Printf("version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}
