package cli

import (
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/noah-isme/college-hub-api/db"
)

var migrateCommands = map[string]bool{
	"up":        true,
	"up-by-one": true,
	"down":      true,
	"redo":      true,
	"reset":     true,
	"status":    true,
	"version":   true,
}

func newMigrateCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate [up|up-by-one|down|redo|reset|status|version]",
		Short: "Apply database migrations",
		Long:  "Runs goose against the embedded migrations, or against --dir when set.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if !migrateCommands[command] {
				return fmt.Errorf("unknown migrate command %q", command)
			}

			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.close()

			if dir == "" {
				dir = rt.cfg.Database.MigrationsDir
			}
			if dir != "" {
				goose.SetBaseFS(os.DirFS(dir))
				dir = "."
			} else {
				goose.SetBaseFS(db.Migrations)
				dir = db.MigrationsDir
			}
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			goose.SetTableName("schema_migrations")

			rt.logger.Info("running migrations")
			if err := goose.RunContext(cmd.Context(), command, rt.db.DB, dir); err != nil {
				return fmt.Errorf("goose %s: %w", command, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "read migrations from this directory instead of the embedded set")
	return cmd
}
