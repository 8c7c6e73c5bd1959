// Package cli holds the collegectl maintenance commands: schema migration,
// sample data and account cleanup.
package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/pkg/config"
	"github.com/noah-isme/college-hub-api/pkg/database"
	"github.com/noah-isme/college-hub-api/pkg/logger"
)

// NewRootCommand assembles collegectl and its subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "collegectl",
		Short:         "College Hub maintenance tool",
		Long:          "Runs database migrations, seeds sample data and clears accounts for the College Hub API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSeedCommand())
	root.AddCommand(newClearUsersCommand())
	return root
}

// Execute runs collegectl against ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func (r *runtime) close() {
	_ = r.logger.Sync()
	_ = r.db.Close()
}

func bootstrap() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &runtime{cfg: cfg, logger: logr, db: db}, nil
}
