package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// runtime holds the shared resources a command needs.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func (r *runtime) close() {
	r.pg.Close()
	_ = r.logger.Sync()
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, pg: pg}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "helpdeskctl",
		Short:         "Administrative tasks for the IT helpdesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd(), newVersionCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if dir == "" {
				dir = rt.cfg.Postgres.MigrationsDir
			}
			applied, err := persistence.RunMigrations(cmd.Context(), rt.pg.Pool, dir, rt.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) from %s\n", applied, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}

type adminFlags struct {
	name     string
	email    string
	password string
}

func (f adminFlags) validate() error {
	var missing []string
	if f.name == "" {
		missing = append(missing, "--name")
	}
	if f.email == "" {
		missing = append(missing, "--email")
	}
	if f.password == "" {
		missing = append(missing, "--password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %v", missing)
	}
	return nil
}

func newCreateAdminCmd() *cobra.Command {
	var flags adminFlags
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		PreRunE: func(*cobra.Command, []string) error {
			return flags.validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			users := service.NewUserService(service.UserDependencies{
				UserRepo:   repository.NewUserRepository(rt.pg.Pool),
				BcryptCost: rt.cfg.Auth.BcryptCost,
				Logger:     rt.logger,
			})
			admin, err := users.CreateInitialAdmin(cmd.Context(), flags.name, flags.email, flags.password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "display name")
	cmd.Flags().StringVar(&flags.email, "email", "", "login email")
	cmd.Flags().StringVar(&flags.password, "password", "", "initial password")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the configured application version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.App.Name, cfg.App.Version)
			return nil
		},
	}
}

// describe renders field-level validation details on the command line.
func describe(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && len(domainErr.Details) > 0 {
		return fmt.Errorf("%s (%s): %v", domainErr.Message, domainErr.Code, domainErr.Details)
	}
	return err
}
