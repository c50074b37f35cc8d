package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

func newPromoteCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant admin rights to an existing account",
		Long:  "Grant admin rights to an existing account. Use it to create the first admin, who can then manage roles from the web.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			authService := service.NewAuthService(*cfg, service.AuthDependencies{
				UserRepo: repository.NewUserRepository(pg.PoolHandle()),
				Logger:   logger,
			})
			user, err := authService.Promote(cmd.Context(), username)
			if err != nil {
				return fmt.Errorf("promote %s: %w", username, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account to promote")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
