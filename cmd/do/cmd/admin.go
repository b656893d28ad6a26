package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/adpanel/adpanel/internal/config"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func AdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin role",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "grant <email>",
		Short: "Give an account the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAdmin(cmd.Context(), args[0], true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <email>",
		Short: "Remove the admin role from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAdmin(cmd.Context(), args[0], false)
		},
	})

	return cmd
}

func setAdmin(ctx context.Context, email string, isAdmin bool) error {
	return withDB(ctx, func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
		store := repository.NewStore(database)

		user, err := store.Users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			return fmt.Errorf("failed to find %s: %w", email, err)
		}

		// The operator acts outside any account, so the self-revoke guard
		// does not apply.
		err = service.NewUserService(store).SetAdmin(ctx, "", user.ID, isAdmin)
		if err != nil {
			return err
		}

		fmt.Printf("%s is_admin=%t\n", user.Email, isAdmin)
		return nil
	})
}

func LinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Maintain playback links",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every expired link now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				links := service.NewLinkService(repository.NewStore(database), cfg.PlaybackURL, cfg.LinkTTL, cfg.LinkMaxAttempts)
				n, err := links.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("purged %d expired links\n", n)
				return nil
			})
		},
	})

	return cmd
}
