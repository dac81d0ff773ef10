package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"orlandiv/internal/backend"
	"orlandiv/internal/config"
	"orlandiv/internal/database"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create_admin",
		Short: "Create an admin account for the local backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Backend.Driver != config.DriverLocal {
				return fmt.Errorf("admin accounts are managed by the hosted project when BACKEND_DRIVER=%s", cfg.Backend.Driver)
			}

			if err := database.Init(&cfg.Database); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			local := backend.NewLocal(database.GetDB(), backend.LocalOptions{
				Secret:    cfg.Auth.SecretKey,
				TokenTTL:  cfg.Auth.TokenExpiry(),
				UploadDir: cfg.Upload.Dir,
			})
			user, err := local.CreateUser(context.Background(), email, password, name)
			if err != nil {
				return err
			}

			log.Infof("Admin user created: %s", user.Email)
			fmt.Println("Please change the password after first login!")
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Admin email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password")
	cmd.Flags().StringVarP(&name, "name", "n", "Site Administrator", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
