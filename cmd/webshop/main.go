package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talkincode/webshop/config"
	"github.com/talkincode/webshop/internal/adminapi"
	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/shopapi"
	"github.com/talkincode/webshop/internal/webserver"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:          "webshop",
		Short:        "WebShop storefront and back-office server",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background jobs",
		RunE:  runServe,
	})
	root.AddCommand(createAdminCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadApp() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		return nil, err
	}
	return application, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, err := loadApp()
	if err != nil {
		return err
	}
	defer application.Release()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	webserver.Init(application)
	adminapi.Init()
	shopapi.Init()
	application.StartBackgroundJobs(ctx)

	if err := webserver.Listen(ctx); err != nil {
		zap.S().Errorf("web server error: %v", err)
		return err
	}
	return nil
}

func createAdminCmd() *cobra.Command {
	var email, password, fullName string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Usage: webshop create-admin --email <email> --password <password> [--fullName <name>]")
				return nil
			}
			application, err := loadApp()
			if err != nil {
				return err
			}
			defer application.Release()

			created, err := application.EnsureAdmin(context.Background(), email, password, fullName)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Admin user %s created successfully.\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "User %s already exists.\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&fullName, "fullName", "Admin User", "admin full name")
	return cmd
}
