// doc-flow/cmd/server/main.go
package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/internal/handlers"
	"github.com/colaisr/doc-flow/internal/routes"
	"github.com/colaisr/doc-flow/internal/services"
	"github.com/colaisr/doc-flow/models"
)

func main() {
	root := &cobra.Command{
		Use:   "doc-flow",
		Short: "CRM document generation and e-signature service",
	}
	root.AddCommand(serveCmd(), migrateCmd())
	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			config.ConnectDB()
			config.ConnectRedis()
			services.SetStageNames(config.App.StageNames)

			go handlers.GlobalHub.Run()

			r := gin.Default()
			r.MaxMultipartMemory = 32 << 20
			routes.SetupRoutes(r)

			slog.Info("Starting server", "addr", config.App.ListenAddr)
			return r.Run(config.App.ListenAddr)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and seed the default stage pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			config.ConnectDB()
			if err := config.DB.AutoMigrate(
				&models.Organization{},
				&models.User{},
				&models.LeadStage{},
				&models.LeadStageHistory{},
				&models.Lead{},
				&models.DocumentTemplate{},
				&models.Document{},
				&models.DocumentSignature{},
				&models.SigningLink{},
			); err != nil {
				return err
			}
			if err := services.SeedDefaultStages(config.DB); err != nil {
				return err
			}
			slog.Info("Migration complete")
			return nil
		},
	}
}
