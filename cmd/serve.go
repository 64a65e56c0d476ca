/*
Copyright © 2024 Dean
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v2 "github.com/TayoO/embedchain/handler/http/v2"
	"github.com/TayoO/embedchain/src/core/embedder"
	jobctrl "github.com/TayoO/embedchain/src/infrastructure/job"
	"github.com/TayoO/embedchain/src/infrastructure/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `The serve command starts an HTTP server for adding data and querying it.
With postgres.enabled, data sources and chat history are persisted and file
uploads are queued for the worker.`,
	RunE: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, cleanup, err := buildLocalApp(ctx, nodeServe)
	if err != nil {
		return err
	}
	defer cleanup()

	checks := map[string]v2.HealthCheck{
		"vectordb": func(ctx context.Context) error {
			_, err := c.app.Count(ctx)
			return err
		},
	}
	if hc, ok := c.embedder.(embedder.HealthChecker); ok {
		checks["embedder"] = hc.Ping
	}

	var (
		uploads v2.Uploader
		jobs    v2.JobQueue
	)
	bucket := viper.GetString("minio.upload_bucket")
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
		}
		checks["postgres"] = sqlDB.PingContext

		minioService, err := newMinio()
		if err != nil {
			return err
		}
		if err := minioService.EnsureBucketExists(ctx, bucket); err != nil {
			return err
		}

		publisher, err := amqp.NewPublisher(
			amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
			log.NewWatermillLogger(),
		)
		if err != nil {
			return fmt.Errorf("failed to create amqp publisher: %w", err)
		}
		defer publisher.Close()

		jobRepo := jobctrl.NewPostgresJobRepository(c.db)
		if err := jobRepo.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate jobs: %w", err)
		}

		uploads = minioService
		jobs = jobctrl.NewJobService(publisher, jobRepo, log.NewWatermillLogger(), nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	v2.NewHandler(c.app, uploads, bucket, jobs, checks).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "addr", srv.Addr, "app_id", c.app.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}
	log.Info("Shutting down server...")

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
	return nil
}
