package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "github.com/TayoO/embedchain/src/infrastructure/job"
	"github.com/TayoO/embedchain/src/infrastructure/log"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingestion worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := log.NewWatermillLogger()

	db, err := openPostgres()
	if err != nil {
		return err
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildApp(ctx, db, nodeWorker)
	if err != nil {
		return err
	}

	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		logger,
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	minioService, err := newMinio()
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	jobRepo := jobctrl.NewPostgresJobRepository(db)
	if err := jobRepo.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate jobs: %w", err)
	}
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, logger, jobctrl.NewIngestTask(minioService, c.app))

	router.AddNoPublisherHandler(
		"job_processor",
		jobctrl.Topic,
		amqpSubscriber,
		jobService.ProcessJobMessage,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-errCh:
		return err
	}

	log.Info("Shutting down worker...")
	cancel()
	<-router.Running()
	log.Info("Router stopped")

	return nil
}
