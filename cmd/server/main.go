package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"github.com/shanyukollipara/clips-ai/internal/infra/apify"
	"github.com/shanyukollipara/clips-ai/internal/infra/config"
	"github.com/shanyukollipara/clips-ai/internal/infra/email"
	"github.com/shanyukollipara/clips-ai/internal/infra/ffmpeg"
	"github.com/shanyukollipara/clips-ai/internal/infra/gemini"
	"github.com/shanyukollipara/clips-ai/internal/infra/httpapi"
	"github.com/shanyukollipara/clips-ai/internal/infra/metrics"
	miniostorage "github.com/shanyukollipara/clips-ai/internal/infra/minio"
	"github.com/shanyukollipara/clips-ai/internal/infra/postgres"
	"github.com/shanyukollipara/clips-ai/internal/infra/rabbitmq"
	"github.com/shanyukollipara/clips-ai/internal/infra/tracing"
	"github.com/shanyukollipara/clips-ai/internal/infra/ytdlp"
	"github.com/shanyukollipara/clips-ai/internal/usecase"
	"github.com/shanyukollipara/clips-ai/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting clips-ai")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.Config{
		Endpoint:    cfg.JaegerEndpoint,
		ServiceName: cfg.TracingServiceName,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// Blob storage is optional; without it clips stay on local disk.
	var storage port.BlobStore
	if cfg.MinIOEnabled {
		ms, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:   cfg.MinIOEndpoint,
			AccessKey:  cfg.MinIOAccessKey,
			SecretKey:  cfg.MinIOSecretKey,
			UseSSL:     cfg.MinIOUseSSL,
			ClipBucket: cfg.MinIOClipBucket,
		})
		fatalOnErr(err, "create minio storage")
		fatalOnErr(ms.EnsureBucket(ctx), "ensure clip bucket")
		storage = ms
	} else {
		log.Info("blob storage disabled, clips will be served from local disk",
			zap.String("clips_dir", cfg.ClipsDir))
	}

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	requestPub := rabbitmq.NewRequestPublisher(pub)
	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewRepository(pool)
	transcripts := apify.New(apify.Config{
		Token:          cfg.ApifyToken,
		ActorID:        cfg.ApifyActorID,
		BaseURL:        cfg.ApifyBaseURL,
		TimeoutSeconds: cfg.ApifyTimeoutSeconds,
	}, log)
	analyzer := gemini.New(gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		BaseURL:        cfg.GeminiBaseURL,
		TimeoutSeconds: cfg.GeminiTimeoutSeconds,
		MaxMoments:     cfg.AnalyzerMaxMoments,
	}, log)
	fetcher := ytdlp.New(ytdlp.Config{
		BinPath:        cfg.YtDlpPath,
		QualityCeiling: cfg.DownloadQualityCeiling,
		TimeoutSeconds: cfg.DownloadTimeoutSeconds,
	}, log)
	extractor := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:           cfg.FFmpegPath,
		FFprobePath:          cfg.FFprobePath,
		EncodeTimeoutSeconds: cfg.EncodeTimeoutSeconds,
		ProbeTimeoutSeconds:  cfg.ProbeTimeoutSeconds,
	}, log)

	var notifier port.FailureNotifier
	if cfg.FailureNotifyEmail != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.FailureNotifyEmail, log)
	}

	// Use case
	uc := usecase.NewProcessClipsUseCase(
		repo, transcripts, analyzer, fetcher, extractor,
		storage, statusPub, dlqPub, notifier,
		log,
		usecase.ProcessClipsConfig{
			TempDir:  cfg.TempDir,
			ClipsDir: cfg.ClipsDir,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:          cfg.RabbitMQURL,
		RequestQueue: cfg.RabbitMQRequestQueue,
		StatusQueue:  cfg.RabbitMQStatusQueue,
		DLQ:          cfg.RabbitMQDLQ,
		Exchange:     cfg.RabbitMQExchange,
		Prefetch:     cfg.RabbitMQPrefetch,
		WorkerCount:  cfg.WorkerCount,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// HTTP API
	handler := httpapi.NewHandler(repo, requestPub, storage, cfg.ClipsDir, log)
	app := httpapi.NewApp(handler)
	go func() {
		log.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("clips-ai started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)
	_ = app.ShutdownWithContext(shutdownCtx)

	consumer.Close()
	log.Info("clips-ai stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
