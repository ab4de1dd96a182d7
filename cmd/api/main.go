package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/config"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/audit"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/concept"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entity"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entityrelation"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/event"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/rawmemory"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/conflicts"
	"github.com/Iqvpi1024/dirsoul/pkg/database"
	"github.com/Iqvpi1024/dirsoul/pkg/events"
	"github.com/Iqvpi1024/dirsoul/pkg/export"
	"github.com/Iqvpi1024/dirsoul/pkg/extraction"
	"github.com/Iqvpi1024/dirsoul/pkg/gate"
	"github.com/Iqvpi1024/dirsoul/pkg/kafka"
	"github.com/Iqvpi1024/dirsoul/pkg/middleware"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/patterns"
	"github.com/Iqvpi1024/dirsoul/pkg/plugin"
	"github.com/Iqvpi1024/dirsoul/pkg/processor"
	"github.com/Iqvpi1024/dirsoul/pkg/redis"
	"github.com/Iqvpi1024/dirsoul/pkg/registry"
	"github.com/Iqvpi1024/dirsoul/pkg/resolver"
	conceptroute "github.com/Iqvpi1024/dirsoul/pkg/routes/concept"
	entityroute "github.com/Iqvpi1024/dirsoul/pkg/routes/entity"
	eventroute "github.com/Iqvpi1024/dirsoul/pkg/routes/event"
	exportroute "github.com/Iqvpi1024/dirsoul/pkg/routes/export"
	healthroute "github.com/Iqvpi1024/dirsoul/pkg/routes/health"
	memoryroute "github.com/Iqvpi1024/dirsoul/pkg/routes/memory"
	pluginroute "github.com/Iqvpi1024/dirsoul/pkg/routes/pluginapi"
	viewroute "github.com/Iqvpi1024/dirsoul/pkg/routes/view"
	"github.com/Iqvpi1024/dirsoul/pkg/startup"
	"github.com/Iqvpi1024/dirsoul/pkg/stats"
	"github.com/Iqvpi1024/dirsoul/pkg/sweeper"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("failed to create DI container")
		os.Exit(1)
	}

	app := &app{
		cfg:       cfg,
		logger:    logger,
		container: container,
	}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(app.postgres())
	boot.AddDependency(app.redis())
	boot.AddDependency(app.kafkaProducer())
	boot.AddDependency(app.services())
	boot.AddDependency(app.kafkaConsumer())
	boot.AddDependency(app.backgroundSweep())
	boot.AddDependency(app.httpServer())

	ctx := context.Background()
	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}

// newLogger wires ectologger onto a zap sink
func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	sugar := zapLogger.Sugar()

	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		fields := make([]any, 0, len(msg.Fields)*2)
		for k, v := range msg.Fields {
			fields = append(fields, k, v)
		}
		switch strings.ToLower(fmt.Sprintf("%v", msg.Level)) {
		case "debug":
			sugar.Debugw(msg.Message, fields...)
		case "warn", "warning":
			sugar.Warnw(msg.Message, fields...)
		case "error", "fatal", "panic":
			sugar.Errorw(msg.Message, fields...)
		default:
			sugar.Infow(msg.Message, fields...)
		}
	})
}

// app holds components shared between startup dependencies. Each dependency
// constructs its piece on Start, so a connection failure surfaces through the
// startup retry loop instead of crashing the process.
type app struct {
	cfg       *config.Config
	logger    ectologger.Logger
	container ectocontainer.DIContainer

	db        database.DB
	sqlxDB    *sqlx.DB
	cache     *redis.Client
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	pipeline  *processor.Processor
	sweep     *sweeper.Sweeper
	server    *echo.Echo
	consumers *plugin.Registry
}

// dependency adapts closures to the startup graph
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func (a *app) postgres() startup.StartupDependency {
	return &dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				a.cfg.DatabaseHost, a.cfg.DatabasePort, a.cfg.DatabaseUserName,
				a.cfg.DatabasePassword, a.cfg.DatabaseName, a.cfg.DatabaseSSLMode,
			)
			db, err := sqlx.ConnectContext(ctx, a.cfg.DatabaseDriver, dsn)
			if err != nil {
				return fmt.Errorf("failed to connect to postgres: %w", err)
			}
			db.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
			db.SetMaxIdleConns(a.cfg.DatabaseMaxIdleConns)
			db.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

			driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
			if err != nil {
				return fmt.Errorf("failed to create migration driver: %w", err)
			}
			migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
				MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
				Version:             uint(a.cfg.DatabaseMigrationVersion),
				Force:               a.cfg.DatabaseMigrationForce,
				AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(a.cfg.DatabaseName, driver); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			a.sqlxDB = db
			a.db = database.NewDatabaseInstance(db, a.logger)
			return ectoinject.RegisterInstance[database.DB](a.container, a.db)
		},
		stop: func(ctx context.Context) error {
			if a.sqlxDB == nil {
				return nil
			}
			return a.sqlxDB.Close()
		},
	}
}

func (a *app) redis() startup.StartupDependency {
	return &dependency{
		name: "redis",
		start: func(ctx context.Context) error {
			client, err := redis.NewClient(redis.Config{
				Host:     a.cfg.RedisHost,
				Port:     a.cfg.RedisPort,
				Password: a.cfg.RedisPassword,
				DB:       a.cfg.RedisDB,
			}, a.logger)
			if err != nil {
				return err
			}
			a.cache = client
			return ectoinject.RegisterInstance[*redis.Client](a.container, client)
		},
		stop: func(ctx context.Context) error {
			if a.cache == nil {
				return nil
			}
			return a.cache.Close()
		},
	}
}

func (a *app) kafkaProducer() startup.StartupDependency {
	return &dependency{
		name: "kafka-producer",
		start: func(ctx context.Context) error {
			a.producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      a.cfg.KafkaBrokers,
				Topic:        a.cfg.KafkaOutputTopic,
				BatchSize:    a.cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: a.cfg.KafkaRequiredAcks,
				Compression:  a.cfg.KafkaCompression,
			}, a.logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if a.producer == nil {
				return nil
			}
			return a.producer.Close()
		},
	}
}

// services builds the domain layer once its backing stores are up
func (a *app) services() startup.StartupDependency {
	return &dependency{
		name:      "services",
		dependsOn: []string{"postgres", "redis", "kafka-producer"},
		start: func(ctx context.Context) error {
			cfg := a.cfg
			logger := a.logger

			rawMemories := rawmemory.NewRepository(a.db, logger)
			eventStore := event.NewRepository(a.db, logger, cfg.DatabaseWriteRetryCount)
			entities := entity.NewRepository(a.db, logger)
			relations := entityrelation.NewRepository(a.db, logger)
			views := view.NewRepository(a.db, logger)
			concepts := concept.NewRepository(a.db, logger)
			audits := audit.NewRepository(a.db, logger)

			emitter := events.NewEmitter(a.producer, logger)

			entityResolver := resolver.New(entities, relations, logger, resolver.Config{
				FuzzyMatchThreshold:   cfg.FuzzyMatchThreshold,
				ContextMatchThreshold: cfg.ContextMatchThreshold,
				AttributeDecayDays:    cfg.AttributeDecayDays,
			})

			extractionService := extraction.NewService(
				extraction.NewSLMExtractor(extraction.SLMConfig{
					BaseURL: cfg.ExtractionBaseURL,
					APIKey:  cfg.ExtractionAPIKey,
					Model:   cfg.ExtractionModel,
					Timeout: cfg.ExtractionTimeout,
				}),
				extraction.NewRuleExtractor(),
				logger,
			)

			conflictDetector := conflicts.NewDetector(nil, nil)

			patternDetector := patterns.NewDetector(patterns.Config{
				LookbackDays:             cfg.PatternLookbackDays,
				FrequencyMinOccurrences:  cfg.FrequencyMinOccurrences,
				FrequencyDiscount:        cfg.FrequencyDiscount,
				PreferenceMinRatio:       cfg.PreferenceMinRatio,
				PreferenceMinOccurrences: cfg.PreferenceMinOccurrences,
			})

			promotionGate := gate.New(gate.Config{
				PromoteConfidence:  cfg.PromoteConfidence,
				PromoteMinAge:      cfg.PromoteMinAge,
				PromoteMinValidate: cfg.PromoteMinValidate,
				PromoteMaxCounter:  cfg.PromoteMaxCounter,
				RejectCounterRatio: cfg.RejectCounterRatio,
			})

			conceptRegistry := registry.New(concepts, views, emitter, logger)

			a.pipeline = processor.New(
				rawMemories, eventStore, views,
				entityResolver, extractionService, conflictDetector,
				emitter, logger,
			)

			statsService := stats.NewService(eventStore, entities, views, concepts, a.cache, cfg.AggregateTTL, logger)
			exportService := export.NewService(rawMemories, eventStore, entities, relations, views, concepts, audits, logger)

			locker := redis.NewLocker(a.cache, cfg.AppName)
			a.sweep = sweeper.New(
				eventStore, views, patternDetector, conflictDetector,
				promotionGate, conceptRegistry, emitter, locker, logger,
				sweeper.Config{
					Interval:     cfg.SweepInterval,
					LockTTL:      cfg.SweepLockTTL,
					UserBatch:    cfg.SweepUserBatch,
					TriggerCount: cfg.SweepTriggerCount,
					LookbackDays: cfg.PatternLookbackDays,
					ViewLifetime: cfg.ViewLifetime,
				},
			)

			consumers, err := plugin.NewRegistry(cfg.ConsumerGrants)
			if err != nil {
				return fmt.Errorf("failed to parse consumer grants: %w", err)
			}
			a.consumers = consumers

			registrations := []error{
				ectoinject.RegisterInstance[*rawmemory.Repository](a.container, rawMemories),
				ectoinject.RegisterInstance[*event.Repository](a.container, eventStore),
				ectoinject.RegisterInstance[*entity.Repository](a.container, entities),
				ectoinject.RegisterInstance[*entityrelation.Repository](a.container, relations),
				ectoinject.RegisterInstance[*view.Repository](a.container, views),
				ectoinject.RegisterInstance[*concept.Repository](a.container, concepts),
				ectoinject.RegisterInstance[*audit.Repository](a.container, audits),
				ectoinject.RegisterInstance[*events.Emitter](a.container, emitter),
				ectoinject.RegisterInstance[*processor.Processor](a.container, a.pipeline),
				ectoinject.RegisterInstance[*registry.Registry](a.container, conceptRegistry),
				ectoinject.RegisterInstance[*stats.Service](a.container, statsService),
				ectoinject.RegisterInstance[*export.Service](a.container, exportService),
				ectoinject.RegisterInstance[*pluginroute.ViewLifetime](a.container, &pluginroute.ViewLifetime{Lifetime: cfg.ViewLifetime}),
			}
			for _, err := range registrations {
				if err != nil {
					return fmt.Errorf("failed to register dependency: %w", err)
				}
			}
			return nil
		},
	}
}

func (a *app) kafkaConsumer() startup.StartupDependency {
	return &dependency{
		name:      "kafka-consumer",
		dependsOn: []string{"services"},
		start: func(ctx context.Context) error {
			if !a.cfg.KafkaConsumerEnabled {
				a.logger.Info("Kafka consumer disabled")
				return nil
			}
			a.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       a.cfg.KafkaBrokers,
				Topic:         a.cfg.KafkaInputTopic,
				ConsumerGroup: a.cfg.KafkaConsumerGroup,
			}, a.logger, a.handleIngestMessage)
			if err := ectoinject.RegisterInstance[*kafka.Consumer](a.container, a.consumer); err != nil {
				return err
			}
			return a.consumer.Start(ctx)
		},
		stop: func(ctx context.Context) error {
			if a.consumer == nil {
				return nil
			}
			return a.consumer.Stop()
		},
	}
}

// handleIngestMessage feeds async ingestion through the same pipeline as the
// HTTP route. The consumer does not commit on error, so transient store
// failures are retried by redelivery.
func (a *app) handleIngestMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	req := &models.IngestMemoryRequest{
		Content:     msg.Ingest.Content,
		ContentType: msg.Ingest.ContentType,
		Metadata:    msg.Ingest.Metadata,
		Timestamp:   msg.Ingest.Timestamp,
	}
	_, err := a.pipeline.Ingest(ctx, msg.Ingest.UserID, req)
	return err
}

func (a *app) backgroundSweep() startup.StartupDependency {
	return &dependency{
		name:      "sweeper",
		dependsOn: []string{"services"},
		start: func(ctx context.Context) error {
			return a.sweep.Start(ctx)
		},
		stop: func(ctx context.Context) error {
			return a.sweep.Stop()
		},
	}
}

func (a *app) httpServer() startup.StartupDependency {
	return &dependency{
		name:      "http-server",
		dependsOn: []string{"services"},
		start: func(ctx context.Context) error {
			e := echo.New()
			e.HideBanner = true
			e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
			e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
			e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second
			e.Server.ReadHeaderTimeout = time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second
			e.Server.MaxHeaderBytes = a.cfg.MaxHeaderBytes

			e.HTTPErrorHandler = middleware.Error(a.logger)
			e.Use(otelecho.Middleware(a.cfg.AppName))
			e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
				AllowOrigins: a.cfg.AllowOrigins,
				AllowMethods: a.cfg.AllowMethods,
			}))
			e.Use(middleware.Context())
			e.Use(middleware.Logger(a.logger))

			e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
			healthroute.Register(e.Group("/health"))

			v1 := e.Group("/api/v1")
			memoryroute.Register(v1.Group("/memories"))
			eventroute.Register(v1.Group("/events"))
			entityroute.Register(v1.Group("/entities"))
			viewroute.Register(v1.Group("/views"))
			conceptroute.Register(v1.Group("/concepts"))
			exportroute.Register(v1.Group("/export"))
			pluginroute.Register(v1.Group("/plugin"), a.consumers)

			a.server = e

			go func() {
				addr := fmt.Sprintf(":%d", a.cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					a.logger.WithError(err).Error("http server stopped")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if a.server == nil {
				return nil
			}
			return a.server.Shutdown(ctx)
		},
	}
}
