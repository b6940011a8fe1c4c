package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/odds-tracker-poc/internal/matches/value"
	"github.com/radieske/odds-tracker-poc/internal/shared/config"
	"github.com/radieske/odds-tracker-poc/internal/shared/db"
	skafka "github.com/radieske/odds-tracker-poc/internal/shared/kafka"
	"github.com/radieske/odds-tracker-poc/internal/shared/logger"
	"github.com/radieske/odds-tracker-poc/internal/shared/metrics"
	"github.com/radieske/odds-tracker-poc/internal/tracker/auth"
	thttp "github.com/radieske/odds-tracker-poc/internal/tracker/http"
	"github.com/radieske/odds-tracker-poc/internal/tracker/producer"
	"github.com/radieske/odds-tracker-poc/internal/tracker/store"
	"github.com/radieske/odds-tracker-poc/internal/tracker/tableservice"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// backend do bet record store, escolhido uma vez no boot
	var (
		backend  store.Store
		healthFn metrics.HealthFunc
	)
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("pg", zap.Error(err))
		}
		defer pg.Close()

		if cfg.DBInit {
			if err := store.MigrateUp(pg); err != nil {
				log.Fatal("migrate", zap.Error(err))
			}
		}

		backend = store.NewPostgres(pg)
		healthFn = func(ctx context.Context) error { return pg.PingContext(ctx) }

	case "widetable":
		tsc := tableservice.New(cfg.TableServiceEndpoint, cfg.TableServiceDatabase, cfg.TableServiceToken, log)
		if cfg.DBInit {
			if err := store.EnsureWideSchema(context.Background(), tsc); err != nil {
				log.Fatal("ensure wide schema", zap.Error(err))
			}
		}

		backend = store.NewWideTable(tsc)
		healthFn = func(ctx context.Context) error {
			_, err := tsc.Execute(ctx, "SELECT 1;", nil)
			return err
		}

	case "memory":
		log.Warn("using in-memory bet store; data is lost on restart")
		backend = store.NewMemory()
		healthFn = func(ctx context.Context) error { return nil }

	default:
		log.Fatal("unknown store backend", zap.String("backend", cfg.StoreBackend))
	}

	// retry exponencial só sobre falhas de conectividade
	repository := store.NewRetrying(backend, log)

	// eventos de tracking pro pipeline de analytics
	trackedWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetTracked)
	defer trackedWriter.Close()
	untrackedWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetUntracked)
	defer untrackedWriter.Close()
	publ := producer.NewKafkaPublisher(trackedWriter, untrackedWriter)

	var verifier auth.Verifier
	switch cfg.AuthMode {
	case "verify":
		verifier = auth.NewHTTPVerifier(cfg.AuthVerifyURL)
	default:
		log.Warn("auth em modo header (X-User-Id); só pra uso local")
		verifier = auth.HeaderVerifier{}
	}

	classifier := value.NewClassifier(value.Thresholds{
		Excellent: cfg.ProfitExcellent,
		Good:      cfg.ProfitGood,
		Fair:      cfg.ProfitFair,
	})

	api := thttp.NewServer(log, repository, verifier, publ, classifier)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	metrics.StartMetricsServer(cfg.MetricsPort, healthFn)
	log.Info("metrics/health", zap.String("addr", fmt.Sprintf(":%s", cfg.MetricsPort)))

	log.Info("tracker-service listening",
		zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)),
		zap.String("backend", cfg.StoreBackend),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
