// @title           Fee Ledger API
// @version         1.0
// @description     School fee structures, installment ledgers, offline payments and receipts.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/fkhayef/feeledger/docs"
	"github.com/fkhayef/feeledger/internal/config"
	"github.com/fkhayef/feeledger/internal/database"
	"github.com/fkhayef/feeledger/internal/feequery"
	"github.com/fkhayef/feeledger/internal/feestructure"
	"github.com/fkhayef/feeledger/internal/installment"
	"github.com/fkhayef/feeledger/internal/ledger"
	"github.com/fkhayef/feeledger/internal/receipt"
	"github.com/fkhayef/feeledger/internal/student"
	"github.com/fkhayef/feeledger/pkg/logger"
	mw "github.com/fkhayef/feeledger/pkg/middleware"
	"github.com/fkhayef/feeledger/pkg/money"
	"github.com/fkhayef/feeledger/pkg/validate"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Storage
	var (
		db           *sqlx.DB
		ledgerStore  ledger.Store
		studentStore student.Store
		structStore  feestructure.Store
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err = database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		zlog.Info("Connected to database successfully")

		if cfg.MigrateOnStart {
			if err := database.Migrate(db, "up"); err != nil {
				zlog.Fatal("Failed to migrate database", zap.Error(err))
			}
		}

		ledgerStore = ledger.NewRepository(db)
		studentStore = student.NewRepository(db)
		structStore = feestructure.NewRepository(db)
	default:
		zlog.Warn("Using in-memory storage, data is lost on restart")
		ledgerStore = ledger.NewMemoryStore()
		studentStore = student.NewMemoryStore()
		structStore = feestructure.NewMemoryStore()
	}

	// Receipt numbering
	var sequencer receipt.Sequencer
	switch cfg.ReceiptSequencer {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			zlog.Fatal("Failed to connect to redis", zap.Error(err))
		}
		sequencer = receipt.NewRedisSequencer(client)
	case config.DriverPostgres:
		sequencer = receipt.NewPostgresSequencer(db)
	default:
		sequencer = receipt.NewMemorySequencer()
	}

	loc := cfg.Location()
	formatter := money.NewFormatter(cfg.Currency, cfg.CurrencyExponent)
	validator := validate.New()

	// Ledger and receipts
	issuer := receipt.NewIssuer(sequencer, loc, time.Now)
	ledgerService := ledger.NewService(ledgerStore, issuer, ledger.Options{
		MaxRetries: cfg.PaymentMaxRetries,
		Location:   loc,
		Formatter:  formatter,
		Logger:     zlog,
		Metrics:    ledger.NewPaymentMetrics(prometheus.DefaultRegisterer),
	})
	issuer.SetFinder(ledgerService)
	ledgerHandler := ledger.NewHandler(ledgerService, zlog)
	receiptHandler := receipt.NewHandler(issuer, zlog)

	// Roster
	studentService := student.NewService(studentStore, validator)
	studentHandler := student.NewHandler(studentService, zlog)

	// Fee structures (roster and ledger injected for apply)
	structureService := feestructure.NewService(structStore, studentService, ledgerService, validator, zlog)
	structureHandler := feestructure.NewHandler(structureService, zlog)

	installmentHandler := installment.NewHandler(time.Now)

	// Reports
	queryService := feequery.NewService(ledgerService, formatter, loc, time.Now)
	queryHandler := feequery.NewHandler(queryService, zlog)

	// School scope
	scope := mw.DevSchoolMiddleware
	if cfg.AuthMode == config.AuthJWT {
		scope = mw.NewAuthenticator(cfg.JWTSecret).Middleware
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(zlog))
	r.Use(middleware.Recoverer)
	r.Use(mw.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(scope)

		// Mount feature routers
		r.Mount("/fee-structures", structureHandler.Routes())
		r.Mount("/installments", installmentHandler.Routes())
		r.Mount("/fee-records", ledgerHandler.Routes())
		r.Mount("/receipts", receiptHandler.Routes())
		r.Mount("/reports", queryHandler.Routes())
		r.Mount("/students", studentHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver), zap.String("sequencer", cfg.ReceiptSequencer))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Graceful shutdown failed", zap.Error(err))
	}
	zlog.Info("Server stopped")
}
