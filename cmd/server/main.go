package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"

	"arbengine/internal/bot"
	"arbengine/internal/config"
	"arbengine/internal/exchange"
	"arbengine/internal/models"
	"arbengine/internal/repository"
	"arbengine/pkg/retry"
	"arbengine/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Logging.Development,
	}).WithComponent("main")

	db, err := initDatabase(cfg)
	if err != nil {
		log.Error("failed to connect to database", utils.Err(err))
		os.Exit(1)
	}
	defer db.Close()
	log.Info("connected to database")

	traceRepo := repository.NewTraceRepository(db)
	pairRepo := repository.NewPairRepository(db)

	if len(cfg.Pairs) == 0 {
		log.Warn("no pairs configured, process will idle serving only /healthz and /metrics")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	runtimes := newRuntimeRegistry()

	for _, pairCfg := range cfg.Pairs {
		if pairCfg.Status == models.PairStatusPaused {
			log.Info("skipping paused pair", utils.String("bot_id", pairCfg.BotID()))
			continue
		}
		if err := persistPairIfNew(pairRepo, pairCfg); err != nil {
			log.Error("failed to persist pair", utils.String("bot_id", pairCfg.BotID()), utils.Err(err))
			continue
		}

		adapterV1 := newReferenceAdapter(cfg.Venues.V1, pairCfg.SymV1, string(models.VenueV1), cfg.Engine)
		adapterV2 := newReferenceAdapter(cfg.Venues.V2, pairCfg.SymV2, string(models.VenueV2), cfg.Engine)

		minNotional := adapterV1.Metadata().MinNotional
		if v2 := adapterV2.Metadata().MinNotional; v2 > minNotional {
			minNotional = v2
		}
		if pairCfg.MaxTradeValue != nil && *pairCfg.MaxTradeValue < minNotional {
			err := &config.ConfigError{
				Field:  "max_trade_value",
				Reason: fmt.Sprintf("%.8f is below venue min_notional %.8f, trading would never clear the exchange minimum", *pairCfg.MaxTradeValue, minNotional),
			}
			log.Error("pair failed min_notional check", utils.String("bot_id", pairCfg.BotID()), utils.Err(err))
			os.Exit(1)
		}

		pairCfg := pairCfg
		engineCfg := bot.EngineConfig{TickInterval: cfg.Engine.TickInterval}
		newEngine := func() *bot.Engine {
			return bot.NewEngine(pairCfg, adapterV1, adapterV2, traceRepo, engineCfg)
		}
		supervisor := bot.NewSupervisor(pairCfg, newEngine)
		runtimes.register(pairCfg, supervisor)

		wg.Add(1)
		go func() {
			defer wg.Done()
			supervisor.Run(ctx)
		}()
	}

	srv := newHTTPServer(cfg, runtimes)
	go func() {
		log.Info("http server listening", utils.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", utils.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced shutdown", utils.Err(err))
	}

	log.Info("exited cleanly")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Name, cfg.Database.SSLMode,
	)
	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// newReferenceAdapter substitutes symbol into the role's URL templates
// and builds the adapter instance for one venue leg of one pair.
func newReferenceAdapter(conn config.VenueConnConfig, symbol, name string, ec config.EngineConfig) *exchange.ReferenceAdapter {
	sub := func(tmpl string) string { return strings.ReplaceAll(tmpl, "{symbol}", symbol) }
	return exchange.NewReferenceAdapter(exchange.ReferenceAdapterConfig{
		Name:             name + ":" + symbol,
		OBStreamURL:      sub(conn.OBStreamURL),
		AccountStreamURL: sub(conn.AccountStreamURL),
		RESTBaseURL:      sub(conn.RESTBaseURL),
		Metadata: exchange.VenueMetadata{
			MinSize:     conn.MinSize,
			MinNotional: conn.MinNotional,
			SizeStep:    conn.SizeStep,
			PriceStep:   conn.PriceStep,
		},
		RateLimit: conn.RateLimit,
		RateBurst: conn.RateBurst,
		Reconnect: exchange.WSReconnectConfig{
			RetryConfig:    retry.NetworkConfig(),
			ConnectTimeout: ec.OrderTimeout,
			PingInterval:   ec.WSPingInterval,
			PongTimeout:    ec.WSReadTimeout,
		},
	})
}

func persistPairIfNew(repo *repository.PairRepository, p models.PairConfig) error {
	if p.ID != 0 {
		return nil
	}
	return repo.Create(&p)
}

// runtimeRegistry records the configuration of every started pair; the
// /healthz handler reports how many are registered. It holds no live
// AEE state.
type runtimeRegistry struct {
	mu    sync.Mutex
	pairs map[int]models.PairConfig
}

func newRuntimeRegistry() *runtimeRegistry {
	return &runtimeRegistry{pairs: make(map[int]models.PairConfig)}
}

func (r *runtimeRegistry) register(cfg models.PairConfig, _ *bot.Supervisor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[cfg.ID] = cfg
}

func (r *runtimeRegistry) botIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pairs))
	for _, p := range r.pairs {
		ids = append(ids, p.BotID())
	}
	return ids
}

func newHTTPServer(cfg *config.Config, runtimes *runtimeRegistry) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","pairs":%d}`, len(runtimes.botIDs()))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
