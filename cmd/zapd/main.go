package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	rootconfig "poolzap/config"
	"poolzap/core/events"
	"poolzap/native/amm"
	"poolzap/native/zap"
	"poolzap/observability/logging"
	telemetry "poolzap/observability/otel"
	"poolzap/services/zapd/config"
	"poolzap/services/zapd/server"
	"poolzap/services/zapd/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/zapd/config.yaml", "path to zapd configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("POOLZAP_ENV"))
	logger := logging.Setup("zapd", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "zapd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     otlpEndpoint != "",
		Traces:      otlpEndpoint != "",
	})
	if err != nil {
		log.Fatalf("zapd: init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("zapd: load config: %v", err)
	}

	dsn, err := storage.FileDSN(cfg.JournalPath)
	if err != nil {
		log.Fatalf("zapd: resolve journal DSN: %v", err)
	}
	store, err := storage.Open(dsn)
	if err != nil {
		log.Fatalf("zapd: open journal: %v", err)
	}
	defer store.Close()

	wrappedNative := mustAddress("network.wrapped_native", cfg.Network.WrappedNative)
	routerAddr := mustAddress("network.router", cfg.Network.Router)
	factoryAddr := mustAddress("network.factory", cfg.Network.Factory)
	engineAddr := mustAddress("network.engine", cfg.Network.Engine)
	ownerAddr := mustAddress("network.owner", cfg.Network.Owner)

	ledger := amm.NewTokenLedger()
	factory := amm.NewFactory(factoryAddr)
	sim := amm.NewRouter(routerAddr, wrappedNative, factory, ledger)

	for i, seed := range cfg.Seeds {
		token := mustAddress("seed token", seed.Token)
		account := mustAddress("seed account", seed.Account)
		amount, err := config.ParseAmount(seed.Amount)
		if err != nil {
			log.Fatalf("zapd: seeds[%d]: %v", i, err)
		}
		ledger.Mint(token, account, amount)
	}

	engine, err := zap.NewEngine(sim, ledger, engineAddr, ownerAddr)
	if err != nil {
		log.Fatalf("zapd: build engine: %v", err)
	}
	engine.SetDeadlinePolicy(cfg.Deadline.Strict, cfg.Deadline.Grace.Duration)
	engine.SetSlippageFloorBps(cfg.SlippageBps)
	engine.SetEmitter(events.Tee{
		events.NewMemoryEmitter(0),
		storage.NewJournal(store, logger),
	})

	srv, err := server.New(server.Config{ListenAddress: cfg.ListenAddress}, engine, sim, store, logger)
	if err != nil {
		log.Fatalf("zapd: build server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("zapd listening", "address", cfg.ListenAddress)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("zapd: serve: %v", err)
	}
}

func mustAddress(field, raw string) [20]byte {
	addr, err := rootconfig.ParseAddress(raw)
	if err != nil {
		log.Fatalf("zapd: %s: %v", field, err)
	}
	return addr
}
