package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/airship/params"
	"github.com/uhyunpark/airship/pkg/api"
	"github.com/uhyunpark/airship/pkg/chain"
	"github.com/uhyunpark/airship/pkg/keystore"
	"github.com/uhyunpark/airship/pkg/limitorder"
	"github.com/uhyunpark/airship/pkg/trade"
	"github.com/uhyunpark/airship/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("") // "" means load from .env in current directory
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Network ----
	conn, err := chain.Dial(ctx, chain.ConnectionConfig{
		Endpoint:       cfg.Network.RPCEndpoint,
		Commitment:     chain.Commitment(cfg.Network.Commitment),
		PollInterval:   cfg.Network.ConfirmPoll,
		ConfirmTimeout: cfg.Network.ConfirmTimeout,
	}, sugar.Named("chain"))
	if err != nil {
		sugar.Fatalw("rpc_dial_failed", "endpoint", cfg.Network.RPCEndpoint, "err", err)
	}
	defer conn.Close()

	// ---- Owner keys ----
	keys, err := keystore.Open(cfg.Keystore.Path, cfg.Keystore.Passphrase)
	if err != nil {
		sugar.Fatalw("keystore_open_failed", "path", cfg.Keystore.Path, "err", err)
	}
	defer keys.Close()

	if owners, err := keys.List(); err == nil {
		sugar.Infow("keystore_opened", "path", cfg.Keystore.Path, "owners", len(owners))
	}

	// ---- Limit-order API ----
	provider := limitorder.NewHTTPProvider(cfg.Network.LimitOrderAPI, cfg.Network.APITimeout, sugar.Named("limitorder"))
	trader := trade.NewTrader(provider, conn, keys, sugar.Named("trade"))

	// ---- API Server ----
	apiServer := api.NewServer(trader, conn, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TxLogPath:      cfg.Log.TxLogFile,
	}, sugar.Named("api"))
	defer apiServer.Close()

	sugar.Infow("node_starting",
		"addr", cfg.Addr(),
		"rpc_endpoint", cfg.Network.RPCEndpoint,
		"limit_order_api", cfg.Network.LimitOrderAPI,
		"commitment", cfg.Network.Commitment,
		"confirm_timeout_ms", cfg.Network.ConfirmTimeout.Milliseconds())

	if err := apiServer.Start(ctx, cfg.Addr()); err != nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Info("shutdown_complete")
}
