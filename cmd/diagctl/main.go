package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/diagctl/internal/admin"
	"github.com/danmuck/diagctl/internal/config"
	"github.com/danmuck/diagctl/internal/inspect"
	"github.com/danmuck/diagctl/internal/observability"
	"github.com/danmuck/diagctl/internal/router"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/diagctl/config.toml", "router config (toml or yaml)")
	snapshotPath := flag.String("snapshot", "", "append a CBOR router snapshot to this file on shutdown")
	flag.Parse()

	logger := observability.InitLogger("diagctl")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load router config")
	}
	log.Info().Str("path", *configPath).Str("name", cfg.Name).Msg("loaded router config")

	opts, store, err := cfg.RouterOptions(&logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router options")
	}
	log.Info().
		Uint8("log_status", uint8(store.LogMaskStatus())).
		Int("log_equip_ids", len(store.LogEquipIDs())).
		Uint8("msg_status", uint8(store.MsgMaskStatus())).
		Int("msg_ranges", len(store.MsgRanges())).
		Uint8("event_status", uint8(store.EventMaskStatus())).
		Msg("mask backend ready")
	rt := router.New(opts)
	for _, pc := range cfg.PeripheralConfigs() {
		if _, err := rt.AddPeripheral(pc); err != nil {
			log.Fatal().Err(err).Str("peripheral", pc.Name).Msg("failed to open peripheral")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := admin.New(cfg.Name, cfg.AdminAddr, rt, logger, cfg.CorsOrigins)
	log.Info().Str("id", server.ID).Str("addr", server.Addr).Int("peripherals", len(cfg.Peripherals)).Msg("diag router started")
	serveErr := server.Serve(ctx)

	if *snapshotPath != "" {
		if err := appendSnapshot(*snapshotPath, rt.Snapshot()); err != nil {
			log.Error().Err(err).Str("path", *snapshotPath).Msg("snapshot not written")
		} else {
			log.Info().Str("path", *snapshotPath).Msg("snapshot written")
		}
	}
	for _, p := range rt.Peripherals() {
		rt.ClosePeripheral(p)
	}
	if serveErr != nil {
		log.Fatal().Err(serveErr).Msg("diag router stopped")
	}
}

func appendSnapshot(path string, snap router.Snapshot) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	if err := inspect.NewEncoder(f).Encode(inspect.FromSnapshot(snap)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
