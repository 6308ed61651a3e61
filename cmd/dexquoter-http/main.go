// Command dexquoter-http serves the read-only HTTP surface (spec.md §6)
// as its own binary, mirroring original_source's two-binary split of a
// `dexquote` CLI and a separate `server` Rocket binary, and the teacher's
// own multi-binary cmd/{client,console} layout.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dexquoter/dexquoter/config"
	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/httpapi"
	"github.com/dexquoter/dexquoter/importer"
	v3calculator "github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator"
	"github.com/dexquoter/dexquoter/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	name := flag.String("name", "", "configuration name")
	checkpoint := flag.String("checkpoint", "", "checkpoint file to pre-seed the store from at startup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadByName(*name)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	st := store.NewMemStore()
	if *checkpoint != "" {
		f, err := os.Open(*checkpoint)
		if err != nil {
			logger.Error("failed to open checkpoint file", "error", err)
			os.Exit(1)
		}
		stats, err := importer.ImportCheckpoint(ctx, chainIDFromLabel(cfg.ChainLabel), st, f, logger, nil)
		f.Close()
		if err != nil {
			logger.Error("failed to import checkpoint", "error", err)
			os.Exit(1)
		}
		logger.Info("checkpoint loaded", "imported", stats.Imported, "skipped", stats.Skipped, "errored", stats.Errored)
	}

	srv := &httpapi.Server{
		Chain:     chainIDFromLabel(cfg.ChainLabel),
		Store:     st,
		Simulator: &v3calculator.Simulator{Store: st},
	}

	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("http server starting", "addr", addr)
	if err := srv.Router().Run(addr); err != nil {
		logger.Error("http server exited", "error", err)
		os.Exit(1)
	}
}

// chainIDFromLabel mirrors cmd/dexquoter's mapping from a config's
// chain_label to the numeric chain id the store is keyed by.
func chainIDFromLabel(label string) dexcommon.ChainID {
	switch label {
	case "ethereum-mainnet", "mainnet":
		return dexcommon.ChainID(1)
	case "arbitrum-mainnet", "arbitrum":
		return dexcommon.ChainID(42161)
	case "base-mainnet", "base":
		return dexcommon.ChainID(8453)
	default:
		return dexcommon.ChainID(0)
	}
}
