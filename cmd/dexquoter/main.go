// Command dexquoter is the CLI entrypoint for the quoter (spec.md §6):
// conf/checkpoint/import/sync/path/quote subcommands, each resolving its
// configuration via --name the way original_source/dexquote/src/main.rs's
// clap::Subcommand resolves confy::load(APP_NAME, name). Grounded on the
// teacher's cmd/client/main.go (slog JSON handler, signal.NotifyContext
// shutdown, prometheus.DefaultRegisterer) and cmd/console/main.go (styled
// section headers, flag-per-subcommand dispatch).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/dexquoter/dexquoter/config"
	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/graph"
	"github.com/dexquoter/dexquoter/importer"
	v2event "github.com/dexquoter/dexquoter/protocols/uniswapv2/event"
	v3calculator "github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator"
	v3event "github.com/dexquoter/dexquoter/protocols/uniswapv3/event"
	"github.com/dexquoter/dexquoter/store"
	"github.com/dexquoter/dexquoter/sync"
	"github.com/dexquoter/dexquoter/tokenmeta"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultHops and defaultLimit mirror original_source/server/src/path.rs's
// get_possible_paths(..., 1, 5, ...); quote's own default hop is set per
// subcommand below (original_source/server/src/quote.rs uses 2).
const (
	defaultPathHops  = 1
	defaultQuoteHops = 2
	defaultLimit     = 5
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if len(os.Args) < 2 {
		logger.Error("missing subcommand", "usage", "dexquoter {conf|checkpoint|import|sync|path|quote} [flags]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "conf":
		err = runConf(os.Args[2:], logger)
	case "checkpoint":
		err = runCheckpoint(os.Args[2:], logger)
	case "import":
		err = runImport(ctx, os.Args[2:], logger)
	case "sync":
		err = runSync(ctx, os.Args[2:], logger)
	case "path":
		err = runPath(ctx, os.Args[2:], logger)
	case "quote":
		err = runQuote(ctx, os.Args[2:], logger)
	default:
		logger.Error("unknown subcommand", "subcommand", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", "subcommand", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// runConf prints the resolved configuration for --name, the Go rendition
// of original_source's `dexquote conf --name <name>` subcommand.
func runConf(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("conf", flag.ExitOnError)
	name := fs.String("name", "", "configuration name (resolved under the OS config dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadByName(*name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// runCheckpoint writes a checkpoint of a freshly created, empty MemStore
// to --path (this repo's store is memory-only -- see DESIGN.md), so the
// file it produces holds no pool records. It does not read pool state from
// the chain node or from any other process's store.
func runCheckpoint(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("checkpoint", flag.ExitOnError)
	name := fs.String("name", "", "configuration name")
	path := fs.String("path", "", "checkpoint output file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadByName(*name)
	if err != nil {
		return err
	}
	chain := chainIDFromLabel(cfg.ChainLabel)

	st := store.NewMemStore()
	f, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("dexquoter: create checkpoint file: %w", err)
	}
	defer f.Close()
	return importer.WriteCheckpoint(context.Background(), chain, st, f)
}

// runImport loads a checkpoint file into the store, optionally handing off
// to a live sync afterwards via --sync (spec §6: "import --path P [--sync]").
func runImport(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("name", "", "configuration name")
	path := fs.String("path", "", "checkpoint input file path")
	thenSync := fs.Bool("sync", false, "start live sync after the import completes")
	threads := fs.Int("threads", 0, "worker thread count override (default: config threads)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadByName(*name)
	if err != nil {
		return err
	}
	chain := chainIDFromLabel(cfg.ChainLabel)
	registry := prometheus.DefaultRegisterer
	metrics := importer.NewMetrics(registry)

	if procMetrics, err := newProcessMetrics(registry); err == nil {
		go procMetrics.run(ctx, logger)
	} else {
		logger.Warn("process metrics disabled", "error", err)
	}

	st := store.NewMemStore()
	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("dexquoter: open checkpoint file: %w", err)
	}
	stats, err := importer.ImportCheckpoint(ctx, chain, st, f, logger, metrics)
	f.Close()
	if err != nil {
		return err
	}
	logger.Info("checkpoint import complete",
		"total", stats.Total, "imported", stats.Imported, "skipped", stats.Skipped, "errored", stats.Errored)

	if !*thenSync {
		return nil
	}
	if *threads > 0 {
		cfg.Threads = *threads
	}
	return runSyncWithStore(ctx, cfg, chain, st, logger)
}

// runSync pre-seeds an empty store from --checkpoint (this repo's store is
// memory-only, so a bare `sync` invocation would otherwise have nothing to
// watch -- see DESIGN.md's note on the MemStore-only C3 decision) and then
// runs the live sync coordinator until ctx is cancelled.
func runSync(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	name := fs.String("name", "", "configuration name")
	threads := fs.Int("threads", 0, "worker thread count override (default: config threads)")
	checkpoint := fs.String("checkpoint", "", "checkpoint file to pre-seed the store from before subscribing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadByName(*name)
	if err != nil {
		return err
	}
	if *threads > 0 {
		cfg.Threads = *threads
	}
	chain := chainIDFromLabel(cfg.ChainLabel)

	if procMetrics, err := newProcessMetrics(prometheus.DefaultRegisterer); err == nil {
		go procMetrics.run(ctx, logger)
	} else {
		logger.Warn("process metrics disabled", "error", err)
	}

	st := store.NewMemStore()
	if *checkpoint != "" {
		f, err := os.Open(*checkpoint)
		if err != nil {
			return fmt.Errorf("dexquoter: open checkpoint file: %w", err)
		}
		_, err = importer.ImportCheckpoint(ctx, chain, st, f, logger, nil)
		f.Close()
		if err != nil {
			return err
		}
	}
	return runSyncWithStore(ctx, cfg, chain, st, logger)
}

func runSyncWithStore(ctx context.Context, cfg *config.Config, chain dexcommon.ChainID, st store.Store, logger *slog.Logger) error {
	registry := prometheus.DefaultRegisterer
	syncMetrics := sync.NewMetrics(registry)

	subscriber := &sync.WSSubscriber{URL: cfg.WSRPCURL, Logger: logger}
	dispatcher := &sync.Dispatcher{
		V3:      &v3event.Reducer{Store: st},
		V2:      &v2event.Reducer{Store: st},
		Logger:  logger,
		Metrics: syncMetrics,
	}
	coordinator := &sync.Coordinator{
		Subscriber: subscriber,
		Dispatcher: dispatcher,
		Store:      st,
		Threads:    cfg.Threads,
		Logger:     logger,
	}
	logger.Info("live sync starting", "chain_label", cfg.ChainLabel, "threads", cfg.Threads)
	return coordinator.Run(ctx, chain)
}

// runPath enumerates swap paths between two tokens without pricing them
// (spec §6 GET /path, hop=1/limit=5 defaults per original_source's
// server/src/path.rs).
func runPath(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("path", flag.ExitOnError)
	name := fs.String("name", "", "configuration name")
	checkpoint := fs.String("checkpoint", "", "checkpoint file to pre-seed the store from")
	tokenIn := fs.String("token-in", "", "input token address")
	tokenOut := fs.String("token-out", "", "output token address")
	hop := fs.Int("hop", defaultPathHops, "maximum hop count")
	limit := fs.Int("path-result-limit", defaultLimit, "maximum number of routes returned")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, chain, err := loadStoreForQuery(ctx, *name, *checkpoint, logger)
	if err != nil {
		return err
	}

	in, out, err := parseTokenPair(*tokenIn, *tokenOut)
	if err != nil {
		return err
	}

	g, err := graph.NewGraph(ctx, chain, st, tokenmeta.NewCache())
	if err != nil {
		return err
	}
	routes := g.FindRoutes(in, out, *hop, *limit)

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(routesToJSON(routes))
}

// runQuote enumerates swap paths and simulates each one's output amount
// (spec §6 GET /quote, hop=2/limit=5 defaults per original_source's
// server/src/quote.rs), printed sorted descending by estimated output.
func runQuote(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	name := fs.String("name", "", "configuration name")
	checkpoint := fs.String("checkpoint", "", "checkpoint file to pre-seed the store from")
	tokenIn := fs.String("token-in", "", "input token address")
	tokenOut := fs.String("token-out", "", "output token address")
	amountIn := fs.String("amount-in", "", "input amount, base units")
	hop := fs.Int("hop", defaultQuoteHops, "maximum hop count")
	limit := fs.Int("path-result-limit", defaultLimit, "maximum number of routes returned")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, chain, err := loadStoreForQuery(ctx, *name, *checkpoint, logger)
	if err != nil {
		return err
	}

	in, out, err := parseTokenPair(*tokenIn, *tokenOut)
	if err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(*amountIn, 10)
	if !ok {
		return fmt.Errorf("dexquoter: invalid --amount-in %q", *amountIn)
	}

	g, err := graph.NewGraph(ctx, chain, st, tokenmeta.NewCache())
	if err != nil {
		return err
	}
	routes := g.FindRoutes(in, out, *hop, *limit)

	sim := &v3calculator.Simulator{Store: st}
	quoted := graph.QuoteRoutes(ctx, chain, sim, routes, amount)

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(quotedRoutesToJSON(quoted))
}

// loadStoreForQuery resolves --name, optionally pre-seeds a fresh MemStore
// from --checkpoint, and returns it ready for a read-only path/quote query.
func loadStoreForQuery(ctx context.Context, name, checkpoint string, logger *slog.Logger) (store.Store, dexcommon.ChainID, error) {
	cfg, err := config.LoadByName(name)
	if err != nil {
		return nil, 0, err
	}
	chain := chainIDFromLabel(cfg.ChainLabel)
	st := store.NewMemStore()
	if checkpoint != "" {
		f, err := os.Open(checkpoint)
		if err != nil {
			return nil, 0, fmt.Errorf("dexquoter: open checkpoint file: %w", err)
		}
		_, err = importer.ImportCheckpoint(ctx, chain, st, f, logger, nil)
		f.Close()
		if err != nil {
			return nil, 0, err
		}
	}
	return st, chain, nil
}

func parseTokenPair(tokenIn, tokenOut string) (dexcommon.Address, dexcommon.Address, error) {
	in, err := dexcommon.HexAddr(trimHexPrefix(tokenIn))
	if err != nil {
		return dexcommon.Address{}, dexcommon.Address{}, fmt.Errorf("dexquoter: invalid --token-in: %w", err)
	}
	out, err := dexcommon.HexAddr(trimHexPrefix(tokenOut))
	if err != nil {
		return dexcommon.Address{}, dexcommon.Address{}, fmt.Errorf("dexquoter: invalid --token-out: %w", err)
	}
	return in, out, nil
}

// trimHexPrefix strips an optional "0x"/"0X" prefix so CLI users can pass
// addresses the ordinary Ethereum way; dexcommon.HexAddr itself expects
// bare hex, matching the store's internal address_str convention.
func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// pathHop and pathRoute mirror spec §6's /path response shape: an array of
// arrays of {address, token_in, token_out}.
type pathHop struct {
	Address  string `json:"address"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
}

func routesToJSON(routes []graph.Route) [][]pathHop {
	out := make([][]pathHop, len(routes))
	for i, r := range routes {
		hops := make([]pathHop, len(r.Hops))
		for j, h := range r.Hops {
			hops[j] = pathHop{
				Address:  dexcommon.AddrHex(h.Pool.Address),
				TokenIn:  dexcommon.AddrHex(h.TokenIn),
				TokenOut: dexcommon.AddrHex(h.TokenOut),
			}
		}
		out[i] = hops
	}
	return out
}

// quotedRoute mirrors spec §6's /quote response shape: {path,
// estimated_amount_out} with the amount rendered as a decimal string, the
// Go analogue of original_source's Route struct.
type quotedRoute struct {
	Path               []pathHop `json:"path"`
	EstimatedAmountOut string    `json:"estimated_amount_out"`
}

func quotedRoutesToJSON(routes []graph.QuotedRoute) []quotedRoute {
	out := make([]quotedRoute, len(routes))
	for i, qr := range routes {
		hops := make([]pathHop, len(qr.Route.Hops))
		for j, h := range qr.Route.Hops {
			hops[j] = pathHop{
				Address:  dexcommon.AddrHex(h.Pool.Address),
				TokenIn:  dexcommon.AddrHex(h.TokenIn),
				TokenOut: dexcommon.AddrHex(h.TokenOut),
			}
		}
		out[i] = quotedRoute{Path: hops, EstimatedAmountOut: qr.EstimatedAmountOut.String()}
	}
	return out
}

// chainIDFromLabel maps a config's chain_label to the numeric chain id the
// store is keyed by. original_source's confy config embeds the chain id
// directly; this repo's config instead names a label (spec §6), so each
// supported label is mapped to its canonical EIP-155 id here.
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
