// Package importer implements the bulk importer (C9, spec.md §4.9):
// checkpoint ingestion and V3 subgraph ingestion, both skip-if-present,
// counting and continuing past per-pool errors rather than aborting.
//
// The checkpoint file format is this repo's own invention (spec.md §9:
// "the only contract is the importer yields a stream of {PoolKind, full
// state} records"): newline-delimited JSON, one record per line, each a
// {address, fields} pair where fields is exactly the map
// store.PoolFields/store.PoolFromFields already use as the store's own
// wire contract (store/codec.go) -- grounded on the teacher's
// checkpoint-free JSON-state style (engine.State) rather than
// original_source's binary cfmms format, which is an external library's
// on-disk format this repo does not reproduce.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/logging"
	"github.com/dexquoter/dexquoter/store"
)

// CheckpointRecord is one line of a checkpoint file.
type CheckpointRecord struct {
	Address string            `json:"address"`
	Fields  map[string]string `json:"fields"`
}

// Stats tallies an import run (spec §4.9: "progress is reported
// out-of-band... import continues past per-pool errors with a counter").
type Stats struct {
	Total    int
	Imported int
	Skipped  int
	Errored  int
}

// WriteCheckpoint dumps every V2 and V3 pool in the store to w, one JSON
// record per line, in the encoding store.PoolFields already defines.
func WriteCheckpoint(ctx context.Context, chain dexcommon.ChainID, st store.Store, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, kind := range []dexcommon.PoolKind{dexcommon.PoolKindV2, dexcommon.PoolKindV3} {
		addrs, err := st.ListPools(ctx, chain, kind)
		if err != nil {
			return fmt.Errorf("importer: list %s pools: %w", kind, err)
		}
		for _, addr := range addrs {
			pool, ok, err := st.GetPool(ctx, chain, addr)
			if err != nil {
				return fmt.Errorf("importer: get pool %s: %w", dexcommon.AddrHex(addr), err)
			}
			if !ok {
				continue
			}
			rec := CheckpointRecord{Address: dexcommon.AddrHex(addr), Fields: store.PoolFields(pool)}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("importer: encode checkpoint record: %w", err)
			}
		}
	}
	return nil
}

// ImportCheckpoint reads r line by line and, for each record: skips if
// the pool is already present in the store, else decodes and writes it
// (spec §4.9). A malformed line or a store failure on a single record
// increments Errored and moves on -- only an I/O error reading r itself
// aborts the whole run.
func ImportCheckpoint(ctx context.Context, chain dexcommon.ChainID, st store.Store, r io.Reader, log logging.Logger, metrics *Metrics) (Stats, error) {
	if log == nil {
		log = logging.Nop{}
	}
	const source = "checkpoint"
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var rec CheckpointRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: malformed checkpoint record", "error", err)
			continue
		}
		addrBytes, err := dexcommon.HexAddr(rec.Address)
		if err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: malformed checkpoint address", "address", rec.Address, "error", err)
			continue
		}

		if _, ok, err := st.GetPool(ctx, chain, addrBytes); err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: store read failed", "address", rec.Address, "error", err)
			continue
		} else if ok {
			stats.Skipped++
			metrics.record(source, "skipped")
			continue
		}

		pool, err := store.PoolFromFields(addrBytes, rec.Fields)
		if err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: invalid checkpoint fields", "address", rec.Address, "error", err)
			continue
		}
		if err := st.PutPool(ctx, chain, pool); err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: store write failed", "address", rec.Address, "error", err)
			continue
		}
		stats.Imported++
		metrics.record(source, "imported")
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("importer: read checkpoint: %w", err)
	}
	log.Info("importer: checkpoint import complete",
		"total", stats.Total, "imported", stats.Imported, "skipped", stats.Skipped, "errored", stats.Errored)
	return stats, nil
}
