package main

import (
	"encoding/csv"
	"runtime"
	"strconv"

	"github.com/juju/errors"
)

type BenchResult struct {
	Name      string
	Config    string
	Operation string
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
	// Page I/O counters of the index file; zero for the LSM baseline.
	Reads, Writes, Appends uint32
}

var csvHeader = []string{"Structure", "Config", "TestType", "LatencyNs", "MemMB", "HeapObjects", "Reads", "Writes", "Appends"}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// GetDetailedMem forces a GC so only live data is measured.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

// Record writes one result row.
func Record(w *csv.Writer, res BenchResult) error {
	return errors.Trace(w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
		strconv.FormatUint(uint64(res.Reads), 10),
		strconv.FormatUint(uint64(res.Writes), 10),
		strconv.FormatUint(uint64(res.Appends), 10),
	}))
}
