// Command ixbench loads the B+ tree index on each page store backend, and the
// pebble LSM baseline, runs mixed workloads against them and writes the results
// as CSV and a latency plot. With -dot it also exports the file-backed tree as a
// Graphviz graph, and with -print as the nested JSON dump.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"github.com/lannywong2000/PeterDB/dbms/index"
	"github.com/lannywong2000/PeterDB/dbms/index/ix"
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
	"github.com/lannywong2000/PeterDB/dbms/index/lsm"
	"github.com/lannywong2000/PeterDB/logger"
)

type config struct {
	configPath string
	outDir     string
	n          int
	keyType    string
	seed       int64
	dot        bool
	print      bool
}

func main() {
	var c config
	flag.StringVar(&c.configPath, "config", "ix.ini", "ini file with [index] and [logs] sections")
	flag.StringVar(&c.outDir, "out", "results", "directory for index files, CSV and plots")
	flag.IntVar(&c.n, "n", 100000, "entries to load")
	flag.StringVar(&c.keyType, "keys", "int", "key type: int, float or varchar")
	flag.Int64Var(&c.seed, "seed", 1, "workload random seed")
	flag.BoolVar(&c.dot, "dot", false, "export the file-backed tree as Graphviz DOT")
	flag.BoolVar(&c.print, "print", false, "write the file-backed tree as nested JSON")
	flag.Parse()

	if err := run(c); err != nil {
		fmt.Fprintf(os.Stderr, "ixbench: %s\n", errors.ErrorStack(err))
		os.Exit(1)
	}
}

func parseKeyType(s string) (ixpage.KeyType, error) {
	for _, kt := range []ixpage.KeyType{ixpage.TypeInt, ixpage.TypeFloat, ixpage.TypeVarChar} {
		if kt.String() == s {
			return kt, nil
		}
	}
	return 0, errors.NotValidf("key type %q", s)
}

func run(c config) error {
	kt, err := parseKeyType(c.keyType)
	if err != nil {
		return err
	}
	if c.n < 2 {
		return errors.NotValidf("entry count %d", c.n)
	}
	opts, err := ix.LoadOptions(c.configPath)
	if err != nil {
		return err
	}
	log := logger.New(opts.LogLevel)
	opts.Logger = log

	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(filepath.Join(c.outDir, "ixbench.csv"))
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.Trace(err)
	}

	var results []BenchResult
	for _, backend := range []ix.Backend{ix.BackendFile, ix.BackendPebble} {
		bopts := opts
		bopts.Backend = backend
		m, err := ix.NewManager(bopts)
		if err != nil {
			return err
		}
		name := filepath.Join(c.outDir, fmt.Sprintf("bench-%s.idx", backend))
		if err := removeIndex(m, name); err != nil {
			return err
		}
		tree, err := ix.Open(m, name, kt)
		if err != nil {
			return err
		}
		rs, err := runSuite(log, "BPlusTree-"+string(backend), strconv.Itoa(bopts.PageSize), tree, kt, c)
		if err == nil && backend == ix.BackendFile {
			err = exportTree(m, tree.Handle(), kt, c)
		}
		if cerr := tree.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		results = append(results, rs...)
	}

	dir := filepath.Join(c.outDir, "bench-lsm")
	if err := os.RemoveAll(dir); err != nil {
		return errors.Trace(err)
	}
	l, err := lsm.Open(dir, kt)
	if err != nil {
		return err
	}
	rs, err := runSuite(log, "LSM-Pebble", "memtable=16MB", l, kt, c)
	if cerr := l.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	results = append(results, rs...)

	for _, r := range results {
		if err := Record(w, r); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Trace(err)
	}
	if err := plotLatency(results, filepath.Join(c.outDir, "latency.png")); err != nil {
		return err
	}
	log.Infof("benchmark complete, results in %s", c.outDir)
	return nil
}

// removeIndex clears the index left by an earlier run.
func removeIndex(m *ix.Manager, name string) error {
	if err := m.DestroyFile(name); err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

func runSuite(log *logrus.Logger, name, conf string, idx index.Index, kt ixpage.KeyType, c config) ([]BenchResult, error) {
	log.WithFields(logrus.Fields{"config": conf, "entries": c.n}).Infof("testing %s", name)
	g := newKeyGen(kt, c.n, c.seed)
	var out []BenchResult
	record := func(op string, start time.Time, ops int) {
		res := BenchResult{
			Name:      name,
			Config:    conf,
			Operation: op,
			LatencyNs: time.Since(start).Nanoseconds() / int64(ops),
		}
		stats := GetDetailedMem()
		res.MemMB, res.Objects = stats.AllocMB, stats.HeapObjects
		if t, ok := idx.(*ix.Tree); ok {
			res.Reads, res.Writes, res.Appends = t.Handle().CollectCounterValues()
		}
		out = append(out, res)
	}

	start := time.Now()
	loaded, err := Load(idx, g, c.n)
	if err != nil {
		return nil, err
	}
	record("Load", start, c.n)

	for _, wl := range []struct {
		typ WorkloadType
		ops int
	}{
		{OLTP, c.n / 2},
		{OLAP, c.n / 2},
		{Reporting, 100},
	} {
		start = time.Now()
		if err := ExecuteWorkload(idx, g, wl.typ, wl.ops); err != nil {
			return nil, err
		}
		record(string(wl.typ), start, wl.ops)
	}

	half := loaded[:len(loaded)/2]
	start = time.Now()
	if err := Delete(idx, half); err != nil {
		return nil, err
	}
	record(string(Cleanup), start, len(half))
	return out, nil
}

// exportTree writes the DOT and JSON renderings requested on the command line.
func exportTree(m *ix.Manager, h *ix.Handle, kt ixpage.KeyType, c config) error {
	if c.dot {
		if err := writeFile(filepath.Join(c.outDir, "bptree.dot"), func(f *os.File) error {
			return m.ExportDOT(h, f)
		}); err != nil {
			return err
		}
	}
	if c.print {
		return writeFile(filepath.Join(c.outDir, "bptree.json"), func(f *os.File) error {
			return m.PrintBTree(h, kt, f)
		})
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return errors.Trace(f.Close())
}
