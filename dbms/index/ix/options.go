package ix

import (
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/lannywong2000/PeterDB/dbms/pager"
	"github.com/lannywong2000/PeterDB/logger"
)

// Backend selects the page store behind an index file.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendPebble Backend = "pebble"
)

// Options configures a Manager.
type Options struct {
	PageSize   int
	CachePages int
	Backend    Backend
	LogLevel   string

	// Logger overrides the logger built from LogLevel.
	Logger *logrus.Logger
}

func DefaultOptions() Options {
	return Options{
		PageSize:   pager.DefaultPageSize,
		CachePages: 64,
		Backend:    BackendFile,
		LogLevel:   "info",
	}
}

// Validate checks the page size and backend.
func (o Options) Validate() error {
	if !pager.ValidPageSize(o.PageSize) {
		return errors.NotValidf("page_size %d", o.PageSize)
	}
	if o.CachePages < 0 {
		return errors.NotValidf("cache_pages %d", o.CachePages)
	}
	switch o.Backend {
	case BackendFile, BackendPebble:
	default:
		return errors.NotValidf("backend %q", o.Backend)
	}
	return nil
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.New(o.LogLevel)
}

// LoadOptions reads an ini file:
//
//	[index]
//	page_size   = 4096
//	cache_pages = 64
//	backend     = file
//
//	[logs]
//	log_level = info
//
// A missing file yields the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return opts, errors.Annotatef(err, "load config %q", path)
	}
	return parseOptions(cfg, opts)
}

func parseOptions(cfg *ini.File, opts Options) (Options, error) {
	sec := cfg.Section("index")
	opts.PageSize = sec.Key("page_size").MustInt(opts.PageSize)
	opts.CachePages = sec.Key("cache_pages").MustInt(opts.CachePages)
	if v := strings.TrimSpace(sec.Key("backend").MustString(string(opts.Backend))); v != "" {
		opts.Backend = Backend(strings.ToLower(v))
	}
	if v := cfg.Section("logs").Key("log_level").MustString(opts.LogLevel); v != "" {
		opts.LogLevel = v
	}
	return opts, opts.Validate()
}
