package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meigma/js5"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "js5",
		Short: "Inspect and edit JS5 game caches",
		Long: `js5 reads and writes the on-disk cache format used by JS5 game clients:
a sector file (main_file_cache.dat2), one index per archive
(main_file_cache.idx0..N) and the master index (main_file_cache.idx255).

Configuration is read from js5.yaml in the working directory or $HOME/.js5,
then from JS5_* environment variables (JS5_CACHE_DIR, JS5_LOG_LEVEL, ...),
then from flags.

Commands:
  info      Summarize the archives of a cache
  ls        List the groups of an archive
  cat       Extract files from a group
  put       Write a group from local files
  rm        Remove a group
  verify    Check stored groups against their checksums`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./js5.yaml)")
	pf.StringP("dir", "d", "", "cache directory")
	pf.Bool("read-only", false, "open the cache read-only")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("format", "", "output format for info and ls (table, json, yaml)")
	a.bind("cache.dir", pf.Lookup("dir"))
	a.bind("cache.read_only", pf.Lookup("read-only"))
	a.bind("log.level", pf.Lookup("log-level"))
	a.bind("output.format", pf.Lookup("format"))

	root.AddCommand(
		a.infoCmd(),
		a.lsCmd(),
		a.catCmd(),
		a.putCmd(),
		a.rmCmd(),
		a.verifyCmd(),
	)
	return root
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// openCache opens the configured cache directory. Commands that only read
// pass readOnly so a missing cache is reported instead of created.
func (a *app) openCache(readOnly bool) (*js5.Cache, error) {
	compression, err := js5.ParseCompression(a.cfg.Write.Compression)
	if err != nil {
		return nil, err
	}
	return js5.Open(a.cfg.Cache.Dir,
		js5.WithReadOnly(readOnly || a.cfg.Cache.ReadOnly),
		js5.WithLogger(a.logger),
		js5.WithArchiveOptions(
			js5.WithCompression(compression),
			js5.WithWhirlpool(a.cfg.Write.Whirlpool),
			js5.WithSizes(a.cfg.Write.Sizes),
		),
	)
}

// withCache runs fn against an open cache and closes it, joining errors.
func (a *app) withCache(readOnly bool, fn func(*js5.Cache) error) (err error) {
	c, err := a.openCache(readOnly)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	return fn(c)
}
