package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-ml/pkg/config"
)

var version = "0.1.0"

// EnvPrefix prefixes every environment override, e.g. NEBULA_ML_STORE_DIR
const EnvPrefix = "NEBULA_ML"

// settings maps viper keys to the config fields they override. Keys follow
// the YAML layout, so store.dir is NEBULA_ML_STORE_DIR or --store-dir.
var settings = []struct {
	key   string
	flag  string
	usage string
	apply func(v *viper.Viper, key string, cfg *config.ServiceConfig)
}{
	{"store.backend", "store-backend", "Model store backend (file, postgres)",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Store.Backend = v.GetString(k) }},
	{"store.dir", "store-dir", "Directory holding model files",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Store.Dir = v.GetString(k) }},
	{"store.codec", "store-codec", "Snapshot compression (gzip, zstd, lz4, s2, none)",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Store.Codec = v.GetString(k) }},
	{"store.postgres_dsn", "postgres-dsn", "Connection string for the postgres backend",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Store.PostgresDSN = v.GetString(k) }},
	{"cache.capacity", "cache-capacity", "Models kept in memory",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Cache.Capacity = v.GetInt(k) }},
	{"server.listen", "listen", "HTTP listen address",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Server.Listen = v.GetString(k) }},
	{"logging.level", "log-level", "Log level (debug, info, warn, error)",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Logging.Level = v.GetString(k) }},
	{"logging.encoding", "log-encoding", "Log encoding (json, console)",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Logging.Encoding = v.GetString(k) }},
	{"logging.debug_dir", "debug-dir", "Directory for per-call debug logs",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Logging.DebugDir = v.GetString(k) }},
	{"observability.enable_metrics", "enable-metrics", "Serve Prometheus metrics on /metrics",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Observability.EnableMetrics = v.GetBool(k) }},
	{"observability.enable_tracing", "enable-tracing", "Export spans to stdout",
		func(v *viper.Viper, k string, c *config.ServiceConfig) { c.Observability.EnableTracing = v.GetBool(k) }},
}

func main() {
	if err := newApp().root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app binds the command tree to its configuration sources
type app struct {
	v          *viper.Viper
	root       *cobra.Command
	configFile string
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	a := &app{v: v}
	root := &cobra.Command{
		Use:           "nebula-ml",
		Short:         "nebula-ml - machine learning pipelines behind a table interface",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `nebula-ml configures, trains and serves scikit-style estimator pipelines.
Every operation takes a table of rows and returns a table, either over HTTP
(serve) or in-process (invoke).`,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to a YAML service configuration")

	// cobra flags carry no defaults of their own; unset flags fall through
	// to the environment, then the file, then NewServiceConfig
	for _, s := range settings {
		root.PersistentFlags().String(s.flag, "", s.usage)
		_ = v.BindPFlag(s.key, root.PersistentFlags().Lookup(s.flag))
		_ = v.BindEnv(s.key)
	}

	load := a.load
	root.AddCommand(
		newServeCommand(load),
		newInvokeCommand(load),
		newModelsCommand(load),
		newOperationsCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "nebula-ml v%s\n", version)
				fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
	)
	a.root = root
	return a
}

func (a *app) load() (*config.ServiceConfig, error) {
	return loadConfig(a.v, a.configFile)
}

// loadConfig layers defaults, the YAML file and flag or environment
// overrides, then validates the result
func loadConfig(v *viper.Viper, file string) (*config.ServiceConfig, error) {
	cfg := config.NewServiceConfig()
	if file != "" {
		if err := config.Load(file, cfg); err != nil {
			return nil, err
		}
	}
	for _, s := range settings {
		if v.IsSet(s.key) && v.GetString(s.key) != "" {
			s.apply(v, s.key, cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
