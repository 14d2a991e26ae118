// Responsecore picks contextual responses from Lua-authored rulesets.
// Usage: responsecore [--config file] [--verbose] play|query|list|check
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nathoo/responsecore/config"
	"github.com/nathoo/responsecore/engine"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/loader"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "responsecore",
	Short: "Rule-based response selection for game characters",
	Long: `responsecore loads rulesets written in Lua and answers queries with the
best matching response: a rule is chosen by scoring its criteria against the
query facts, then one of its response groups picks a concrete line.

Run "responsecore play" for an interactive console.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		level := cfg.Level()
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).
			With().Timestamp().Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadDefs loads one ruleset directory with the command logger.
func loadDefs(dir string) (*state.Defs, error) {
	return loader.Load(dir, loader.Options{Logger: logger})
}

// buildRegistry loads every configured ruleset: the default one with the
// default lifecycle, the rest as instances.
func buildRegistry() (*engine.Registry, error) {
	seed := cfg.ResolveSeed(time.Now())

	newEngine := func(name string, lc engine.Lifecycle) (*engine.Engine, error) {
		dir := cfg.Rulesets[name]
		defs, err := loadDefs(dir)
		if err != nil {
			return nil, fmt.Errorf("ruleset %s: %w", name, err)
		}
		lc.PrecacheOnLoad = cfg.PrecacheOnLoad
		return engine.New(defs, engine.Options{
			Name:      name,
			Seed:      seed,
			MaxDepth:  cfg.MaxReferenceDepth,
			Epsilon:   cfg.TieEpsilon,
			Lifecycle: lc,
			Logger:    logger,
		}), nil
	}

	def, err := newEngine(config.DefaultRuleset, engine.DefaultLifecycle())
	if err != nil {
		return nil, err
	}
	reg := engine.NewRegistry(def)
	for _, name := range cfg.Instances() {
		e, err := newEngine(name, engine.InstancedLifecycle())
		if err != nil {
			return nil, err
		}
		reg.Add(e)
	}
	logger.Debug().Int64("seed", seed).Strs("instances", reg.Names()).Msg("rulesets ready")
	return reg, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
