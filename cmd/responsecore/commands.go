package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nathoo/responsecore/cli"
	"github.com/nathoo/responsecore/config"
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/loader"
	"github.com/nathoo/responsecore/tui"
)

var (
	plain      bool
	scriptFile string
	trace      bool
	speaker    string
	instance   string
	showAll    bool
)

var playCmd = &cobra.Command{
	Use:   "play [ruleset_dir]",
	Short: "Start an interactive query console",
	Long: `Starts the query console. The Bubble Tea console is used on a terminal
and reloads rulesets when their files change; --plain, --script or a
redirected stdout use the line console instead. A directory argument
replaces the configured default ruleset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

var queryCmd = &cobra.Command{
	Use:   "query <fact>...",
	Short: "Answer a single query",
	Long: `Answers one query given as criteria modifiers, for example:

  responsecore query concept:hello who:guard health:20`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured rulesets",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var checkCmd = &cobra.Command{
	Use:   "check [ruleset_dir...]",
	Short: "Load rulesets and report problems",
	Long: `Loads each ruleset directory (every configured ruleset by default) and
reports validation errors and build warnings. Exits non-zero on errors.`,
	RunE: runCheck,
}

func init() {
	playCmd.Flags().BoolVar(&plain, "plain", false, "Use the line console")
	playCmd.Flags().StringVar(&scriptFile, "script", "", "Read queries from a file (implies --plain)")
	playCmd.Flags().BoolVar(&trace, "trace", false, "Start with scoring trace enabled")
	playCmd.Flags().StringVar(&speaker, "speaker", "", "Speak as this speaker")

	queryCmd.Flags().BoolVar(&trace, "trace", false, "Print the scoring trace")
	queryCmd.Flags().StringVar(&speaker, "speaker", "", "Speaker whose context applies")
	queryCmd.Flags().StringVarP(&instance, "instance", "i", "", "Instanced ruleset to query")

	listCmd.Flags().BoolVar(&showAll, "responses", false, "Also list every response")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.Rulesets[config.DefaultRuleset] = args[0]
	}
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	if scriptFile != "" || plain || !isTerminal() {
		c := cli.New(reg, cfg.SaveDir)
		c.Session.Trace = trace
		c.Session.Speaker = speaker
		if scriptFile != "" {
			f, err := os.Open(scriptFile)
			if err != nil {
				return fmt.Errorf("opening script: %w", err)
			}
			defer f.Close()
			c.In = f
			c.EchoInput = true
		}
		c.Run()
		return nil
	}

	return tui.Run(reg, tui.Options{
		SaveDir:  cfg.SaveDir,
		Rulesets: cfg.Rulesets,
		Load:     loadDefs,
		Logger:   logger,
	})
}

func runQuery(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	s := cli.NewSession(reg, cfg.SaveDir)
	s.Instance = instance
	s.Speaker = speaker
	s.Trace = trace

	lines, _ := s.Exec(strings.Join(args, " "))
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	names := append([]string{config.DefaultRuleset}, reg.Names()...)
	for _, name := range names {
		e := reg.Get(name)
		fmt.Fprintf(out, "%-12s %-10s %3d criteria %3d rules %3d groups  %s\n",
			name, e.Lifecycle.Name, e.Ruleset.NumCriteria(), e.Ruleset.NumRules(),
			e.Ruleset.NumGroups(), cfg.Rulesets[name])
		if showAll {
			for _, r := range e.GetAllResponses() {
				fmt.Fprintln(out, "  "+cli.FormatResponse(r))
			}
		}
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		for _, dir := range cfg.Rulesets {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, dir := range dirs {
		defs, err := loader.Load(dir, loader.Options{Logger: logger})
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", dir)
			var ve *loader.ValidationError
			if errors.As(err, &ve) {
				for _, e := range ve.Errors {
					fmt.Fprintf(out, "  error: %s\n", e)
				}
				continue
			}
			fmt.Fprintf(out, "  error: %v\n", err)
			continue
		}

		rs := ruleset.Build(defs, ruleset.Options{Logger: logger})
		fmt.Fprintf(out, "OK   %s (%d criteria, %d rules, %d groups)\n",
			dir, rs.NumCriteria(), rs.NumRules(), rs.NumGroups())
		for _, w := range rs.Warnings() {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rulesets failed", failed, len(dirs))
	}
	return nil
}
