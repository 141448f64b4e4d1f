package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/reactmesh"
	"github.com/hupe1980/reactmesh/agent"
	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/model/provider"
)

// app carries the process dependencies so commands can be exercised in tests.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	lookup func(string) (string, bool)

	// loader and assembler override the built-in providers and toolset.
	loader    provider.Loader
	assembler agent.Assembler
}

func defaultApp() *app {
	return &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, lookup: os.LookupEnv}
}

type rootFlags struct {
	configPath       string
	model            string
	discoveryURL     string
	maxSearchResults int
	extended         bool
	stream           bool
	maxTurns         int
}

func newRootCmd(a *app) *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "reactmesh",
		Short:         "ReAct agent with web search, code execution and MCP tool discovery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVarP(&f.model, "model", "m", "", "backend identifier, provider:model")
	pf.StringVar(&f.discoveryURL, "discovery-url", "", "MCP endpoint for remote tool discovery")
	pf.IntVar(&f.maxSearchResults, "max-search-results", 0, "web search result cap")
	pf.BoolVar(&f.extended, "extended", false, "enable wikipedia, arxiv and document tools")
	pf.BoolVar(&f.stream, "stream", false, "stream partial answers")
	pf.IntVar(&f.maxTurns, "max-turns", 0, "completion ceiling per run")

	cmd.AddCommand(askCmd(a, f), chatCmd(a, f), toolsCmd(a, f), modelsCmd(a))

	return cmd
}

// loadConfig merges defaults, the YAML file, the environment and finally the
// flags that were set explicitly.
func (a *app) loadConfig(cmd *cobra.Command, f *rootFlags) (config.Config, error) {
	cfg := config.Default()

	if f.configPath != "" {
		if err := config.LoadFile(&cfg, f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if err := config.ApplyEnv(&cfg, a.lookup); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("discovery-url") {
		cfg.DiscoveryURL = f.discoveryURL
	}
	if flags.Changed("max-search-results") {
		cfg.MaxSearchResults = f.maxSearchResults
	}
	if flags.Changed("extended") {
		cfg.ExtendedTools = f.extended
	}

	return cfg, cfg.Validate()
}

func (a *app) newMesh(cmd *cobra.Command, f *rootFlags) (*reactmesh.ReactMesh, error) {
	cfg, err := a.loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}

	logger, err := logging.FromConfig(cfg, a.errOut)
	if err != nil {
		return nil, err
	}

	return reactmesh.New(cfg, func(o *reactmesh.Options) {
		o.Logger = logger
		o.Loader = a.loader
		o.Assembler = a.assembler
		if f.maxTurns > 0 {
			o.MaxTurns = f.maxTurns
		}
		if f.stream {
			o.OnPartial = func(text string) { _, _ = io.WriteString(a.out, text) }
		}
	})
}
