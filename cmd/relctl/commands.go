package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/netrel/internal/autocorr"
	"github.com/gyaneshwarpardhi/netrel/internal/config"
	"github.com/gyaneshwarpardhi/netrel/internal/fragility"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
	"github.com/gyaneshwarpardhi/netrel/internal/threat"
	"github.com/gyaneshwarpardhi/netrel/internal/topology"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	networkID  string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "relctl",
		Short: "Exact reliability analysis of declared networks",
		Long: `relctl evaluates the networks declared in a networks YAML file.

A network works when the set of nodes that are up is non-empty and connected.
Every analysis enumerates all 2^n node states, so networks are capped at the
configured analysis.max_nodes.

Examples:
  relctl report                                   # report for the "sample" network
  relctl report --network ring --json
  relctl fragility --order firewall,switch2
  relctl threats --seed 42
  relctl dw -- 0.3 -0.1 0.2 -0.4 0.1
  relctl distribution --network ring`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/networks.yaml",
		"Path to networks YAML config")
	root.PersistentFlags().StringVarP(&opts.networkID, "network", "n", "sample",
		"Network id to analyse")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false,
		"Output as JSON")

	root.AddCommand(
		newReportCmd(opts),
		newFragilityCmd(opts),
		newThreatsCmd(opts),
		newDistributionCmd(opts),
		newDurbinWatsonCmd(opts),
	)
	return root
}

// =============================================================================
// report
// =============================================================================

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print system reliability and per-node Birnbaum importance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, n, err := opts.load()
			if err != nil {
				return err
			}
			rep, err := reliability.NewEvaluator(cfg.Analysis.MaxNodes).Report(n.Probabilities(), n.Adjacency())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderReport(n.ID, rep))
			return err
		},
	}
}

// =============================================================================
// fragility
// =============================================================================

func newFragilityCmd(opts *rootOptions) *cobra.Command {
	var (
		order     []string
		threshold int
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "fragility",
		Short: "Remove nodes one at a time and track reliability",
		Long: `Remove the nodes given by --order one at a time and report the remaining
network after each removal. Stops after the first step leaving fewer nodes
than the critical threshold. Without --order nodes are removed in declaration
order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, n, err := opts.load()
			if err != nil {
				return err
			}
			if mode == "" {
				mode = cfg.Analysis.FragilityMode
			}
			m, err := fragility.ParseMode(mode)
			if err != nil {
				return err
			}
			if threshold <= 0 {
				threshold = cfg.Analysis.CriticalThreshold
			}
			if len(order) == 0 {
				order = n.NodeIDs()
			}
			tracker := fragility.Tracker{
				CriticalThreshold: threshold,
				Mode:              m,
				Evaluator:         reliability.NewEvaluator(cfg.Analysis.MaxNodes),
			}
			steps, err := tracker.Track(n.Adjacency(), n.Probabilities(), order)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), steps)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderFragility(n.ID, threshold, steps))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&order, "order", nil, "Comma-separated removal order")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Critical threshold (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "Reliability per step: exact or product (default from config)")
	return cmd
}

// =============================================================================
// threats
// =============================================================================

func newThreatsCmd(opts *rootOptions) *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "threats",
		Short: "Simulate external threats and report the degraded network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, n, err := opts.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = rand.Uint64()
			}
			p, events := threat.FromConfig(cfg.Threats).Simulate(threat.NewRand(seed), n.Probabilities())
			ev := reliability.NewEvaluator(cfg.Analysis.MaxNodes)
			baseline, err := ev.SystemReliability(n.Probabilities(), n.Adjacency())
			if err != nil {
				return err
			}
			rep, err := ev.Report(p, n.Adjacency())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"seed":                 seed,
					"events":               events,
					"baseline_reliability": baseline,
					"report":               rep,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderThreats(n.ID, seed, baseline, events, rep))
			return err
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (random when unset)")
	return cmd
}

// =============================================================================
// distribution
// =============================================================================

func newDistributionCmd(opts *rootOptions) *cobra.Command {
	var connectedOnly bool
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "List every joint node state with its probability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, n, err := opts.load()
			if err != nil {
				return err
			}
			dist, err := reliability.NewEvaluator(cfg.Analysis.MaxNodes).ProbabilityDistribution(n.Probabilities())
			if err != nil {
				return err
			}
			if connectedOnly {
				adj := n.Adjacency()
				kept := dist[:0]
				for _, s := range dist {
					if reliability.IsConnected(s.Up, adj) {
						kept = append(kept, s)
					}
				}
				dist = kept
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), dist)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderDistribution(n.ID, dist))
			return err
		},
	}
	cmd.Flags().BoolVar(&connectedOnly, "connected", false, "Only list states in which the network works")
	return cmd
}

// =============================================================================
// dw
// =============================================================================

func newDurbinWatsonCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "dw [residuals...]",
		Short: "Durbin–Watson autocorrelation test over regression residuals",
		Long: `Compute the Durbin–Watson statistic of the residuals given as arguments or
read from --file (whitespace separated, "-" for stdin). Put "--" before
arguments so negative values are not taken for flags:

  relctl dw -- 0.3 -0.1 0.2 -0.4 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				residuals []float64
				err       error
			)
			if file != "" {
				residuals, err = readResiduals(cmd.InOrStdin(), file)
			} else {
				residuals, err = parseResiduals(args)
			}
			if err != nil {
				return err
			}
			res, err := autocorr.DurbinWatson(residuals)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderDurbinWatson(res))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read residuals from file")
	return cmd
}

// =============================================================================
// helpers
// =============================================================================

// load reads, validates and builds the selected network.
func (o *rootOptions) load() (*config.Config, *topology.Network, error) {
	data, err := os.ReadFile(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read config %s: %w", o.configPath, err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse config %s: %w", o.configPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	cat, err := topology.BuildCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	n := cat.Network(o.networkID)
	if n == nil {
		return nil, nil, fmt.Errorf("network %q not found in %s", o.networkID, o.configPath)
	}
	return cfg, n, nil
}

func parseResiduals(fields []string) ([]float64, error) {
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("residual %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readResiduals(stdin io.Reader, path string) ([]float64, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var fields []string
	for sc.Scan() {
		fields = append(fields, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return parseResiduals(fields)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
