package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trendlens/internal/server"
	"trendlens/internal/trend"
	"trendlens/internal/tui"
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "trendlens",
		Short:         "Trend detection and semantic search over social posts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// .env is optional.
			_ = godotenv.Load()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/trendlens/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	root.AddCommand(
		newTrendsCmd(opts),
		newSearchCmd(opts),
		newAnalyzeCmd(opts),
		newServeCmd(opts),
		newTUICmd(opts),
	)
	return root
}

func newTrendsCmd(opts *rootOptions) *cobra.Command {
	var (
		window      float64
		minMentions int
	)
	cmd := &cobra.Command{
		Use:   "trends FILES...",
		Short: "Rank the keywords trending in the given post files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.load(cmd.Context(), args); err != nil {
				return err
			}
			var topts []trend.Option
			if cmd.Flags().Changed("window") {
				topts = append(topts, trend.WithWindow(window))
			}
			if cmd.Flags().Changed("min-mentions") {
				topts = append(topts, trend.WithMinMentions(minMentions))
			}
			trends, err := a.svc.CurrentTrends(topts...)
			if err != nil {
				return err
			}
			return printTrends(cmd.OutOrStdout(), trends, opts.json)
		},
	}
	cmd.Flags().Float64Var(&window, "window", 0, "recency window in hours (default from config)")
	cmd.Flags().IntVar(&minMentions, "min-mentions", 0, "minimum recent mentions (default from config)")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search QUERY FILES...",
		Short: "Find the posts most similar to a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.load(cmd.Context(), args[1:]); err != nil {
				return err
			}
			results, err := a.svc.Search(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), args[0], results, opts.json)
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", server.DefaultSearchK, "number of results")
	return cmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze QUERY FILES...",
		Short: "Retrieve the posts related to a query and summarize them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.load(cmd.Context(), args[1:]); err != nil {
				return err
			}
			analysis, err := a.svc.AnalyzeQuery(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printAnalysis(cmd.OutOrStdout(), analysis, opts.json)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [FILES...]",
		Short: "Serve the HTTP API, optionally preloading post files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.load(cmd.Context(), args); err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv := server.New(a.svc,
				server.WithLogger(a.log),
				server.WithMetrics(a.metrics),
				server.WithCounters(a.cfg.Ingest.Counters),
			)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "tui FILES...",
		Short: "Explore trends and analyses interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.load(cmd.Context(), args); err != nil {
				return err
			}
			_, err = tea.NewProgram(tui.New(a.svc, timeout), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-analysis timeout")
	return cmd
}
