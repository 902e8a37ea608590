package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/app"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/config"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/logger"
)

var (
	userFlag        string
	metricsAddrFlag string
	rootCmd         = &cobra.Command{
		Use:           "companion",
		Short:         "Talk to the companion and inspect what it remembers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// withApp loads configuration, builds the core, runs fn and tears everything down.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	log := logger.New("companion")
	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to start companion core")
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Shutdown incomplete")
		}
	}()

	if metricsAddrFlag != "" {
		cfg.MetricsAddr = metricsAddrFlag
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	return fn(ctx, a)
}

func serveMetrics(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics endpoint failed")
		}
	}()
	return srv
}

func requireUser() error {
	if userFlag == "" {
		return fmt.Errorf("--user required")
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation on stdin (/quit to leave)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runChat(ctx, a, userFlag, os.Stdin, os.Stdout)
			})
		},
	}
	chatCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	rootCmd.AddCommand(chatCmd)

	sayCmd := &cobra.Command{
		Use:   "say [text]",
		Short: "Handle a single utterance and print the full turn result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runSay(ctx, a, userFlag, args[0], os.Stdout)
			})
		},
	}
	rootCmd.AddCommand(sayCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the relationship snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runStatus(ctx, a, userFlag, os.Stdout)
			})
		},
	}
	rootCmd.AddCommand(statusCmd)

	patternsCmd := &cobra.Command{
		Use:   "patterns",
		Short: "Summarise the emotional-event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runPatterns(ctx, a, userFlag, os.Stdout)
			})
		},
	}
	rootCmd.AddCommand(patternsCmd)

	insightsCmd := &cobra.Command{
		Use:   "insights",
		Short: "Summarise the conversation log and relationship",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runInsights(ctx, a, userFlag, os.Stdout)
			})
		},
	}
	rootCmd.AddCommand(insightsCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent turns, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runHistory(ctx, a, userFlag, limit, os.Stdout)
			})
		},
	}
	historyCmd.Flags().IntP("limit", "n", 0, "Number of turns (0 = configured default)")
	rootCmd.AddCommand(historyCmd)

	factsCmd := &cobra.Command{
		Use:   "facts",
		Short: "List personal facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			distinct, _ := cmd.Flags().GetBool("distinct")
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runFacts(ctx, a, userFlag, distinct, os.Stdout)
			})
		},
	}
	factsCmd.Flags().Bool("distinct", false, "Collapse repeated facts")
	rootCmd.AddCommand(factsCmd)

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Keyword search over turns and facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			limit, _ := cmd.Flags().GetInt("limit")
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runSearch(ctx, a, userFlag, query, limit, os.Stdout)
			})
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "Search query text (required)")
	searchCmd.Flags().IntP("limit", "n", 0, "Maximum results")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)

	rememberCmd := &cobra.Command{
		Use:   "remember",
		Short: "Record a standalone emotional event",
		RunE: func(cmd *cobra.Command, args []string) error {
			emotion, _ := cmd.Flags().GetString("emotion")
			intensity, _ := cmd.Flags().GetFloat64("intensity")
			trigger, _ := cmd.Flags().GetString("trigger")
			reaction, _ := cmd.Flags().GetString("reaction")
			strength, _ := cmd.Flags().GetFloat64("strength")
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runRemember(ctx, a, userFlag, emotion, intensity, trigger, reaction, strength, os.Stdout)
			})
		},
	}
	rememberCmd.Flags().String("emotion", "", "User emotion label (required)")
	rememberCmd.Flags().Float64("intensity", 0.5, "Intensity in [0,1]")
	rememberCmd.Flags().String("trigger", "", "What caused it")
	rememberCmd.Flags().String("reaction", "calmness", "Companion reaction label")
	rememberCmd.Flags().Float64("strength", 0.5, "Reaction strength in [0,1]")
	_ = rememberCmd.MarkFlagRequired("emotion")
	rootCmd.AddCommand(rememberCmd)

	setRelCmd := &cobra.Command{
		Use:   "set-relationship",
		Short: "Overwrite the relationship snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			intimacy, _ := cmd.Flags().GetFloat64("intimacy")
			trust, _ := cmd.Flags().GetFloat64("trust")
			count, _ := cmd.Flags().GetInt64("count")
			if err := requireUser(); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return runSetRelationship(ctx, a, userFlag, intimacy, trust, count, os.Stdout)
			})
		},
	}
	setRelCmd.Flags().Float64("intimacy", 0, "Intimacy level (>= 0)")
	setRelCmd.Flags().Float64("trust", 0, "Trust level in [0,1]")
	setRelCmd.Flags().Int64("count", 0, "Interaction count; must not go backwards")
	_ = setRelCmd.MarkFlagRequired("count")
	rootCmd.AddCommand(setRelCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store runs migrations.
			return withApp(func(ctx context.Context, a *app.App) error {
				fmt.Fprintln(os.Stdout, "schema up to date")
				return nil
			})
		},
	}
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
