// Indeks AI — Asisten Pasar Modal Indonesia
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"github.com/ternarybob/banner"

	"github.com/indeksai/indeksai/api"
	"github.com/indeksai/indeksai/internal/assistant"
	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/internal/conversation"
	"github.com/indeksai/indeksai/internal/llm"
	"github.com/indeksai/indeksai/internal/logging"
	"github.com/indeksai/indeksai/internal/market"
	"github.com/indeksai/indeksai/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indeksai",
	Short: "Indeks AI — Asisten Pasar Modal Indonesia",
	Long: `Indeks AI
A conversational assistant for the Indonesian capital market. It answers
questions about the latest IHSG close, the last week of trading, and
general investing concepts in Bahasa Indonesia.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logging.Setup(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// app holds the wired components shared by every command.
type app struct {
	router    *llm.Router // nil when no provider is configured
	cache     *market.Cache
	yahoo     *market.Yahoo
	assistant *assistant.Assistant
}

// newApp wires the assistant from cfg. A missing language model is not
// fatal: every mode then answers with its deterministic fallback.
func newApp() *app {
	a := &app{}

	var provider llm.LLMProvider
	router, err := llm.NewRouterFromConfig(cfg)
	switch {
	case err == nil:
		a.router = router
		provider = router
	case errors.Is(err, llm.ErrNoProviders):
		log.Warn().Msg("no language model configured, answers will use fallback text")
	default:
		log.Warn().Err(err).Msg("language model unavailable")
	}

	a.cache = market.NewCache(time.Duration(cfg.Market.CacheTTL) * time.Second)
	a.yahoo = market.NewYahooFromConfig(cfg.Market, a.cache)
	news := market.NewNewsFromConfig(cfg.News, a.cache)

	composer := assistant.NewComposerFromConfig(provider, cfg)
	a.assistant = assistant.NewFromConfig(cfg, composer, a.yahoo, news)
	return a
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Indeks AI %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long:  "Classify one question, fetch market data when needed and print the narrated answer.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a := newApp()
		reply := a.assistant.Respond(ctx, conversation.NewStore(), strings.Join(args, " "))
		if explain, _ := cmd.Flags().GetBool("explain"); explain {
			d := reply.Intent
			fmt.Printf("🧭 Intent: %s (rule: %s", d.Intent, d.Rule)
			if d.Marker != "" {
				fmt.Printf(", marker: %q", d.Marker)
			}
			fmt.Println(")")
			fmt.Println()
		}
		printResponse(os.Stdout, reply.Response)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("explain", false, "show how the question was classified")
}

// --- Latest Command ---

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Narrate the latest IHSG close",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a := newApp()
		fmt.Printf("📊 %s — %s\n\n", a.assistant.Symbol(), utils.MarketStatus())
		printResponse(os.Stdout, a.assistant.Latest(ctx))
		return nil
	},
}

// --- Weekly Command ---

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Narrate the last week of IHSG trading",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a := newApp()
		printResponse(os.Stdout, a.assistant.Weekly(ctx))
		return nil
	},
}

// --- Serve Command (API Server) ---

// printBanner writes the startup box to stdout.
func printBanner(ver, addr, symbol string) {
	b := banner.New().SetWidth(60)
	b.PrintTopLine()
	b.PrintCenteredText("Indeks AI")
	b.PrintCenteredText("Asisten pasar modal Indonesia")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Versi", ver, 8)
	b.PrintKeyValue("Alamat", addr, 8)
	b.PrintKeyValue("Indeks", symbol, 8)
	b.PrintBottomLine()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		printBanner(version, cfg.API.Addr(), cfg.Market.Symbol)

		ctx, cancel := signalContext()
		defer cancel()

		a := newApp()
		if spec := cfg.Market.PrewarmSchedule; spec != "" {
			p, err := market.NewPrewarmer(a.yahoo, a.cache, cfg.Market.Symbol, spec, cfg.Market.FetchTimeout)
			if err != nil {
				return err
			}
			p.Start()
			defer p.Stop()
		}

		fmt.Printf("🌐 Starting Indeks AI API server on %s\n", cfg.API.Addr())
		srv := api.NewServer(cfg, a.assistant, api.WithVersion(version))
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port override")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Indeks AI — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		now := utils.NowWIB()
		fmt.Printf("  Time (WIB):    %s\n", utils.FormatDateTimeWIB(now))
		fmt.Printf("  Last Session:  %s\n", utils.FormatDateLongID(utils.LastSession(now)))
		fmt.Printf("  Next Session:  %s\n", utils.FormatDateLongID(utils.NextTradingDay(now)))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Index Symbol:  %s (%d bars/week)\n", cfg.Market.Symbol, cfg.Market.WeeklyBars)
		fmt.Printf("    News:          %t (%d feeds)\n", cfg.News.Enabled, len(cfg.News.Feeds))
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping {
			fmt.Println()
			fmt.Println("  Providers:")
			if router, err := llm.NewRouterFromConfig(cfg); err != nil {
				fmt.Printf("    ❌ %v\n", err)
			} else {
				health := router.HealthCheck(cmd.Context())
				for _, name := range router.ProviderNames() {
					status := "✅ reachable"
					if err := health[name]; err != nil {
						status = "❌ " + err.Error()
					}
					fmt.Printf("    %-25s %s\n", name+":", status)
				}
			}
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println()
		fmt.Println(assistant.Disclaimer)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "check that each configured provider is reachable")
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = config.DefaultConfigPath()
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveToFile(config.Default(), path); err != nil {
			return err
		}
		fmt.Printf("✅ Wrote default config to %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("path", "", "destination (default: ~/.indeksai/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
