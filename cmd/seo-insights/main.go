// seo-insights exposes free SEO metrics (backlinks, keyword ideas, keyword
// difficulty, traffic estimates) as MCP tools, an HTTP API, and one-shot
// CLI queries.
//
// Add to Claude Desktop (~/.claude/claude_desktop_config.json):
//
//	{
//	  "mcpServers": {
//	    "seo-insights": {
//	      "command": "/path/to/seo-insights",
//	      "args": ["mcp"],
//	      "env": {"CAPSOLVER_API_KEY": "CAP-..."}
//	    }
//	  }
//	}
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/ahrefs"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/api"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/credcache"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/mcpserver"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/solver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seo-insights",
	Short: "SEO metrics via MCP, HTTP, or one-shot CLI queries",
	Long: `seo-insights fetches free SEO metrics — backlink profiles, keyword ideas,
keyword difficulty, and organic traffic estimates — from Ahrefs' free tools,
solving the anti-bot challenge automatically via CapSolver.

Run 'seo-insights mcp' for a stdio MCP server, 'seo-insights serve' for an
HTTP API, or one of the query subcommands for a one-shot lookup.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env file is optional; environment variables win either way.
		_ = godotenv.Load()

		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.SetConfigName("seo-insights")
			viper.SetConfigType("yaml")
			viper.AddConfigPath("configs")
			viper.AddConfigPath(".")
		}
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
		_ = viper.BindEnv("solver.api_key", "CAPSOLVER_API_KEY", "SOLVER_API_KEY")

		viper.SetDefault("solver.base_url", solver.DefaultBaseURL)
		viper.SetDefault("solver.poll_interval", "1s")
		viper.SetDefault("solver.max_attempts", 30)
		viper.SetDefault("cache.path", credcache.DefaultPath())
		viper.SetDefault("api.port", 8080)
		viper.SetDefault("api.cors_origins", []string{"*"})
		viper.SetDefault("api.rate_limit_rps", 5)

		_ = viper.ReadInConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./seo-insights.yaml)")

	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backlinksCmd)
	rootCmd.AddCommand(keywordIdeasCmd)
	rootCmd.AddCommand(keywordDifficultyCmd)
	rootCmd.AddCommand(trafficCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildClient wires the cache, solver, exchange, and provider together into
// the query client every mode shares.
func buildClient(logger *zap.Logger) *ahrefs.Client {
	apiKey := viper.GetString("solver.api_key")
	if apiKey == "" {
		logger.Warn("no CapSolver API key configured; every query will fail (set CAPSOLVER_API_KEY)")
	}

	store := credcache.NewFileStore(viper.GetString("cache.path"), logger)

	pollInterval, err := time.ParseDuration(viper.GetString("solver.poll_interval"))
	if err != nil || pollInterval <= 0 {
		pollInterval = time.Second
	}
	maxAttempts := viper.GetInt("solver.max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 30
	}

	sv := solver.New(apiKey, logger,
		solver.WithBaseURL(viper.GetString("solver.base_url")),
		solver.WithPolling(pollInterval, maxAttempts),
	)
	exchange := credential.NewExchange(store, logger)
	provider := credential.NewProvider(store, sv, exchange, logger)

	return ahrefs.NewClient(provider, sv, logger)
}

// ── mcp ──────────────────────────────────────────────────────────────────────

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the stdio MCP server",
	Long: `mcp runs a stdio MCP server exposing four tools to any MCP-compatible
AI host (Claude Desktop, Claude API, etc.):

  get_backlinks          — backlink profile for a domain
  get_keyword_ideas      — keyword and question suggestions for a seed keyword
  get_keyword_difficulty — ranking difficulty plus the current top SERP
  get_traffic            — organic traffic estimate for a domain or URL

All logging goes to stderr so it does not interfere with the protocol.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	stderrLog := log.New(os.Stderr, "[seo-insights] ", log.LstdFlags)

	// zap must also write to stderr here: stdout carries the protocol.
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	client := buildClient(logger)
	tools := mcpserver.NewToolRegistry(client)
	server := mcpserver.NewServer(os.Stdout, tools, stderrLog)

	stderrLog.Printf("seo-insights MCP server ready")
	stderrLog.Printf("tools: get_backlinks, get_keyword_ideas, get_keyword_difficulty, get_traffic")

	return server.Serve(cmd.Context(), os.Stdin)
}

// ── serve ────────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	client := buildClient(logger)
	handler := api.NewHandler(client, logger)
	router := api.NewRouter(handler, api.Config{
		CORSOrigins:  viper.GetStringSlice("api.cors_origins"),
		RateLimitRPS: viper.GetInt("api.rate_limit_rps"),
	}, logger)

	port := viper.GetInt("api.port")
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("HTTP API listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("stopped")
	return nil
}

// ── one-shot queries ─────────────────────────────────────────────────────────

var (
	queryCountry      string
	querySearchEngine string
	queryMode         string
)

var backlinksCmd = &cobra.Command{
	Use:   "backlinks <domain>",
	Short: "Fetch the backlink profile for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, c *ahrefs.Client) (any, error) {
			return c.Backlinks(ctx, args[0])
		})
	},
}

var keywordIdeasCmd = &cobra.Command{
	Use:   "keyword-ideas <keyword>",
	Short: "Generate keyword and question ideas for a seed keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, c *ahrefs.Client) (any, error) {
			return c.KeywordIdeas(ctx, args[0], queryCountry, querySearchEngine)
		})
	},
}

var keywordDifficultyCmd = &cobra.Command{
	Use:   "keyword-difficulty <keyword>",
	Short: "Check the ranking difficulty of a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, c *ahrefs.Client) (any, error) {
			return c.KeywordDifficulty(ctx, args[0], queryCountry)
		})
	},
}

var trafficCmd = &cobra.Command{
	Use:   "traffic <domain-or-url>",
	Short: "Estimate organic search traffic for a domain or URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, c *ahrefs.Client) (any, error) {
			return c.Traffic(ctx, args[0], queryMode, queryCountry)
		})
	},
}

func init() {
	keywordIdeasCmd.Flags().StringVar(&queryCountry, "country", "", "Two-letter country code (default us)")
	keywordIdeasCmd.Flags().StringVar(&querySearchEngine, "search-engine", "", "Search engine (default Google)")
	keywordDifficultyCmd.Flags().StringVar(&queryCountry, "country", "", "Two-letter country code (default us)")
	trafficCmd.Flags().StringVar(&queryMode, "mode", "", "Lookup scope: subdomains or exact (default subdomains)")
	trafficCmd.Flags().StringVar(&queryCountry, "country", "", "Country filter (default all countries)")
}

// runQuery executes one lookup and prints the result as indented JSON.
// CLI logging goes to stderr so stdout stays parseable.
func runQuery(ctx context.Context, fn func(context.Context, *ahrefs.Client) (any, error)) error {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	client := buildClient(logger)

	// A solve can take a while; cap the whole query.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	result, err := fn(ctx, client)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seo-insights version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Println("seo-insights", version)
	},
}
