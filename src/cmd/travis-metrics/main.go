// Package main provides the travis-metrics CLI.
// It collects PHPUnit test and assertion counts from Travis CI build logs into a CSV file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"travis-metrics/src/config"
	"travis-metrics/src/httpcache"
	"travis-metrics/src/logger"
	"travis-metrics/src/pipeline"
	"travis-metrics/src/travis"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	v          = config.NewViper()
	configFile string
	appConfig  *config.Config
	log        *logger.ZerologLogger
)

// rootCmd represents the base command when called without any subcommands.
// Without a subcommand it runs collect.
var rootCmd = &cobra.Command{
	Use:   "travis-metrics",
	Short: "Collect PHPUnit test metrics from Travis CI build logs",
	Long: `travis-metrics walks the passed builds of a Travis CI repository, downloads the
log of the first job in the selected stage and writes every PHPUnit summary line
("OK (N tests, M assertions)" or "Tests: N, Assertions: M") as a CSV row.

Each processed build also leaves a full and a filtered copy of its log in the logs
directory. API responses are cached so repeated runs only fetch new builds.

The API token is read from TRAVIS_TOKEN. Other settings can be given as flags,
TRAVIS_METRICS_* variables, a .env file or a config file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runCollect,
}

// collectCmd runs a collection.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect metrics into the CSV report",
	Long: `Collect resolves the repository, walks its builds page by page and writes one
CSV row per matched log line. A tab-separated progress line per build goes to stdout.

Example:
  TRAVIS_TOKEN=... travis-metrics collect --repo keboola/connection --output data.csv`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

// versionCmd prints the build version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// No configuration needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "travis-metrics", version)
	},
}

func setup(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	appConfig = cfg

	log = logger.NewZerologLogger(logger.Options{
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
		File:    cfg.LogFile,
	})
	return nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore(ctx, appConfig)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	client, err := travis.NewClient(appConfig.TravisToken,
		travis.WithBaseURL(appConfig.BaseURL),
		travis.WithAPIVersion(appConfig.APIVersion),
		travis.WithHTTPClient(newHTTPClient(appConfig, st, log)),
	)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		RepoSlug:    appConfig.RepoSlug,
		Branch:      appConfig.Branch,
		BuildState:  appConfig.BuildState,
		StageNumber: appConfig.StageNumber,
		OutputCSV:   appConfig.OutputCSV,
		LogsDir:     appConfig.LogsDir,
	}

	_, err = pipeline.New(client, opts, log, cmd.OutOrStdout()).Run(ctx)
	return err
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (YAML, TOML or JSON)")
	pf.String("base-url", travis.APIBaseURL, "Travis API base URL")
	pf.String("api-version", travis.APIVersion, "Travis-API-Version header value")
	pf.String("repo", "keboola/connection", "Repository slug")
	pf.String("branch", "master", "Branch whose builds are collected")
	pf.String("state", travis.StatePassed, "Build state filter")
	pf.Int("stage", 2, "Stage number whose first job log is scanned")
	pf.StringP("output", "o", "data.csv", "CSV report path")
	pf.String("logs-dir", "/tmp/logs", "Directory for full and filtered log copies")
	pf.String("cache-backend", config.CacheBackendFile, "Response cache backend: file, sqlite, postgres, memory or none")
	pf.String("cache-dir", "/tmp/cache", "Directory of the file and default sqlite cache")
	pf.String("cache-dsn", "", "DSN of the sqlite or postgres cache")
	pf.Duration("cache-ttl", httpcache.DefaultTTL, "How long cached responses are reused")
	pf.Duration("timeout", 0, "Per-request HTTP timeout (0 disables it)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Only log warnings and errors")
	pf.String("log-file", "", "Also write JSON logs to this rotating file")

	bindFlags(pf, map[string]string{
		"base-url":      config.KeyBaseURL,
		"api-version":   config.KeyAPIVersion,
		"repo":          config.KeyRepoSlug,
		"branch":        config.KeyBranch,
		"state":         config.KeyBuildState,
		"stage":         config.KeyStageNumber,
		"output":        config.KeyOutputCSV,
		"logs-dir":      config.KeyLogsDir,
		"cache-backend": config.KeyCacheBackend,
		"cache-dir":     config.KeyCacheDir,
		"cache-dsn":     config.KeyCacheDSN,
		"cache-ttl":     config.KeyCacheTTL,
		"timeout":       config.KeyHTTPTimeout,
		"verbose":       config.KeyVerbose,
		"quiet":         config.KeyQuiet,
		"log-file":      config.KeyLogFile,
	})
}

// execute runs the command line in args. The log file is closed on every path.
func execute(ctx context.Context, args []string) error {
	defer closeLog()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func closeLog() {
	if log == nil {
		return
	}
	if err := log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
	}
	log = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		stop()
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", travis.WrapError(err))
		}
		os.Exit(1)
	}
}
