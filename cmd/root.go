package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/catalogfill/cmd/populate"
	"github.com/lepinkainen/catalogfill/internal/cache"
	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

var runPopulate = populate.RunWithParams

// CLI represents the complete command structure for the catalogfill application
type CLI struct {
	// Global flags
	Debug bool `help:"Enable debug logging"`

	// Datasette flags
	History     bool   `help:"Record run history for Datasette"`
	DatasetteDB string `help:"Path to the run history SQLite database file"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)"`

	Populate PopulateCmd `cmd:"" help:"Copy a storefront catalog page into the CMS"`
	Schedule ScheduleCmd `cmd:"" help:"Run populate on a cron schedule"`
	Cache    CacheCmd    `cmd:"" help:"Manage the detail page cache"`
}

// CacheCmd groups the cache subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Delete every cached entry of a source"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	initConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("catalogfill"),
		kong.Description("Populate a headless CMS with games from a storefront catalog."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if cli.Debug {
		initLogging(true)
	}
	updateGlobalConfig(&cli)

	if err := kctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	config.SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file...")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Error writing config file", "error", err)
			}
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	// environment values must not end up in the written default file
	viper.SetEnvPrefix("catalogfill")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("cms.token", "CATALOGFILL_CMS_TOKEN", "CMS_API_TOKEN"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	if cli.History {
		viper.Set("datasette.enabled", true)
	}
	if cli.DatasetteDB != "" {
		viper.Set("datasette.dbfile", cli.DatasetteDB)
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
