package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Bluesky account configuration
	Identifier string `long:"bsky-identifier" env:"BLUESKY_USERNAME" description:"Bluesky account handle or DID (required)" required:"true"`
	Password   string `long:"bsky-password" env:"BLUESKY_PASSWORD" description:"Bluesky app password (required)" required:"true"`
	ServiceURL string `long:"bsky-service" env:"BLUESKY_SERVICE" default:"https://bsky.social" description:"Bluesky PDS service URL"`

	// Feed configuration
	FeedURL string `long:"feed-url" env:"RSS_FEED_URL" description:"RSS feed URL to poll (required)" required:"true"`

	// Application configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./posts.db" description:"Path to the SQLite posts database"`
	OptionsFile string `long:"options-file" env:"OPTIONS_FILE" default:"./config.yaml" description:"Path to the bot options YAML file"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"bsky-rss-bot/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Chicago)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Credentials may live in a .env file next to the binary instead of the
	// process environment.
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Identifier:  raw.Identifier,
		Password:    raw.Password,
		ServiceURL:  raw.ServiceURL,
		FeedURL:     raw.FeedURL,
		DBPath:      raw.DBPath,
		OptionsFile: raw.OptionsFile,
		UserAgent:   raw.UserAgent,
		Timezone:    raw.Timezone,
		Debug:       raw.Debug,
		Version:     GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
