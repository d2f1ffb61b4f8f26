package config

import "time"

// Options represents the bot behavior configuration loaded from the
// options YAML file. Process-level settings (credentials, paths) live in
// the cfg package instead.
type Options struct {
	CheckInterval     int    `yaml:"check_interval"`      // seconds between poll cycles
	MaxLoginRetries   int    `yaml:"max_login_retries"`   // bound for rate-limited login retries
	InitialRetryDelay int    `yaml:"initial_retry_delay"` // seconds, doubled per retry
	PostsToCheck      int    `yaml:"posts_to_check"`      // recent live posts scanned for duplicates
	IncludeImages     bool   `yaml:"include_images"`
	PostFormat        string `yaml:"post_format"`       // template with {title} and {link}
	MinPostDate       string `yaml:"min_post_date"`     // YYYY-MM-DD floor date
	StripHTMLSuffix   bool   `yaml:"strip_html_suffix"` // strip trailing .html from the canonical link
	MaxImageKB        int    `yaml:"max_image_kb"`      // ceiling for the compressed image payload
	PostDelay         int    `yaml:"post_delay"`        // seconds between successive publish calls

	DuplicateDetection DuplicateDetection `yaml:"duplicate_detection"`

	// Parsed form of MinPostDate, populated during validation.
	MinPostDateParsed time.Time `yaml:"-"`
}

// DuplicateDetection toggles the two duplicate sources independently.
type DuplicateDetection struct {
	CheckDatabase      bool `yaml:"check_database"`
	CheckLiveFeed      bool `yaml:"check_live_feed"`
	AutoSyncToDatabase bool `yaml:"auto_sync_to_database"`
}
