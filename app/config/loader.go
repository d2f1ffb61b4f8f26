package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const minPostDateLayout = "2006-01-02"

// getAuthorFeed rejects limit values above 100, which would fail-close the
// live duplicate check on every cycle.
const maxPostsToCheck = 100

// Loader handles loading and validation of the bot options file.
type Loader struct {
	path string
}

// NewLoader creates a new options loader for the given YAML file path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the options file, applies defaults and validates the result.
// A missing file is not an error: the defaults describe a fully working
// bot, so the file only needs to exist to override them.
func (l *Loader) Load() (*Options, error) {
	opts := Defaults()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Options file not found, using defaults", "path", l.path)
			if err := l.validate(opts); err != nil {
				return nil, err
			}
			return opts, nil
		}
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse options file %s: %w", l.path, err)
	}

	if err := l.validate(opts); err != nil {
		return nil, fmt.Errorf("invalid options file %s: %w", l.path, err)
	}

	return opts, nil
}

// Defaults returns the built-in option values.
func Defaults() *Options {
	return &Options{
		CheckInterval:     600,
		MaxLoginRetries:   5,
		InitialRetryDelay: 10,
		PostsToCheck:      10,
		IncludeImages:     true,
		PostFormat:        "{title}\n\nRead more: {link}",
		MinPostDate:       "2024-11-13",
		StripHTMLSuffix:   true,
		MaxImageKB:        1000,
		PostDelay:         5,
		DuplicateDetection: DuplicateDetection{
			CheckDatabase:      true,
			CheckLiveFeed:      true,
			AutoSyncToDatabase: true,
		},
	}
}

// validate checks option values and fills in the parsed floor date.
func (l *Loader) validate(opts *Options) error {
	if opts.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}
	if opts.MaxLoginRetries <= 0 {
		return fmt.Errorf("max_login_retries must be positive")
	}
	if opts.InitialRetryDelay <= 0 {
		return fmt.Errorf("initial_retry_delay must be positive")
	}
	if opts.PostsToCheck <= 0 {
		return fmt.Errorf("posts_to_check must be positive")
	}
	if opts.PostsToCheck > maxPostsToCheck {
		return fmt.Errorf("posts_to_check must be at most %d", maxPostsToCheck)
	}
	if opts.MaxImageKB <= 0 {
		return fmt.Errorf("max_image_kb must be positive")
	}
	if opts.PostDelay < 0 {
		return fmt.Errorf("post_delay must be non-negative")
	}

	if !strings.Contains(opts.PostFormat, "{title}") || !strings.Contains(opts.PostFormat, "{link}") {
		return fmt.Errorf("post_format must contain both {title} and {link} placeholders")
	}

	parsed, err := time.Parse(minPostDateLayout, opts.MinPostDate)
	if err != nil {
		return fmt.Errorf("min_post_date must be in YYYY-MM-DD format: %w", err)
	}
	opts.MinPostDateParsed = parsed

	return nil
}
