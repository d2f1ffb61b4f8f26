package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeOptionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write options file: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	opts, err := loader.Load()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}

	if opts.CheckInterval != 600 {
		t.Errorf("Expected default check_interval 600, got %d", opts.CheckInterval)
	}
	if opts.MaxLoginRetries != 5 {
		t.Errorf("Expected default max_login_retries 5, got %d", opts.MaxLoginRetries)
	}
	if opts.PostsToCheck != 10 {
		t.Errorf("Expected default posts_to_check 10, got %d", opts.PostsToCheck)
	}
	if !opts.IncludeImages {
		t.Error("Expected images to be included by default")
	}
	if opts.MaxImageKB != 1000 {
		t.Errorf("Expected default max_image_kb 1000, got %d", opts.MaxImageKB)
	}
	if !opts.DuplicateDetection.CheckDatabase {
		t.Error("Expected database duplicate check enabled by default")
	}
	if !opts.DuplicateDetection.CheckLiveFeed {
		t.Error("Expected live feed duplicate check enabled by default")
	}
	if !opts.DuplicateDetection.AutoSyncToDatabase {
		t.Error("Expected auto sync enabled by default")
	}

	expected := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)
	if !opts.MinPostDateParsed.Equal(expected) {
		t.Errorf("Expected default floor date %v, got %v", expected, opts.MinPostDateParsed)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeOptionsFile(t, `
check_interval: 300
posts_to_check: 25
include_images: false
min_post_date: "2025-01-01"
post_format: "{title} - {link}"
duplicate_detection:
  check_database: true
  check_live_feed: false
  auto_sync_to_database: false
`)

	opts, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if opts.CheckInterval != 300 {
		t.Errorf("Expected check_interval 300, got %d", opts.CheckInterval)
	}
	if opts.PostsToCheck != 25 {
		t.Errorf("Expected posts_to_check 25, got %d", opts.PostsToCheck)
	}
	if opts.IncludeImages {
		t.Error("Expected include_images to be disabled")
	}
	if opts.DuplicateDetection.CheckLiveFeed {
		t.Error("Expected live feed check to be disabled")
	}
	if opts.PostFormat != "{title} - {link}" {
		t.Errorf("Unexpected post format: %s", opts.PostFormat)
	}

	expected := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !opts.MinPostDateParsed.Equal(expected) {
		t.Errorf("Expected floor date %v, got %v", expected, opts.MinPostDateParsed)
	}
	// Unset keys keep their defaults
	if opts.MaxLoginRetries != 5 {
		t.Errorf("Expected default max_login_retries 5, got %d", opts.MaxLoginRetries)
	}
}

func TestLoad_InvalidMinPostDate(t *testing.T) {
	path := writeOptionsFile(t, `min_post_date: "13-11-2024"`)

	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Expected error for malformed min_post_date")
	}
}

func TestLoad_PostFormatMissingPlaceholders(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"missing link", `post_format: "{title} only"`},
		{"missing title", `post_format: "read {link}"`},
		{"missing both", `post_format: "static text"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOptionsFile(t, tt.format)
			if _, err := NewLoader(path).Load(); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestLoad_NonPositiveValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero interval", `check_interval: 0`},
		{"negative retries", `max_login_retries: -1`},
		{"zero posts to check", `posts_to_check: 0`},
		{"zero image ceiling", `max_image_kb: 0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOptionsFile(t, tt.content)
			if _, err := NewLoader(path).Load(); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestLoad_PostsToCheckAboveFeedLimit(t *testing.T) {
	path := writeOptionsFile(t, `posts_to_check: 500`)

	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Expected error for posts_to_check above the author feed limit")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeOptionsFile(t, "check_interval: [not a number")

	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
