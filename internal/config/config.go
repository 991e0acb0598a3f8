package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Pagination
		Cache
		Navigator
		Tasks
		Scheduler
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Log struct {
		Level string // debug, info, warn, error
	}
	Pagination struct {
		MinParagraphsPerPage       int
		MaxParagraphsPerPage       int
		PreferredParagraphsPerPage int
		WordsPerPage               int
		PagesPerChapter            int
		WordsPerMinute             int
	}
	Cache struct {
		Enabled    bool
		TTL        time.Duration
		MaxEntries int
	}
	Navigator struct {
		Debounce time.Duration
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Scheduler struct {
		CacheSweepEnabled  bool
		CacheSweepSchedule string // Cron format: "0 * * * *" = hourly
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8177)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("log_level", "info")

	// Pagination defaults
	v.SetDefault("pagination_min_paragraphs", 3)
	v.SetDefault("pagination_max_paragraphs", 8)
	v.SetDefault("pagination_preferred_paragraphs", 5)
	v.SetDefault("pagination_words_per_page", 300)
	v.SetDefault("pagination_pages_per_chapter", 5)
	v.SetDefault("pagination_words_per_minute", 200)

	// Result cache defaults
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", "168h") // 7 days
	v.SetDefault("cache_max_entries", 50)

	// Navigator defaults
	v.SetDefault("navigator_debounce", "300ms")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Scheduler defaults
	v.SetDefault("cache_sweep_enabled", true)
	v.SetDefault("cache_sweep_schedule", "0 * * * *") // Hourly at :00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
		},
		Pagination: Pagination{
			MinParagraphsPerPage:       v.GetInt("PAGINATION_MIN_PARAGRAPHS"),
			MaxParagraphsPerPage:       v.GetInt("PAGINATION_MAX_PARAGRAPHS"),
			PreferredParagraphsPerPage: v.GetInt("PAGINATION_PREFERRED_PARAGRAPHS"),
			WordsPerPage:               v.GetInt("PAGINATION_WORDS_PER_PAGE"),
			PagesPerChapter:            v.GetInt("PAGINATION_PAGES_PER_CHAPTER"),
			WordsPerMinute:             v.GetInt("PAGINATION_WORDS_PER_MINUTE"),
		},
		Cache: Cache{
			Enabled:    v.GetBool("CACHE_ENABLED"),
			TTL:        v.GetDuration("CACHE_TTL"),
			MaxEntries: v.GetInt("CACHE_MAX_ENTRIES"),
		},
		Navigator: Navigator{
			Debounce: v.GetDuration("NAVIGATOR_DEBOUNCE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Scheduler: Scheduler{
			CacheSweepEnabled:  v.GetBool("CACHE_SWEEP_ENABLED"),
			CacheSweepSchedule: v.GetString("CACHE_SWEEP_SCHEDULE"),
		},
	}
}
