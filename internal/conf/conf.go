package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration.
type Config struct {
	// ManyChat configuration
	ManyChat ManyChatConfig

	// Gemini configuration
	Gemini GeminiConfig

	// Buffer configuration
	Buffer BufferConfig

	// Auto-send configuration
	AutoSend AutoSendConfig

	// Server configuration
	Server ServerConfig

	// Store configuration
	Store StoreConfig

	// Debug mode
	Debug bool
}

// ManyChatConfig contains ManyChat API configuration.
type ManyChatConfig struct {
	APIToken string
}

// GeminiConfig contains LLM configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// BufferConfig contains message buffer configuration.
type BufferConfig struct {
	WindowSeconds   int // quiescence window, default 60
	MaxHistoryCount int // trailing history entries included in prompts
	SweepMinutes    int // maintenance sweep interval
	StaleMinutes    int // buffer age before the sweeper discards it
}

// AutoSendConfig contains automatic-send configuration.
type AutoSendConfig struct {
	Enabled      bool // general auto mode
	VeganEnabled bool // vegan-cohort auto mode
	DelayMinutes int  // deferred-send delay for auto_scheduled entries
	PollSeconds  int  // scheduler poll interval for due entries
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int
}

// StoreConfig contains persistence configuration.
type StoreConfig struct {
	DBPath string
}

// Window returns the quiescence window as a duration.
func (c *BufferConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// SweepInterval returns the maintenance sweep interval.
func (c *BufferConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}

// StaleAge returns the age past which an untouched buffer is discarded.
func (c *BufferConfig) StaleAge() time.Duration {
	return time.Duration(c.StaleMinutes) * time.Minute
}

// Delay returns the deferred-send delay for auto-scheduled entries.
func (c *AutoSendConfig) Delay() time.Duration {
	return time.Duration(c.DelayMinutes) * time.Minute
}

// PollInterval returns the auto-send scheduler poll interval.
func (c *AutoSendConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	dbPath := os.Getenv("SHANBOT_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".shanbot", "shanbot.db")
	}

	return &Config{
		ManyChat: ManyChatConfig{
			APIToken: os.Getenv("MANYCHAT_API_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		},
		Buffer: BufferConfig{
			WindowSeconds:   envInt("BUFFER_WINDOW_SECONDS", 60),
			MaxHistoryCount: envInt("MAX_HISTORY_COUNT", 30),
			SweepMinutes:    envInt("BUFFER_SWEEP_MINUTES", 30),
			StaleMinutes:    envInt("BUFFER_STALE_MINUTES", 120),
		},
		AutoSend: AutoSendConfig{
			Enabled:      os.Getenv("AUTO_MODE") == "true",
			VeganEnabled: os.Getenv("VEGAN_AUTO_MODE") == "true",
			DelayMinutes: envInt("AUTO_SEND_DELAY_MINUTES", 3),
			PollSeconds:  envInt("AUTO_SEND_POLL_SECONDS", 30),
		},
		Server: ServerConfig{
			Port: envInt("PORT", 8001),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ManyChat.APIToken == "" {
		return &ConfigError{Field: "MANYCHAT_API_TOKEN", Message: "required"}
	}
	if c.Gemini.APIKey == "" {
		return &ConfigError{Field: "GEMINI_API_KEY", Message: "required"}
	}
	if c.Buffer.WindowSeconds <= 0 {
		return &ConfigError{Field: "BUFFER_WINDOW_SECONDS", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
