package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Provider identifiers accepted in TTS_PROVIDER_ORDER.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	TempDir     string
	OutputDir   string
	UploadDir   string
	CORSOrigins []string
	JWTSecret   string

	// Logging
	LogLevel  string
	LogFormat string

	// Primary speech synthesis (OpenAI)
	OpenAIAPIKeys  []string
	OpenAIBaseURL  string
	OpenAITTSModel string
	DefaultVoice   string
	KeyCooldown    time.Duration

	// Translation (Gemini through its OpenAI-compatible endpoint)
	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiModel        string
	TranslationEnabled bool

	// Fallback speech synthesis (Google Cloud Text-to-Speech)
	GoogleTTSCredentialsFile string
	GoogleTTSUseADC          bool
	GoogleTTSEndpoint        string

	// Provider policy
	ProviderOrder  []string
	EnableFallback bool

	// Input limits
	MaxDescriptionLength int
	MaxVideoSizeMB       int
	AllowedVideoFormats  []string

	// Media tool
	FFmpegPath  string
	FFprobePath string

	// Timeouts
	TranslateTimeout time.Duration
	SynthTimeout     time.Duration
	MediaTimeout     time.Duration
	JobTimeout       time.Duration

	// Job processing
	MaxConcurrentJobs int
	DatabaseURL       string
	RedisURL          string
	JobQueue          string
	CleanupSchedule   string
	OutputRetention   time.Duration
}

// Settings is the per-invocation configuration snapshot handed to the pipeline.
// It is read once when a job starts and never polled mid-pipeline.
type Settings struct {
	DefaultVoice         string
	TranslationEnabled   bool
	MaxDescriptionLength int
	ProviderOrder        []string
	FallbackEnabled      bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		TempDir:     getEnv("TEMP_DIR", "./temp"),
		OutputDir:   getEnv("OUTPUT_DIR", "./outputs"),
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		CORSOrigins: parseList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		OpenAIAPIKeys:  parseList(getEnv("OPENAI_API_KEYS", getEnv("OPENAI_API_KEY", ""))),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITTSModel: getEnv("OPENAI_TTS_MODEL", "tts-1"),
		DefaultVoice:   getEnv("DEFAULT_TTS_VOICE", "nova"),
		KeyCooldown:    getEnvAsDuration("KEY_COOLDOWN", 60*time.Second),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		TranslationEnabled: getEnvAsBool("TRANSLATION_ENABLED", true),

		GoogleTTSCredentialsFile: getEnv("GOOGLE_TTS_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleTTSUseADC:          getEnvAsBool("GOOGLE_TTS_USE_ADC", false),
		GoogleTTSEndpoint:        getEnv("GOOGLE_TTS_ENDPOINT", ""),

		ProviderOrder:  parseLowerList(getEnv("TTS_PROVIDER_ORDER", "openai,google")),
		EnableFallback: getEnvAsBool("ENABLE_TTS_FALLBACK", true),

		MaxDescriptionLength: getEnvAsInt("MAX_DESCRIPTION_LENGTH", 5000),
		MaxVideoSizeMB:       getEnvAsInt("MAX_VIDEO_SIZE_MB", 100),
		AllowedVideoFormats:  parseLowerList(getEnv("ALLOWED_VIDEO_FORMATS", "mp4,mov,avi,mkv,wmv,webm")),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		TranslateTimeout: getEnvAsDuration("TRANSLATE_TIMEOUT", 60*time.Second),
		SynthTimeout:     getEnvAsDuration("SYNTH_TIMEOUT", 2*time.Minute),
		MediaTimeout:     getEnvAsDuration("MEDIA_TIMEOUT", 10*time.Minute),
		JobTimeout:       getEnvAsDuration("JOB_TIMEOUT", time.Hour),

		MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 5),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		JobQueue:          getEnv("JOB_QUEUE", "q_narration_jobs"),
		CleanupSchedule:   getEnv("CLEANUP_SCHEDULE", "@every 1h"),
		OutputRetention:   getEnvAsDuration("OUTPUT_RETENTION", 24*time.Hour),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.MaxDescriptionLength <= 0 {
		return errors.New("MAX_DESCRIPTION_LENGTH must be positive")
	}
	if c.MaxVideoSizeMB <= 0 {
		return errors.New("MAX_VIDEO_SIZE_MB must be positive")
	}
	if c.MaxConcurrentJobs <= 0 {
		return errors.New("MAX_CONCURRENT_JOBS must be positive")
	}
	if c.TranslateTimeout <= 0 || c.SynthTimeout <= 0 || c.MediaTimeout <= 0 || c.JobTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if len(c.ProviderOrder) == 0 {
		return errors.New("TTS_PROVIDER_ORDER must name at least one provider")
	}
	for _, p := range c.ProviderOrder {
		if p != ProviderOpenAI && p != ProviderGoogle {
			return fmt.Errorf("TTS_PROVIDER_ORDER: unknown provider %q", p)
		}
	}
	if len(lo.Uniq(c.ProviderOrder)) != len(c.ProviderOrder) {
		return errors.New("TTS_PROVIDER_ORDER must not repeat a provider")
	}
	if c.DefaultVoice == "" {
		return errors.New("DEFAULT_TTS_VOICE is required")
	}
	if c.OutputRetention <= c.JobTimeout {
		return errors.New("OUTPUT_RETENTION must exceed JOB_TIMEOUT")
	}
	return nil
}

// Settings returns the configuration snapshot for a single pipeline invocation.
func (c *Config) Settings() Settings {
	return Settings{
		DefaultVoice:         c.DefaultVoice,
		TranslationEnabled:   c.TranslationEnabled,
		MaxDescriptionLength: c.MaxDescriptionLength,
		ProviderOrder:        append([]string(nil), c.ProviderOrder...),
		FallbackEnabled:      c.EnableFallback,
	}
}

// HasGoogleTTS reports whether fallback synthesis credentials are configured.
func (c *Config) HasGoogleTTS() bool {
	return c.GoogleTTSCredentialsFile != "" || c.GoogleTTSUseADC
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	secs, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}

func parseList(s string) []string {
	items := lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(items)
}

func parseLowerList(s string) []string {
	return lo.Map(parseList(s), func(item string, _ int) string {
		return strings.ToLower(item)
	})
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, OpenAI Keys: %d, Gemini: %t, Google TTS: %t, Providers: %v, Redis: %t, DB: %t}",
		c.Port, len(c.OpenAIAPIKeys), c.GeminiAPIKey != "", c.HasGoogleTTS(), c.ProviderOrder,
		c.RedisURL != "", c.DatabaseURL != "")
}
