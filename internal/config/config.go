package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

// PlaceholderAPIKey is the value shipped in .env.example. It is treated as unset.
const PlaceholderAPIKey = "your_api_key_here"

const DefaultMaxTextLength = 5000

var (
	ErrMissingAPIKey     = errors.New("ELEVENLABS_API_KEY is not set")
	ErrPlaceholderAPIKey = errors.New("ELEVENLABS_API_KEY still holds the placeholder value")
)

// CredentialError reports an unusable provider credential. It unwraps to
// ErrMissingAPIKey or ErrPlaceholderAPIKey.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Kind is always ErrorKindConfiguration.
func (e *CredentialError) Kind() models.ErrorKind {
	return models.ErrorKindConfiguration
}

type Config struct {
	// Server
	APIPort            string
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)
	LogLevel           string
	ShutdownTimeout    time.Duration

	// ElevenLabs
	ElevenLabsKey     string
	ElevenLabsBaseURL string
	ElevenLabsModelID string
	ElevenLabsTimeout time.Duration

	// Generation
	MaxTextLength int
}

// Load reads the environment. A missing credential is not a load failure:
// the server still starts and the proxy endpoints report it per request.
func Load() *Config {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	return &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		ElevenLabsKey:      strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		ElevenLabsBaseURL:  getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModelID:  getEnv("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		ElevenLabsTimeout:  getEnvDuration("ELEVENLABS_TIMEOUT", 90*time.Second),
		MaxTextLength:      getEnvInt("MAX_TEXT_LENGTH", DefaultMaxTextLength),
	}
}

// Credential returns the provider API key, or a *CredentialError when it
// cannot be used.
func (c *Config) Credential() (string, error) {
	switch c.ElevenLabsKey {
	case "":
		return "", &CredentialError{Err: ErrMissingAPIKey}
	case PlaceholderAPIKey:
		return "", &CredentialError{Err: ErrPlaceholderAPIKey}
	}
	return c.ElevenLabsKey, nil
}

// AllowedOrigins splits CorsAllowedOrigins, defaulting to "*".
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0)
	for _, o := range strings.Split(c.CorsAllowedOrigins, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
