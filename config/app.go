package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// App is the process configuration assembled from the environment (and .env when present).
type App struct {
	Port        string
	LogLevel    string
	AutoMigrate bool

	PostgresURI        string
	PostgresServiceURI string // elevated credentials; falls back to PostgresURI
	RedisAddr          string
	MongoURI           string
	MongoDB            string

	LLMProvider    string // gemini|vertex
	GeminiAPIKey   string
	GeminiModel    string
	VertexProject  string
	VertexLocation string

	VoiceAPIKey          string
	VoicePipelineID      string
	VoiceAuthURL         string
	VoiceWebhookSecret   string
	VoiceFallbackRouting bool
	VoiceSessionTTL      time.Duration

	STTEnabled bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AnalysisWorkers int
	AnalysisLockTTL time.Duration
	ResultsViewTTL  time.Duration
	BufferTTL       time.Duration

	DemoRoles      []string
	AllowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("MONGO_DB", "mockinterview")
	v.SetDefault("LLM_PROVIDER", "gemini")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("VERTEX_LOCATION", "us-central1")
	v.SetDefault("VOICE_AUTH_URL", "https://api.layercode.com/v1/pipelines/authorize_session")
	v.SetDefault("VOICE_FALLBACK_ROUTING", true)
	v.SetDefault("VOICE_SESSION_TTL", "2h")
	v.SetDefault("STT_ENABLED", false)
	v.SetDefault("ANALYSIS_WORKERS", 2)
	v.SetDefault("ANALYSIS_LOCK_TTL", "5m")
	v.SetDefault("RESULTS_VIEW_TTL", "10m")
	v.SetDefault("BUFFER_TTL", "1h")
	v.SetDefault("DEMO_ROLES", "user,admin")
}

// Load reads .env (if any) and the process environment.
func Load() (*App, error) {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper builds App from an already-populated viper instance; environment variables
// override anything set on v.
func FromViper(v *viper.Viper) (*App, error) {
	v.AutomaticEnv()
	setDefaults(v)

	redisAddr := firstNonEmpty(v.GetString("REDIS_ADDR"), v.GetString("REDIS_URI"), v.GetString("REDIS_URL"))

	cfg := &App{
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		AutoMigrate: v.GetBool("AUTO_MIGRATE"),

		PostgresURI:        v.GetString("POSTGRES_URI"),
		PostgresServiceURI: v.GetString("POSTGRES_SERVICE_URI"),
		RedisAddr:          redisAddr,
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDB:            v.GetString("MONGO_DB"),

		LLMProvider:    strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
		GeminiModel:    v.GetString("GEMINI_MODEL"),
		VertexProject:  v.GetString("VERTEX_PROJECT"),
		VertexLocation: v.GetString("VERTEX_LOCATION"),

		VoiceAPIKey:          v.GetString("VOICE_API_KEY"),
		VoicePipelineID:      v.GetString("VOICE_PIPELINE_ID"),
		VoiceAuthURL:         v.GetString("VOICE_AUTH_URL"),
		VoiceWebhookSecret:   v.GetString("VOICE_WEBHOOK_SECRET"),
		VoiceFallbackRouting: v.GetBool("VOICE_FALLBACK_ROUTING"),
		VoiceSessionTTL:      v.GetDuration("VOICE_SESSION_TTL"),

		STTEnabled: v.GetBool("STT_ENABLED"),

		JWTSecret:   v.GetString("SUPABASE_JWT_SECRET"),
		JWTIssuer:   v.GetString("SUPABASE_JWT_ISSUER"),
		JWTAudience: v.GetString("SUPABASE_JWT_AUDIENCE"),

		AnalysisWorkers: v.GetInt("ANALYSIS_WORKERS"),
		AnalysisLockTTL: v.GetDuration("ANALYSIS_LOCK_TTL"),
		ResultsViewTTL:  v.GetDuration("RESULTS_VIEW_TTL"),
		BufferTTL:       v.GetDuration("BUFFER_TTL"),

		DemoRoles:      splitList(v.GetString("DEMO_ROLES")),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
	}

	if cfg.PostgresServiceURI == "" {
		cfg.PostgresServiceURI = cfg.PostgresURI
	}
	return cfg, cfg.Validate()
}

// Validate reports missing settings the server cannot start without.
func (c *App) Validate() error {
	var errs []error
	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI environment variable is not set"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set"))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI environment variable is not set"))
	}
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	case "vertex":
		if c.VertexProject == "" {
			errs = append(errs, errors.New("VERTEX_PROJECT is required when LLM_PROVIDER=vertex"))
		}
	default:
		errs = append(errs, errors.New("LLM_PROVIDER must be gemini or vertex"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET environment variable is not set"))
	}
	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
