package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	TTS       TTSConfig
	Catalog   CatalogConfig
	R2        R2Config
	Encoder   EncoderConfig
	Worker    WorkerConfig
	Audio     AudioConfig
	Edits     EditsConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type DatabaseConfig struct {
	Path string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	RenderPerHour int
	EditPerHour   int
}

type TTSConfig struct {
	OpenAI     OpenAIConfig
	ElevenLabs ElevenLabsConfig
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
}

type CatalogConfig struct {
	BaseURL string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type EncoderConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type WorkerConfig struct {
	Secret          string
	BatchSize       int
	ClaimDelayMs    int
	LeaseTimeoutMin int
}

type AudioConfig struct {
	SampleRate       int
	TargetRMSDb      float64
	LimiterCeilingDb float64
}

type EditsConfig struct {
	FreeLimit int
	FeeCents  int
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("OPENAI_API_KEY")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("WORKER_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ratelimit.render_per_hour", "RATE_LIMIT_RENDER_PER_HOUR")
	_ = viper.BindEnv("ratelimit.edit_per_hour", "RATE_LIMIT_EDIT_PER_HOUR")
	_ = viper.BindEnv("audio.sample_rate", "AUDIO_SAMPLE_RATE")
	_ = viper.BindEnv("audio.target_rms_db", "AUDIO_TARGET_RMS_DB")
	_ = viper.BindEnv("audio.limiter_ceiling_db", "AUDIO_LIMITER_CEILING_DB")
	_ = viper.BindEnv("edits.free_limit", "EDITS_FREE_LIMIT")
	_ = viper.BindEnv("edits.fee_cents", "EDITS_FEE_CENTS")
	_ = viper.BindEnv("tts.openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("tts.openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("tts.elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("tts.elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("catalog.base_url", "CATALOG_BASE_URL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("encoder.service_url", "ENCODER_SERVICE_URL")
	_ = viper.BindEnv("encoder.timeout", "ENCODER_TIMEOUT")
	_ = viper.BindEnv("worker.secret", "WORKER_SECRET")
	_ = viper.BindEnv("worker.batch_size", "WORKER_BATCH_SIZE")
	_ = viper.BindEnv("worker.claim_delay_ms", "WORKER_CLAIM_DELAY_MS")
	_ = viper.BindEnv("worker.lease_timeout_min", "WORKER_LEASE_TIMEOUT_MIN")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("database.path", "data/stillmind.db")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.render_per_hour", 10)
	viper.SetDefault("ratelimit.edit_per_hour", 20)

	// TTS defaults
	viper.SetDefault("tts.openai.base_url", "https://api.openai.com")
	viper.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io")

	// Encoder defaults
	viper.SetDefault("encoder.timeout", 120)

	// Worker defaults
	viper.SetDefault("worker.batch_size", 5)
	viper.SetDefault("worker.claim_delay_ms", 1000)
	viper.SetDefault("worker.lease_timeout_min", 10)

	// Audio defaults
	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.target_rms_db", -16.0)
	viper.SetDefault("audio.limiter_ceiling_db", -1.0)

	// Edit defaults
	viper.SetDefault("edits.free_limit", 3)
	viper.SetDefault("edits.fee_cents", 299)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			RenderPerHour: viper.GetInt("ratelimit.render_per_hour"),
			EditPerHour:   viper.GetInt("ratelimit.edit_per_hour"),
		},
		TTS: TTSConfig{
			OpenAI: OpenAIConfig{
				APIKey:  viper.GetString("tts.openai.api_key"),
				BaseURL: viper.GetString("tts.openai.base_url"),
			},
			ElevenLabs: ElevenLabsConfig{
				APIKey:  viper.GetString("tts.elevenlabs.api_key"),
				BaseURL: viper.GetString("tts.elevenlabs.base_url"),
			},
		},
		Catalog: CatalogConfig{
			BaseURL: viper.GetString("catalog.base_url"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Encoder: EncoderConfig{
			ServiceURL: viper.GetString("encoder.service_url"),
			Timeout:    viper.GetInt("encoder.timeout"),
		},
		Worker: WorkerConfig{
			Secret:          viper.GetString("worker.secret"),
			BatchSize:       viper.GetInt("worker.batch_size"),
			ClaimDelayMs:    viper.GetInt("worker.claim_delay_ms"),
			LeaseTimeoutMin: viper.GetInt("worker.lease_timeout_min"),
		},
		Audio: AudioConfig{
			SampleRate:       viper.GetInt("audio.sample_rate"),
			TargetRMSDb:      viper.GetFloat64("audio.target_rms_db"),
			LimiterCeilingDb: viper.GetFloat64("audio.limiter_ceiling_db"),
		},
		Edits: EditsConfig{
			FreeLimit: viper.GetInt("edits.free_limit"),
			FeeCents:  viper.GetInt("edits.fee_cents"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}
