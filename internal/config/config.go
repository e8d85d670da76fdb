package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Collections names every MongoDB collection the service touches.
type Collections struct {
	Areas               string
	Companies           string
	Templates           string
	Modules             string
	Prompts             string
	PipelineClaims      string
	FailedNotifications string
	AttachmentBucket    string
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr               string
	MongoURI           string
	MongoDatabase      string
	Collections        Collections
	Timeout            time.Duration
	Timezone           string
	ServerLog          *log.Logger
	JWTConfigs         []JWTConfig
	JWTAudience        string
	AllowedOrigins     []string
	AppBaseURL         string
	MediaBaseURL       string
	OpenAIKey          string
	OpenAIBaseURL      string
	OpenAIModel        string
	ReportTimeout      time.Duration
	PipelineWorkers    int
	PipelineQueueSize  int
	// PipelineRecovery is the interval of the sweep that re-runs areas stuck in completed.
	PipelineRecovery   time.Duration
	AreaChangeStream   bool
	MailGatewayURL     string
	MailFrom           string
	MailTimeout        time.Duration
	MaxAttachmentBytes int64
}

// Load reads the .env file (if any) and environment variables. Missing secrets are fatal.
func Load() Config {
	if err := LoadEnvFile(envOrDefault("ENV_FILE", ".env")); err != nil {
		log.Printf("env ファイルの読み込みに失敗: %v", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	cfg.ServerLog.Printf("loaded config: db=%q appBaseURL=%q mailGateway=%q workers=%d changeStream=%t",
		cfg.MongoDatabase, cfg.AppBaseURL, cfg.MailGatewayURL, cfg.PipelineWorkers, cfg.AreaChangeStream)
	return cfg
}

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	var jwtConfigs []JWTConfig
	issuer := envOrDefault("AUTH_JWT_ISSUER", "journeest-auth")
	if secret := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{Issuer: issuer, Secret: []byte(secret)})
	}
	// 鍵ローテーション中は旧シークレットで署名されたトークンも受け付ける。
	if secret := strings.TrimSpace(os.Getenv("AUTH_JWT_PREVIOUS_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{Issuer: issuer, Secret: []byte(secret)})
	}
	if len(jwtConfigs) == 0 {
		return Config{}, errors.New("JWT secrets not configured. Set AUTH_JWT_SECRET.")
	}

	workers, err := intOrDefault("PIPELINE_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	queueSize, err := intOrDefault("PIPELINE_QUEUE_SIZE", 64)
	if err != nil {
		return Config{}, err
	}
	maxAttachment, err := intOrDefault("MAX_ATTACHMENT_BYTES", 10<<20)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:          envOrDefault("HTTP_ADDR", ":8080"),
		MongoURI:      envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase: envOrDefault("MONGO_DB", "journeest"),
		Collections: Collections{
			Areas:               envOrDefault("AREA_COLLECTION", "areas"),
			Companies:           envOrDefault("COMPANY_COLLECTION", "companies"),
			Templates:           envOrDefault("TEMPLATE_COLLECTION", "templates"),
			Modules:             envOrDefault("MODULE_COLLECTION", "modules"),
			Prompts:             envOrDefault("PROMPT_COLLECTION", "prompts"),
			PipelineClaims:      envOrDefault("PIPELINE_EVENT_COLLECTION", "pipeline_events"),
			FailedNotifications: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
			AttachmentBucket:    envOrDefault("ATTACHMENT_BUCKET", "attachments"),
		},
		Timeout:            durationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		Timezone:           envOrDefault("TIMEZONE", "Europe/Madrid"),
		ServerLog:          log.New(os.Stdout, "[journeest-api] ", log.LstdFlags|log.Lshortfile),
		JWTConfigs:         jwtConfigs,
		JWTAudience:        strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
		AllowedOrigins:     parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		AppBaseURL:         strings.TrimRight(envOrDefault("APP_BASE_URL", "http://localhost:3000"), "/"),
		MediaBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("MEDIA_BASE_URL")), "/"),
		OpenAIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:      strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenAIModel:        envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		ReportTimeout:      durationOrDefault("REPORT_GENERATION_TIMEOUT", 60*time.Second),
		PipelineWorkers:    workers,
		PipelineQueueSize:  queueSize,
		PipelineRecovery:   durationOrDefault("PIPELINE_RECOVERY_INTERVAL", 5*time.Minute),
		AreaChangeStream:   strings.EqualFold(strings.TrimSpace(os.Getenv("AREA_CHANGE_STREAM")), "true"),
		MailGatewayURL:     envOrDefault("MAIL_GATEWAY_URL", "http://mail-gateway:3000"),
		MailFrom:           strings.TrimSpace(os.Getenv("MAIL_FROM")),
		MailTimeout:        durationOrDefault("MAIL_GATEWAY_TIMEOUT", 5*time.Second),
		MaxAttachmentBytes: int64(maxAttachment),
	}
	if cfg.MediaBaseURL == "" {
		cfg.MediaBaseURL = "http://localhost" + cfg.Addr
	}
	if cfg.OpenAIKey == "" {
		cfg.ServerLog.Printf("OPENAI_API_KEY が未設定のためレポート生成は失敗として記録されます")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func intOrDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer: %q", key, raw)
	}
	return parsed, nil
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
