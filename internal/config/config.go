package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Graph    GraphConfig
	Ai       AIConfig
	Search   SearchConfig
	Session  SessionConfig
	HR       HRConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	AllowedEmailDomain string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// GraphConfig holds the Microsoft identity platform app registration.
type GraphConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURL  string
	Scopes       []string
	BaseURL      string
	MaxRetries   int
}

type AIConfig struct {
	EmbeddingProvider string // "openai", "ollama" or "jina"
	EmbeddingModel    string
	OpenAIKey         string
	OpenAIBaseURL     string
	JinaKey           string
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "openai" or "ollama"
	LLMModel          string
	HRModel           string
}

type SearchConfig struct {
	PipelineTimeout    time.Duration
	ExtractConcurrency int
	PageSize           int
	PerformAccessCheck bool
	MailTransport      string // "graph" or "smtp"
	VectorBackend      string // "memory" or "postgres"
	TesseractLanguage  string
}

type SessionConfig struct {
	Store string // "memory" or "redis"
	TTL   time.Duration
}

type HRConfig struct {
	KnowledgeBaseDir string
	AdminEmails      []string
	ReindexTopic     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			AllowedEmailDomain: getEnv("ALLOWED_EMAIL_DOMAIN", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "ECHO Assistant"),
		},
		Graph: GraphConfig{
			ClientID:     getEnv("CLIENT_ID", ""),
			ClientSecret: getEnv("CLIENT_SECRET", ""),
			TenantID:     getEnv("TENANT_ID", "common"),
			RedirectURL:  getEnv("REDIRECT_URI", "http://localhost:3000/getAToken"),
			Scopes:       getEnvAsList("SCOPE", " ", []string{"User.Read", "Files.Read.All", "Sites.Read.All", "Mail.Send", "offline_access"}),
			BaseURL:      getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
			MaxRetries:   getEnvAsInt("GRAPH_MAX_RETRIES", 2),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			JinaKey:           getEnv("JINA_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o"),
			HRModel:           getEnv("HR_LLM_MODEL", "gpt-4"),
		},
		Search: SearchConfig{
			PipelineTimeout:    getEnvAsDuration("SEARCH_PIPELINE_TIMEOUT", 90*time.Second),
			ExtractConcurrency: getEnvAsInt("EXTRACT_CONCURRENCY", 4),
			PageSize:           getEnvAsInt("SEARCH_PAGE_SIZE", 5),
			PerformAccessCheck: getEnvAsBool("PERFORM_ACCESS_CHECK", true),
			MailTransport:      getEnv("MAIL_TRANSPORT", "graph"),
			VectorBackend:      getEnv("VECTOR_BACKEND", "memory"),
			TesseractLanguage:  getEnv("TESSERACT_LANGUAGE", "eng"),
		},
		Session: SessionConfig{
			Store: getEnv("SESSION_STORE", "memory"),
			TTL:   getEnvAsDuration("SESSION_TTL", time.Hour),
		},
		HR: HRConfig{
			KnowledgeBaseDir: getEnv("HR_KB_DIR", "knowledge_base/hr_docs"),
			AdminEmails:      getEnvAsList("HR_ADMIN_EMAILS", ",", nil),
			ReindexTopic:     getEnv("HR_REINDEX_TOPIC", "HR_KB_REINDEX"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key, sep string, fallback []string) []string {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
