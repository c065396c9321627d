package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Completion CompletionConfig
	Pipeline   PipelineConfig
	Database   DatabaseConfig
	Auth       AuthConfig
}

// Load 从环境变量（以及可选的 CONFIG_FILE）加载配置。
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", file, err)
		}
	}

	return LoadFrom(v)
}

// LoadFrom builds the configuration from an already prepared viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	src := source{v: v}

	server, err := loadServerConfig(src)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(src)
	if err != nil {
		return nil, err
	}

	completion, err := loadCompletionConfig(src)
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig(src)
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig(src)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		AI:         ai,
		Completion: completion,
		Pipeline:   pipeline,
		Database:   DatabaseConfig{Path: src.stringOr("DB_PATH", "aria.db")},
		Auth:       auth,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(src source) (ServerConfig, error) {
	port := src.stringOr("PORT", "8080")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述 Ark 大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig(src source) (AIConfig, error) {
	temperature, err := src.optionalFloat("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := src.optionalFloat("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := src.optionalInt("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      src.string("ARK_API_KEY"),
		AccessKey:   src.string("ARK_ACCESS_KEY"),
		SecretKey:   src.string("ARK_SECRET_KEY"),
		Model:       src.string("ARK_MODEL"),
		BaseURL:     src.stringOr("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      src.stringOr("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

const (
	minProviderTimeout     = 10 * time.Second
	maxProviderTimeout     = 30 * time.Second
	defaultProviderTimeout = 20 * time.Second
)

// CompletionConfig lists the remote providers in priority order.
type CompletionConfig struct {
	Providers   []string
	Timeout     time.Duration
	HuggingFace HuggingFaceConfig
	Ollama      OllamaConfig
	OpenAI      OpenAIConfig
}

// HuggingFaceConfig targets the hosted inference API.
type HuggingFaceConfig struct {
	BaseURL     string
	Model       string
	Token       string
	MaxLength   int
	Temperature float64
}

// OllamaConfig targets a local Ollama instance.
type OllamaConfig struct {
	BaseURL string
	Model   string
}

// OpenAIConfig targets any OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

func loadCompletionConfig(src source) (CompletionConfig, error) {
	timeout := defaultProviderTimeout
	if seconds, err := src.optionalInt("COMPLETION_TIMEOUT"); err != nil {
		return CompletionConfig{}, err
	} else if seconds != nil {
		timeout = ClampTimeout(time.Duration(*seconds) * time.Second)
	}

	maxLength := 100
	if override, err := src.optionalInt("HF_MAX_LENGTH"); err != nil {
		return CompletionConfig{}, err
	} else if override != nil && *override > 0 {
		maxLength = *override
	}

	temperature := 0.8
	if override, err := src.optionalFloat("HF_TEMPERATURE"); err != nil {
		return CompletionConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	return CompletionConfig{
		Providers: splitList(src.string("COMPLETION_PROVIDERS")),
		Timeout:   timeout,
		HuggingFace: HuggingFaceConfig{
			BaseURL:     src.stringOr("HF_BASE_URL", "https://api-inference.huggingface.co/models"),
			Model:       src.stringOr("HF_MODEL", "microsoft/DialoGPT-medium"),
			Token:       src.string("HF_API_TOKEN"),
			MaxLength:   maxLength,
			Temperature: temperature,
		},
		Ollama: OllamaConfig{
			BaseURL: src.stringOr("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:   src.stringOr("OLLAMA_CHAT_MODEL", "llama3.2:3b"),
		},
		OpenAI: OpenAIConfig{
			BaseURL: src.stringOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   src.stringOr("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:  src.string("OPENAI_API_KEY"),
		},
	}, nil
}

// ClampTimeout keeps a provider timeout inside the supported window.
func ClampTimeout(d time.Duration) time.Duration {
	if d < minProviderTimeout {
		return minProviderTimeout
	}
	if d > maxProviderTimeout {
		return maxProviderTimeout
	}
	return d
}

// PipelineConfig tunes the response pipeline.
type PipelineConfig struct {
	MaxMessageLength  int
	MinResponseLength int
	HistoryLimit      int
	RetrainThreshold  int
	KnowledgeFile     string
	PersonasFile      string
	DefaultPersona    string
}

func loadPipelineConfig(src source) (PipelineConfig, error) {
	cfg := PipelineConfig{
		MaxMessageLength:  2000,
		MinResponseLength: 10,
		HistoryLimit:      10,
		RetrainThreshold:  50,
		KnowledgeFile:     src.string("KNOWLEDGE_FILE"),
		PersonasFile:      src.string("PERSONAS_FILE"),
		DefaultPersona:    src.stringOr("DEFAULT_PERSONA", "aria"),
	}

	overrides := []struct {
		key string
		dst *int
	}{
		{"MAX_MESSAGE_LENGTH", &cfg.MaxMessageLength},
		{"MIN_RESPONSE_LENGTH", &cfg.MinResponseLength},
		{"HISTORY_LIMIT", &cfg.HistoryLimit},
		{"RETRAIN_THRESHOLD", &cfg.RetrainThreshold},
	}
	for _, o := range overrides {
		val, err := src.optionalInt(o.key)
		if err != nil {
			return PipelineConfig{}, err
		}
		if val == nil {
			continue
		}
		if *val < 1 {
			return PipelineConfig{}, fmt.Errorf("invalid %s value %d: must be positive", o.key, *val)
		}
		*o.dst = *val
	}
	return cfg, nil
}

// DatabaseConfig 描述 SQLite 存储位置。
type DatabaseConfig struct {
	Path string
}

// AuthConfig 描述 JWT 签发配置。
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func loadAuthConfig(src source) (AuthConfig, error) {
	ttl := 24 * time.Hour
	if hours, err := src.optionalInt("JWT_EXPIRY"); err != nil {
		return AuthConfig{}, err
	} else if hours != nil && *hours > 0 {
		ttl = time.Duration(*hours) * time.Hour
	}

	return AuthConfig{
		JWTSecret: src.string("JWT_SECRET"),
		TokenTTL:  ttl,
	}, nil
}

// source reads keys through viper so env vars and the optional config file
// share one lookup path.
type source struct {
	v *viper.Viper
}

func (s source) lookup(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	value := strings.TrimSpace(s.v.GetString(key))
	if value == "" {
		return "", false
	}
	return value, true
}

func (s source) string(key string) string {
	value, _ := s.lookup(key)
	return value
}

func (s source) stringOr(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s source) optionalFloat(key string) (*float64, error) {
	value, ok := s.lookup(key)
	if !ok {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func (s source) optionalInt(key string) (*int, error) {
	value, ok := s.lookup(key)
	if !ok {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
