package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type serverConfig struct {
	Port        int    `koanf:"port" validate:"required"`
	Concurrency int    `koanf:"concurrency" validate:"required"`
	BodyLimit   int    `koanf:"body_limit" validate:"required"`
	AppName     string `koanf:"app_name" validate:"required"`
}

type LogLevel string

const (
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
	Fatal LogLevel = "fatal"
	Panic LogLevel = "panic"
)

type Module string

const (
	ModuleMilvus    Module = "milvus"
	ModuleIngest    Module = "ingest"
	ModuleDatabase  Module = "database"
	ModuleOpenAI    Module = "openai"
	ModuleBedrock   Module = "bedrock"
	ModuleS3        Module = "s3"
	ModuleServer    Module = "server"
	ModuleSetting   Module = "setting"
	ModuleRetriever Module = "retriever"
	ModuleVector    Module = "vector"
	ModuleHistory   Module = "history"
	ModuleGenerator Module = "generator"
	ModuleEmbedding Module = "embedding"
	ModuleLLM       Module = "llm"
	ModuleQuestion  Module = "question"
)

type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
)

type providerConfig struct {
	Embedding Provider `koanf:"embedding" validate:"required,oneof=openai bedrock"`
	Chat      Provider `koanf:"chat" validate:"required,oneof=openai bedrock"`
}

type openaiConfig struct {
	Key            string `koanf:"key"`
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model" validate:"required"`
	EmbeddingModel string `koanf:"embedding_model" validate:"required"`
}

type bedrockConfig struct {
	Region         string `koanf:"region" validate:"required"`
	AccessKey      string `koanf:"access_key"`
	SecretKey      string `koanf:"secret_key"`
	EmbeddingModel string `koanf:"embedding_model" validate:"required"`
	ChatModel      string `koanf:"chat_model" validate:"required"`
}

type vectorConfig struct {
	Backend string `koanf:"backend" validate:"required,oneof=local milvus"`
	Metric  string `koanf:"metric" validate:"required,oneof=l2 cosine"`
}

type milvusConfig struct {
	Address         string          `koanf:"address" validate:"required"`
	IndexHNSWConfig indexHNSWConfig `koanf:"index_hnsw_config"`
}

type indexHNSWConfig struct {
	M              int `koanf:"m" validate:"required"`
	EfConstruction int `koanf:"ef_construction" validate:"required"`
	Ef             int `koanf:"ef" validate:"required"`
}

type databaseConfig struct {
	Driver       string `koanf:"driver" validate:"required,oneof=sqlite mysql"`
	Path         string `koanf:"path"`
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"required"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"required"`
	MaxLifetime  int    `koanf:"max_lifetime" validate:"required"`

	// Replicas are read-only MySQL DSNs routed through dbresolver.
	Replicas []string `koanf:"replicas"`
}

type historyConfig struct {
	Backend string `koanf:"backend" validate:"required,oneof=file s3"`
	Path    string `koanf:"path" validate:"required"`
	S3Key   string `koanf:"s3_key" validate:"required"`
}

type s3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region" validate:"required"`
	Bucket    string `koanf:"bucket"`
}

type generationConfig struct {
	Temperature float32 `koanf:"temperature"`
	TopP        float32 `koanf:"top_p"`
	MaxTokens   int     `koanf:"max_tokens" validate:"required"`
	Exemplars   int     `koanf:"exemplars" validate:"required,min=1"`
}

type cacheConfig struct {
	EmbeddingSize int `koanf:"embedding_size"`
}

type breakerConfig struct {
	MaxFailures uint32 `koanf:"max_failures"`
	OpenSeconds int    `koanf:"open_seconds"`
}

type ingestConfig struct {
	ChunkTokens  int    `koanf:"chunk_tokens" validate:"required"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
	UploadDir    string `koanf:"upload_dir" validate:"required"`
}

type config struct {
	Server     serverConfig     `koanf:"server"`
	LogLevel   LogLevel         `koanf:"log_level"`
	Provider   providerConfig   `koanf:"provider"`
	OpenAI     openaiConfig     `koanf:"openai"`
	Bedrock    bedrockConfig    `koanf:"bedrock"`
	Vector     vectorConfig     `koanf:"vector"`
	Milvus     milvusConfig     `koanf:"milvus"`
	Database   databaseConfig   `koanf:"database"`
	Dsn        string           `koanf:"dsn"`
	History    historyConfig    `koanf:"history"`
	S3         s3Config         `koanf:"s3"`
	Generation generationConfig `koanf:"generation"`
	Cache      cacheConfig      `koanf:"cache"`
	Breaker    breakerConfig    `koanf:"breaker"`
	Ingest     ingestConfig     `koanf:"ingest"`
}

func buildMySQLDSN(cfg databaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

var defaultConfig = config{
	Server: serverConfig{
		Port:        8000,
		Concurrency: 256,
		BodyLimit:   4 * 1024 * 1024,
		AppName:     "jlpt-listening",
	},
	LogLevel: Info,
	Provider: providerConfig{
		Embedding: ProviderBedrock,
		Chat:      ProviderBedrock,
	},
	OpenAI: openaiConfig{
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
	},
	Bedrock: bedrockConfig{
		Region:         "us-east-1",
		EmbeddingModel: "amazon.titan-embed-text-v1",
		ChatModel:      "amazon.nova-micro-v1:0",
	},
	Vector: vectorConfig{
		Backend: "local",
		Metric:  "l2",
	},
	Milvus: milvusConfig{
		Address: "localhost:19530",
		IndexHNSWConfig: indexHNSWConfig{
			M:              16,
			EfConstruction: 200,
			Ef:             64,
		},
	},
	Database: databaseConfig{
		Driver:       "sqlite",
		Path:         "storage/vector_storage.db",
		Host:         "127.0.0.1",
		Port:         3306,
		User:         "root",
		Name:         "jlpt",
		MaxIdleConns: 2,
		MaxOpenConns: 4,
		MaxLifetime:  30,
	},
	History: historyConfig{
		Backend: "file",
		Path:    "storage/question_history.json",
		S3Key:   "history/question_history.json",
	},
	S3: s3Config{
		Endpoint: "http://localhost:9000",
		Region:   "us-east-1",
		Bucket:   "jlpt",
	},
	Generation: generationConfig{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   500,
		Exemplars:   2,
	},
	Cache: cacheConfig{
		EmbeddingSize: 256,
	},
	Breaker: breakerConfig{
		MaxFailures: 5,
		OpenSeconds: 30,
	},
	Ingest: ingestConfig{
		ChunkTokens:  600,
		ChunkOverlap: 80,
		UploadDir:    "storage/transcripts",
	},
}

var (
	Cfg     = defaultConfig
	once    sync.Once
	initErr error
)

// Init loads defaults, the YAML file at path (if present) and APP_ environment
// overrides, then validates the result. Only the first call has an effect.
func Init(path string) error {
	once.Do(func() {
		initErr = load(path)
	})
	return initErr
}

func load(path string) error {
	k := koanf.New(".")
	validate := validator.New()

	// defaults
	Cfg = defaultConfig

	// file
	if e := k.Load(file.Provider(path), yaml.Parser()); e != nil && !errors.Is(e, os.ErrNotExist) {
		return fmt.Errorf("%v: load %s: %w", ModuleSetting, path, e)
	}

	// env APP_SERVER_PORT -> server.port
	if e := k.Load(env.Provider("APP_", ".", envKey), nil); e != nil {
		return fmt.Errorf("%v: load env: %w", ModuleSetting, e)
	}

	// bind
	if e := k.Unmarshal("", &Cfg); e != nil {
		return fmt.Errorf("%v: unmarshal config: %w", ModuleSetting, e)
	}

	if Cfg.Dsn == "" && Cfg.Database.Driver == "mysql" {
		Cfg.Dsn = buildMySQLDSN(Cfg.Database)
	}

	return validateConfig(validate, Cfg)
}

var sections = map[string]bool{
	"server": true, "provider": true, "openai": true, "bedrock": true, "vector": true,
	"milvus": true, "database": true, "history": true, "s3": true, "generation": true,
	"cache": true, "breaker": true, "ingest": true,
}

// envKey maps APP_GENERATION_MAX_TOKENS to generation.max_tokens and
// APP_LOG_LEVEL to log_level.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "APP_"))
	section, rest, ok := strings.Cut(key, "_")
	if ok && sections[section] {
		return section + "." + rest
	}
	return key
}

func validateConfig(validate *validator.Validate, c config) error {
	e := validate.Struct(c)
	if e == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(e, &errs) {
		return fmt.Errorf("%v: config validation failed: %w", ModuleSetting, e)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%v: config validation failed:\n", ModuleSetting))
	for _, fe := range errs {
		sb.WriteString(
			fmt.Sprintf("  • %s: failed '%s' (value: %v)\n", fe.Namespace(), fe.Tag(), fe.Value()),
		)
	}
	return errors.New(strings.TrimRight(sb.String(), "\n"))
}
