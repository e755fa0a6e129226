package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultReferenceTranscript is the spoken text of the bundled reference sample.
const DefaultReferenceTranscript = "初次见面，我已经关注你很久了。我叫纳西妲，别看我像个孩子，" +
	"我比任何一位大人都了解这个世界。所以，我可以用我的知识，换取你路上的见闻吗？"

type Config struct {
	Server     ServerConfig
	Provider   ProviderConfig
	Models     ModelsConfig
	Generation GenerationConfig
	Voice      VoiceConfig
	Pipeline   PipelineConfig
	DB         DBConfig
	NATS       NATSConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" validate:"required"`
	Port            int           `env:"SERVER_PORT" validate:"min=1,max=65535"`
	CORSOrigins     []string      `env:"SERVER_CORS_ORIGINS"`
	IndexFile       string        `env:"SERVER_INDEX_FILE"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderConfig points at the OpenAI-compatible generation endpoint.
type ProviderConfig struct {
	APIKey  string `env:"SILICONFLOW_API_KEY" validate:"required"`
	BaseURL string `env:"SILICONFLOW_BASE_URL" validate:"required,url"`
}

type ModelsConfig struct {
	Chat           string `env:"CHAT_MODEL" validate:"required"`
	PromptEngineer string `env:"PROMPT_ENGINEER_MODEL" validate:"required"`
	Image          string `env:"IMAGE_MODEL" validate:"required"`
	Speech         string `env:"TTS_MODEL" validate:"required"`
}

type GenerationConfig struct {
	MaxTokens      int     `env:"MAX_TOKENS" validate:"gt=0"`
	Temperature    float64 `env:"TEMPERATURE" validate:"gte=0,lte=2"`
	ArtMaxTokens   int     `env:"ART_MAX_TOKENS" validate:"gt=0"`
	ArtTemperature float64 `env:"ART_TEMPERATURE" validate:"gte=0,lte=2"`
	ImageSize      string  `env:"IMAGE_SIZE" validate:"required"`
	SpeechFormat   string  `env:"SPEECH_FORMAT" validate:"oneof=mp3 wav opus flac aac pcm"`
}

type VoiceConfig struct {
	ReferencePath string `env:"REFERENCE_AUDIO_PATH" validate:"required"`
	Transcript    string `env:"TEXT_IN_REFERENCE_AUDIO" validate:"required"`
}

type PipelineConfig struct {
	NegativePrompts bool   `env:"PIPELINE_NEGATIVE_PROMPTS"`
	PersonaFile     string `env:"PERSONA_FILE"`
}

// DBConfig configures the optional run journal. An empty Host disables it.
type DBConfig struct {
	Host           string `env:"DB_HOST"`
	Port           int    `env:"DB_PORT" validate:"omitempty,min=1,max=65535"`
	User           string `env:"DB_USER"`
	Password       string `env:"DB_PASSWORD" validate:"required_with=Host"`
	Name           string `env:"DB_NAME"`
	SSLMode        string `env:"DB_SSLMODE"`
	MaxConns       int32  `env:"DB_MAX_CONNS"`
	MigrationsPath string `env:"DB_MIGRATIONS_PATH"`
}

func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// NATSConfig configures optional run-event publishing. An empty URL disables it.
type NATSConfig struct {
	URL string `env:"NATS_URL" validate:"omitempty,url"`
}

func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `env:"LOG_FORMAT" validate:"oneof=text json"`
}

func Load() (*Config, error) {
	return load(".env")
}

// envKey maps FOO_BAR to foo.bar for both .env files and the environment.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "."))
}

func load(dotenvPath string) (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(dotenvPath), dotenv.ParserEnv("", ".", envKey))

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        k.String("server.host"),
			Port:        k.Int("server.port"),
			CORSOrigins: splitList(k.String("server.cors.origins")),
			IndexFile:   k.String("server.index.file"),
		},
		Provider: ProviderConfig{
			APIKey:  k.String("siliconflow.api.key"),
			BaseURL: k.String("siliconflow.base.url"),
		},
		Models: ModelsConfig{
			Chat:           k.String("chat.model"),
			PromptEngineer: k.String("prompt.engineer.model"),
			Image:          k.String("image.model"),
			Speech:         k.String("tts.model"),
		},
		Generation: GenerationConfig{
			MaxTokens:      k.Int("max.tokens"),
			Temperature:    k.Float64("temperature"),
			ArtMaxTokens:   k.Int("art.max.tokens"),
			ArtTemperature: k.Float64("art.temperature"),
			ImageSize:      k.String("image.size"),
			SpeechFormat:   k.String("speech.format"),
		},
		Voice: VoiceConfig{
			ReferencePath: k.String("reference.audio.path"),
			Transcript:    k.String("text.in.reference.audio"),
		},
		Pipeline: PipelineConfig{
			NegativePrompts: k.Bool("pipeline.negative.prompts"),
			PersonaFile:     k.String("persona.file"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 1027
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.siliconflow.cn/v1"
	}
	if cfg.Models.Chat == "" {
		cfg.Models.Chat = "deepseek-ai/DeepSeek-V3.1"
	}
	if cfg.Models.PromptEngineer == "" {
		cfg.Models.PromptEngineer = "zai-org/GLM-4.5"
	}
	if cfg.Models.Image == "" {
		cfg.Models.Image = "Qwen/Qwen-Image"
	}
	if cfg.Models.Speech == "" {
		cfg.Models.Speech = "IndexTeam/IndexTTS-2"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 2048
	}
	if !k.Exists("temperature") {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Generation.ArtMaxTokens == 0 {
		cfg.Generation.ArtMaxTokens = 200
	}
	if !k.Exists("art.temperature") {
		cfg.Generation.ArtTemperature = 0.5
	}
	if cfg.Generation.ImageSize == "" {
		cfg.Generation.ImageSize = "928x1664"
	}
	if cfg.Generation.SpeechFormat == "" {
		cfg.Generation.SpeechFormat = "mp3"
	}
	if cfg.Voice.ReferencePath == "" {
		cfg.Voice.ReferencePath = "Ref_audio.mp3"
	}
	if cfg.Voice.Transcript == "" {
		cfg.Voice.Transcript = DefaultReferenceTranscript
	}
	if cfg.DB.Enabled() {
		if cfg.DB.Port == 0 {
			cfg.DB.Port = 5432
		}
		if cfg.DB.User == "" {
			cfg.DB.User = "nahida"
		}
		if cfg.DB.Name == "" {
			cfg.DB.Name = "nahida"
		}
		if cfg.DB.SSLMode == "" {
			cfg.DB.SSLMode = "disable"
		}
		if cfg.DB.MaxConns == 0 {
			cfg.DB.MaxConns = 5
		}
		if cfg.DB.MigrationsPath == "" {
			cfg.DB.MigrationsPath = "migrations"
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	shutdownStr := k.String("server.shutdown.timeout")
	if shutdownStr == "" {
		shutdownStr = "30s"
	}
	var err error
	cfg.Server.ShutdownTimeout, err = time.ParseDuration(shutdownStr)
	if err != nil {
		return nil, fmt.Errorf("parsing server shutdown timeout: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
