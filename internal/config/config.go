package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	ServiceName string           `yaml:"service_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Store       StoreConfig      `yaml:"store"`
	Recognizer  RecognizerConfig `yaml:"recognizer"`
	AI          AIConfig         `yaml:"ai"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type RecognizerConfig struct {
	Mode              string `yaml:"mode"` // mock, exec
	Command           string `yaml:"command"`
	Language          string `yaml:"language"`
	AudioLevelEveryMS int    `yaml:"audio_level_every_ms"`
}

type AIConfig struct {
	Mode        string  `yaml:"mode"` // mock, gemini, exec
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Command     string  `yaml:"command"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

// PlaceholderAPIKey is the value shipped in sample configs; it never reaches the
// backend.
const PlaceholderAPIKey = "YOUR_API_KEY"

// Configured reports whether the AI backend can actually serve requests. A gemini
// backend with a missing or placeholder key counts as unconfigured.
func (c AIConfig) Configured() bool {
	switch c.Mode {
	case "mock":
		return true
	case "gemini":
		return c.APIKey != "" && c.APIKey != PlaceholderAPIKey
	case "exec":
		return c.Command != ""
	default:
		return false
	}
}

func Default() Config {
	return Config{
		ServiceName: "partsvoice",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        true,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "partsvoice",
		},
		Store: StoreConfig{
			Path: "./data/partsvoice.db",
		},
		Recognizer: RecognizerConfig{
			Mode:              "mock",
			Language:          "en-US",
			AudioLevelEveryMS: 100,
		},
		AI: AIConfig{
			Mode:        "mock",
			Endpoint:    "https://generativelanguage.googleapis.com",
			APIKey:      "",
			Model:       "gemini-1.5-flash",
			MaxTokens:   256,
			Temperature: 0.7,
			TimeoutMS:   30000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "PARTSVOICE_SERVICE_NAME")
	overrideString(&cfg.Environment, "PARTSVOICE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PARTSVOICE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PARTSVOICE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PARTSVOICE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PARTSVOICE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PARTSVOICE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "PARTSVOICE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "PARTSVOICE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PARTSVOICE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PARTSVOICE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PARTSVOICE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PARTSVOICE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PARTSVOICE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PARTSVOICE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PARTSVOICE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "PARTSVOICE_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.Store.Path, "PARTSVOICE_STORE_PATH")
	overrideString(&cfg.Recognizer.Mode, "PARTSVOICE_RECOGNIZER_MODE")
	overrideString(&cfg.Recognizer.Command, "PARTSVOICE_RECOGNIZER_COMMAND")
	overrideString(&cfg.Recognizer.Language, "PARTSVOICE_RECOGNIZER_LANGUAGE")
	overrideInt(&cfg.Recognizer.AudioLevelEveryMS, "PARTSVOICE_RECOGNIZER_AUDIO_LEVEL_EVERY_MS")
	overrideString(&cfg.AI.Mode, "PARTSVOICE_AI_MODE")
	overrideString(&cfg.AI.Endpoint, "PARTSVOICE_AI_ENDPOINT")
	overrideString(&cfg.AI.APIKey, "PARTSVOICE_AI_API_KEY")
	overrideString(&cfg.AI.Model, "PARTSVOICE_AI_MODEL")
	overrideString(&cfg.AI.Command, "PARTSVOICE_AI_COMMAND")
	overrideInt(&cfg.AI.MaxTokens, "PARTSVOICE_AI_MAX_TOKENS")
	overrideFloat(&cfg.AI.Temperature, "PARTSVOICE_AI_TEMPERATURE")
	overrideInt(&cfg.AI.TimeoutMS, "PARTSVOICE_AI_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else {
			if len(cfg.Bus.Servers) == 0 {
				return errors.New("bus.servers must not be empty when embedded mode is disabled")
			}
		}
		if cfg.Bus.SubjectPrefix == "" {
			return errors.New("bus.subject_prefix must not be empty")
		}
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	switch cfg.Recognizer.Mode {
	case "mock", "exec":
	default:
		return errors.New("recognizer.mode must be one of mock|exec")
	}
	if cfg.Recognizer.Mode == "exec" && cfg.Recognizer.Command == "" {
		return errors.New("recognizer.command must be set when mode=exec")
	}
	if cfg.Recognizer.AudioLevelEveryMS < 0 {
		return errors.New("recognizer.audio_level_every_ms must be >= 0")
	}
	switch cfg.AI.Mode {
	case "mock", "gemini", "exec":
	default:
		return errors.New("ai.mode must be one of mock|gemini|exec")
	}
	if cfg.AI.Mode == "gemini" && cfg.AI.Endpoint == "" {
		return errors.New("ai.endpoint must be set when mode=gemini")
	}
	if cfg.AI.Mode == "exec" && cfg.AI.Command == "" {
		return errors.New("ai.command must be set when mode=exec")
	}
	if cfg.AI.MaxTokens < 0 {
		return errors.New("ai.max_tokens must be >= 0")
	}
	if cfg.AI.TimeoutMS <= 0 {
		return errors.New("ai.timeout_ms must be positive")
	}
	return nil
}
