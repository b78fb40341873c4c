// Package config handles loading and validating the scenerelay configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// WorkspacePlaceholder is the sentinel workspace id shipped in sample
// configuration. It is treated the same as an unset workspace.
const WorkspacePlaceholder = "<workspace-id>"

// DefaultIAMURL is the token endpoint used to exchange IAM API keys.
const DefaultIAMURL = "https://iam.cloud.ibm.com/identity/token"

// Config is the root configuration for the scenerelay daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Scene      SceneConfig      `mapstructure:"scene"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds process-wide server settings.
type ServerConfig struct {
	HealthPort int    `mapstructure:"health_port"`
	StaticDir  string `mapstructure:"static_dir"`
	// ForceHTTPS redirects plain-HTTP requests to https. Enabled automatically
	// when BLUEMIX_REGION is present in the environment.
	ForceHTTPS bool `mapstructure:"force_https"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig configures the HTTP relay.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	// Feed enables the GET /ws websocket stream of annotated responses. The
	// stream is unauthenticated and carries every caller's replies, including
	// their conversation context, so it is only for single-user setups.
	Feed bool `mapstructure:"feed"`
	// RateLimit is the sustained requests/second accepted on /api routes.
	// Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Credentials authenticate against a Watson-style service. Username and
// Password select basic auth; otherwise APIKey is exchanged at IAMURL.
type Credentials struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	APIKey   string `mapstructure:"iam_apikey"`
	IAMURL   string `mapstructure:"iam_url"`
}

// UsesBasicAuth reports whether username/password credentials are configured.
func (c Credentials) UsesBasicAuth() bool {
	return c.Username != ""
}

// AssistantConfig configures the intent-classification service.
type AssistantConfig struct {
	WorkspaceID string      `mapstructure:"workspace_id"`
	URL         string      `mapstructure:"url"`
	Version     string      `mapstructure:"version"`
	Credentials Credentials `mapstructure:",squash"`
}

// Configured reports whether a usable workspace id is set.
func (a AssistantConfig) Configured() bool {
	return a.WorkspaceID != "" && a.WorkspaceID != WorkspacePlaceholder
}

// SpeechConfig holds both speech token-issuing services.
type SpeechConfig struct {
	AuthorizationURL string        `mapstructure:"authorization_url"`
	STT              SpeechService `mapstructure:"stt"`
	TTS              SpeechService `mapstructure:"tts"`
}

// SpeechService configures one speech service for which tokens are vended.
type SpeechService struct {
	URL         string      `mapstructure:"url"`
	Credentials Credentials `mapstructure:",squash"`
}

// SceneConfig configures the command dispatcher.
type SceneConfig struct {
	// VocabularyFile overrides the embedded vocabulary when set.
	VocabularyFile string `mapstructure:"vocabulary_file"`
	// ImplicitAdd applies add+recolor whenever both an object and a color
	// are recognized, independently of the declared action.
	ImplicitAdd bool `mapstructure:"implicit_add"`
}

// MetricsConfig configures the Prometheus endpoint on the HTTP transport.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// envBindings maps config keys to the unprefixed environment variables the
// platform and existing deployments use. Earlier names take precedence.
var envBindings = map[string][]string{
	"transports.http.port":   {"PORT"},
	"assistant.workspace_id": {"WORKSPACE_ID", "ASSISTANT_WORKSPACE_ID"},
	"assistant.url":          {"ASSISTANT_URL"},
	"assistant.username":     {"ASSISTANT_USERNAME"},
	"assistant.password":     {"ASSISTANT_PASSWORD"},
	"assistant.iam_apikey":   {"ASSISTANT_IAM_APIKEY"},
	"assistant.iam_url":      {"ASSISTANT_IAM_URL"},
	"speech.stt.url":         {"SPEECH_TO_TEXT_URL"},
	"speech.stt.username":    {"SPEECH_TO_TEXT_USERNAME"},
	"speech.stt.password":    {"SPEECH_TO_TEXT_PASSWORD"},
	"speech.stt.iam_apikey":  {"SPEECH_TO_TEXT_IAM_APIKEY"},
	"speech.stt.iam_url":     {"SPEECH_TO_TEXT_IAM_URL"},
	"speech.tts.url":         {"TEXT_TO_SPEECH_URL"},
	"speech.tts.username":    {"TEXT_TO_SPEECH_USERNAME"},
	"speech.tts.password":    {"TEXT_TO_SPEECH_PASSWORD"},
	"speech.tts.iam_apikey":  {"TEXT_TO_SPEECH_IAM_APIKEY"},
	"speech.tts.iam_url":     {"TEXT_TO_SPEECH_IAM_URL"},
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./scenerelay.yaml, ./configs/scenerelay.yaml, /etc/scenerelay/scenerelay.yaml.
// Platform credentials from VCAP_SERVICES are applied last and override
// explicit settings.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.static_dir", "./public")
	v.SetDefault("server.force_https", false)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 3000)
	v.SetDefault("transports.http.feed", false)
	v.SetDefault("transports.http.rate_limit", 0.0)
	v.SetDefault("transports.http.burst", 20)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("assistant.workspace_id", WorkspacePlaceholder)
	v.SetDefault("assistant.url", "https://gateway.watsonplatform.net/assistant/api")
	v.SetDefault("assistant.version", "2018-07-10")
	v.SetDefault("assistant.iam_url", DefaultIAMURL)
	v.SetDefault("speech.authorization_url", "https://stream.watsonplatform.net/authorization/api/v1/token")
	v.SetDefault("speech.stt.url", "https://stream.watsonplatform.net/speech-to-text/api")
	v.SetDefault("speech.stt.iam_url", DefaultIAMURL)
	v.SetDefault("speech.tts.url", "https://stream.watsonplatform.net/text-to-speech/api")
	v.SetDefault("speech.tts.iam_url", DefaultIAMURL)
	v.SetDefault("scene.vocabulary_file", "")
	v.SetDefault("scene.implicit_add", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("scenerelay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/scenerelay")
	}

	// Environment variables: SCENERELAY_SERVER_HEALTH_PORT, SCENERELAY_ASSISTANT_WORKSPACE_ID, etc.
	v.SetEnvPrefix("SCENERELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings {
		prefixed := "SCENERELAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	// Read config file (optional: env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if os.Getenv("BLUEMIX_REGION") != "" {
		cfg.Server.ForceHTTPS = true
	}

	// Resolve env var references in sensitive fields (e.g., "${ASSISTANT_PASSWORD}")
	for _, c := range []*Credentials{
		&cfg.Assistant.Credentials,
		&cfg.Speech.STT.Credentials,
		&cfg.Speech.TTS.Credentials,
	} {
		c.Password = resolveEnvRef(c.Password)
		c.APIKey = resolveEnvRef(c.APIKey)
	}

	if raw := os.Getenv("VCAP_SERVICES"); raw != "" {
		services, err := ParseVCAP(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing VCAP_SERVICES: %w", err)
		}
		services.Apply(&cfg)
		slog.Info("applied platform service credentials", "services", len(services))
	}

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	SetupLoggingTo(cfg, os.Stdout)
}

// SetupLoggingTo is SetupLogging with an explicit destination.
func SetupLoggingTo(cfg LoggingConfig, w io.Writer) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
