// Package config provides configuration loading, validation, and management for solarassess.
//
// A single global Config is loaded from <projectDir>/.solar/config.json at startup and
// held in memory behind a RWMutex. GetConfig returns it BY VALUE so callers cannot mutate
// shared state; updates go through the Update* functions, which validate and persist.
//
// Missing files are created with defaults. Existing files get defaults applied for any
// missing section and are written back, so older configs pick up new settings.
//
//	err := config.LoadConfig(projectDir)
//	cfg, err := config.GetConfig()
//	provider, err := config.GetModelProvider(cfg.Providers.TextModel)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"solarassess/pkg/logx"
)

// Global config instance with mutex protection.
// projectDir is set once during LoadConfig and never changes.
//
//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config     *Config
	projectDir string
	logger     *logx.Logger
	loggerOnce sync.Once
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	loggerOnce.Do(func() {
		logger = logx.NewLogger("config")
	})
	return logger
}

// LogInfo logs an info message using the config logger.
func LogInfo(format string, args ...interface{}) {
	getLogger().Info(format, args...)
}

const (
	// SchemaVersion is bumped whenever the on-disk layout changes incompatibly.
	SchemaVersion = "1.0"

	// ProjectConfigDir holds config, secrets, history and artifacts under the project root.
	ProjectConfigDir = ".solar"
	// ProjectConfigFilename is the config file name inside ProjectConfigDir.
	ProjectConfigFilename = "config.json"
)

// Providers.
const (
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Environment variables consulted after the secrets file.
const (
	EnvGoogleAPIKey    = "GEMINI_API_KEY"
	EnvLegacyAPIKey    = "API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvPassword        = "SOLAR_PASSWORD"
)

// Default models.
const (
	ModelGeminiFlash   = "gemini-2.5-flash"
	ModelImagen4       = "imagen-4.0-generate-001"
	DefaultTextModel   = ModelGeminiFlash
	DefaultImageModel  = ModelImagen4
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultAspectRatio = "16:9"
	DefaultImageMIME   = "image/jpeg"
	DefaultWebUIHost   = "localhost"
	DefaultWebUIPort   = 8080
	DefaultHistoryDB   = "history.db"
	DefaultArtifactDir = "artifacts"
)

// Model kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

// ModelInfo contains static information about a known model.
// This data is hardcoded in the application, not user-configurable.
type ModelInfo struct {
	Provider        string // API provider
	Kind            string // text or image
	MaxOutputTokens int    // Maximum output tokens per request (text only)
}

// KnownModels registry contains provider information for common models.
// Unknown models are inferred via ProviderPatterns.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	ModelGeminiFlash:                {Provider: ProviderGoogle, Kind: KindText, MaxOutputTokens: 65536},
	"gemini-2.5-pro":                {Provider: ProviderGoogle, Kind: KindText, MaxOutputTokens: 65536},
	"gemini-2.0-flash":              {Provider: ProviderGoogle, Kind: KindText, MaxOutputTokens: 8192},
	ModelImagen4:                    {Provider: ProviderGoogle, Kind: KindImage},
	"imagen-4.0-fast-generate-001":  {Provider: ProviderGoogle, Kind: KindImage},
	"imagen-4.0-ultra-generate-001": {Provider: ProviderGoogle, Kind: KindImage},
	"imagen-3.0-generate-002":       {Provider: ProviderGoogle, Kind: KindImage},
	"claude-sonnet-4-5":             {Provider: ProviderAnthropic, Kind: KindText, MaxOutputTokens: 8192},
	"claude-haiku-4-5":              {Provider: ProviderAnthropic, Kind: KindText, MaxOutputTokens: 8192},
	"gpt-4.1":                       {Provider: ProviderOpenAI, Kind: KindText, MaxOutputTokens: 32768},
	"gpt-4.1-mini":                  {Provider: ProviderOpenAI, Kind: KindText, MaxOutputTokens: 32768},
	"gpt-5":                         {Provider: ProviderOpenAI, Kind: KindText, MaxOutputTokens: 128000},
	"llama3.1":                      {Provider: ProviderOllama, Kind: KindText, MaxOutputTokens: 4096},
}

// ProviderPattern represents a pattern for inferring provider from model name.
type ProviderPattern struct {
	Prefix   string
	Provider string
	Kind     string
}

// ProviderPatterns defines rules for inferring providers from unknown model names.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"gemini", ProviderGoogle, KindText},
	{"imagen", ProviderGoogle, KindImage},
	{"claude", ProviderAnthropic, KindText},
	{"gpt", ProviderOpenAI, KindText},
	{"o3", ProviderOpenAI, KindText},
	{"o4", ProviderOpenAI, KindText},
	{"llama", ProviderOllama, KindText},
	{"qwen", ProviderOllama, KindText},
	{"mistral", ProviderOllama, KindText},
	{"phi", ProviderOllama, KindText},
	{"ollama:", ProviderOllama, KindText}, // Explicit prefix like "ollama:gemma3"
}

// GetModelInfo returns the ModelInfo for a model, inferring it from ProviderPatterns
// when the model is not registered. The bool reports whether the model is known.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ModelInfo{
				Provider:        ProviderPatterns[i].Provider,
				Kind:            ProviderPatterns[i].Kind,
				MaxOutputTokens: 4096,
			}, false
		}
	}
	return ModelInfo{}, false
}

// GetModelProvider returns the API provider for a given model.
func GetModelProvider(modelName string) (string, error) {
	info, _ := GetModelInfo(modelName)
	if info.Provider == "" {
		return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match - cannot determine API provider", modelName)
	}
	return info.Provider, nil
}

// Config is the complete on-disk configuration.
type Config struct {
	SchemaVersion string            `json:"schema_version"`
	Providers     *ProvidersConfig  `json:"providers"`
	Generation    *GenerationConfig `json:"generation"`
	WebUI         *WebUIConfig      `json:"webui"`
	History       *HistoryConfig    `json:"history"`
	Metrics       *MetricsConfig    `json:"metrics"`
	Debug         *DebugConfig      `json:"debug"`
	Artifacts     *ArtifactsConfig  `json:"artifacts"`
}

// ProvidersConfig selects the models used by the gateway.
type ProvidersConfig struct {
	TextModel  string `json:"text_model"`  // Score and proposal model (default: gemini-2.5-flash)
	ImageModel string `json:"image_model"` // Always a Google Imagen model (default: imagen-4.0-generate-001)
	OllamaHost string `json:"ollama_host"` // Only used when text_model is an Ollama model
}

// GenerationConfig contains image and prompt settings.
type GenerationConfig struct {
	AspectRatio    string `json:"aspect_ratio"`           // default: 16:9
	OutputMIMEType string `json:"output_mime_type"`       // default: image/jpeg
	PromptsFile    string `json:"prompts_file,omitempty"` // Optional YAML catalogue overriding built-in prompts
}

// WebUIConfig contains web UI server settings.
type WebUIConfig struct {
	Enabled bool   `json:"enabled"` // Whether web UI is enabled (default: true)
	Host    string `json:"host"`    // Host to bind to (default: "localhost")
	Port    int    `json:"port"`    // Port to listen on (default: 8080)
}

// HistoryConfig controls the sqlite assessment history.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBFile  string `json:"db_file"` // Relative paths resolve under .solar/
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// DebugConfig controls debug logging.
type DebugConfig struct {
	Enabled bool     `json:"enabled"`
	Domains []string `json:"domains,omitempty"`
}

// ArtifactsConfig controls export of generated images and proposals to disk.
type ArtifactsConfig struct {
	Enabled   bool   `json:"enabled"`
	OutputDir string `json:"output_dir"` // Relative paths resolve under .solar/
}

// GetProjectDir returns the project directory set by LoadConfig.
func GetProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

// ResolvePath resolves a config-relative path under <projectDir>/.solar.
func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(GetProjectDir(), ProjectConfigDir, path)
}

// GetConfig returns the current global config BY VALUE (copy, not reference).
// Must call LoadConfig first to initialize the global config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	return *config, nil
}

// SetConfigForTesting sets the global config for testing purposes.
// Pass nil to reset.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
	if cfg == nil {
		projectDir = ""
	}
}

// LoadConfig loads <projectDir>/.solar/config.json into the global singleton.
//
// Behavior:
// - Missing file: Creates new config with defaults and saves it
// - Existing file: Loads and validates, applying defaults for missing fields
// - Unparseable file: Returns error to avoid overwriting user changes
func LoadConfig(inputProjectDir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = inputProjectDir
	configPath := filepath.Join(projectDir, ProjectConfigDir, ProjectConfigFilename)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		getLogger().Info("Config file not found, creating new config at %s", configPath)
		config = createDefaultConfig()
		if err := validateConfig(config); err != nil {
			return fmt.Errorf("default config validation failed: %w", err)
		}
		if err := saveConfigLocked(); err != nil {
			return fmt.Errorf("failed to save initial config: %w", err)
		}
		return nil
	}

	getLogger().Info("Loading config from %s", configPath)
	loadedConfig, err := loadConfigFromFile(configPath)
	if err != nil {
		return fmt.Errorf("fatal: config file exists but cannot be parsed (to avoid overwriting your changes): %w", err)
	}

	applyDefaults(loadedConfig)
	if err := validateConfig(loadedConfig); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config = loadedConfig

	if err := saveConfigLocked(); err != nil {
		return fmt.Errorf("failed to save config with applied defaults: %w", err)
	}

	getLogger().Info("Config loaded: text_model=%s image_model=%s", config.Providers.TextModel, config.Providers.ImageModel)
	return nil
}

// UpdateProviders replaces the providers section after validation and persists it.
func UpdateProviders(providers *ProvidersConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		return fmt.Errorf("config not initialized - call LoadConfig first")
	}

	candidate := *config
	p := *providers
	candidate.Providers = &p
	applyDefaults(&candidate)
	if err := validateConfig(&candidate); err != nil {
		return err
	}
	config = &candidate
	return saveConfigLocked()
}

func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON %s: %w", configPath, err)
	}
	return &cfg, nil
}

// saveConfigLocked writes the global config. Must be called with mu held.
func saveConfigLocked() error {
	if projectDir == "" {
		return fmt.Errorf("config not initialized - call LoadConfig first")
	}

	configPath := filepath.Join(projectDir, ProjectConfigDir, ProjectConfigFilename)
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil { //nolint:gosec // config holds no secrets
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func createDefaultConfig() *Config {
	cfg := &Config{SchemaVersion: SchemaVersion}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills every missing section and empty field.
func applyDefaults(cfg *Config) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SchemaVersion
	}

	if cfg.Providers == nil {
		cfg.Providers = &ProvidersConfig{}
	}
	if cfg.Providers.TextModel == "" {
		cfg.Providers.TextModel = DefaultTextModel
	}
	if cfg.Providers.ImageModel == "" {
		cfg.Providers.ImageModel = DefaultImageModel
	}

	if cfg.Generation == nil {
		cfg.Generation = &GenerationConfig{}
	}
	if cfg.Generation.AspectRatio == "" {
		cfg.Generation.AspectRatio = DefaultAspectRatio
	}
	if cfg.Generation.OutputMIMEType == "" {
		cfg.Generation.OutputMIMEType = DefaultImageMIME
	}

	if cfg.WebUI == nil {
		cfg.WebUI = &WebUIConfig{Enabled: true}
	}
	if cfg.WebUI.Host == "" {
		cfg.WebUI.Host = DefaultWebUIHost
	}
	if cfg.WebUI.Port == 0 {
		cfg.WebUI.Port = DefaultWebUIPort
	}

	if cfg.History == nil {
		cfg.History = &HistoryConfig{Enabled: true}
	}
	if cfg.History.DBFile == "" {
		cfg.History.DBFile = DefaultHistoryDB
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Enabled: true}
	}
	if cfg.Debug == nil {
		cfg.Debug = &DebugConfig{}
	}

	if cfg.Artifacts == nil {
		cfg.Artifacts = &ArtifactsConfig{Enabled: true}
	}
	if cfg.Artifacts.OutputDir == "" {
		cfg.Artifacts.OutputDir = DefaultArtifactDir
	}
}

//nolint:gochecknoglobals // static allow-lists
var (
	validAspectRatios = map[string]bool{"1:1": true, "3:4": true, "4:3": true, "9:16": true, "16:9": true}
	validImageMIMEs   = map[string]bool{"image/jpeg": true, "image/png": true}
)

// validateConfig checks structure only. Credentials are resolved when the gateway is built.
func validateConfig(cfg *Config) error {
	if cfg.Providers == nil {
		return fmt.Errorf("providers section is missing")
	}

	textInfo, _ := GetModelInfo(cfg.Providers.TextModel)
	if textInfo.Provider == "" {
		return fmt.Errorf("unknown text model '%s'", cfg.Providers.TextModel)
	}
	if textInfo.Kind != KindText {
		return fmt.Errorf("text_model '%s' is not a text model", cfg.Providers.TextModel)
	}

	imageInfo, _ := GetModelInfo(cfg.Providers.ImageModel)
	if imageInfo.Provider != ProviderGoogle || imageInfo.Kind != KindImage {
		return fmt.Errorf("image_model '%s' must be a Google Imagen model", cfg.Providers.ImageModel)
	}

	if cfg.Generation != nil {
		if !validAspectRatios[cfg.Generation.AspectRatio] {
			return fmt.Errorf("unsupported aspect_ratio '%s'", cfg.Generation.AspectRatio)
		}
		if !validImageMIMEs[cfg.Generation.OutputMIMEType] {
			return fmt.Errorf("unsupported output_mime_type '%s'", cfg.Generation.OutputMIMEType)
		}
	}

	if cfg.WebUI != nil && cfg.WebUI.Enabled {
		if cfg.WebUI.Port <= 0 || cfg.WebUI.Port > 65535 {
			return fmt.Errorf("webui port must be between 1 and 65535 (got %d)", cfg.WebUI.Port)
		}
	}

	return nil
}

// APIKeyEnvVar returns the primary secret/env name holding the provider's credential.
func APIKeyEnvVar(provider string) string {
	switch provider {
	case ProviderGoogle:
		return EnvGoogleAPIKey
	case ProviderAnthropic:
		return EnvAnthropicAPIKey
	case ProviderOpenAI:
		return EnvOpenAIAPIKey
	case ProviderOllama:
		return EnvOllamaHost
	default:
		return ""
	}
}

// GetAPIKey returns the API key for a given provider.
// Checks secrets file first, then falls back to environment variables.
// Google also accepts the legacy API_KEY name. For Ollama, returns the host URL instead.
func GetAPIKey(provider string) (string, error) {
	switch provider {
	case ProviderOllama:
		if cfg, err := GetConfig(); err == nil && cfg.Providers != nil && cfg.Providers.OllamaHost != "" {
			return cfg.Providers.OllamaHost, nil
		}
		if host, err := GetSecret(EnvOllamaHost); err == nil {
			return host, nil
		}
		return DefaultOllamaHost, nil
	case ProviderGoogle:
		if key, err := GetSecret(EnvGoogleAPIKey); err == nil {
			return key, nil
		}
		if key, err := GetSecret(EnvLegacyAPIKey); err == nil {
			return key, nil
		}
		return "", fmt.Errorf("API key not found: %s (or %s) not found in secrets file or environment variables", EnvGoogleAPIKey, EnvLegacyAPIKey)
	case ProviderAnthropic, ProviderOpenAI:
		envVar := APIKeyEnvVar(provider)
		if key, err := GetSecret(envVar); err == nil {
			return key, nil
		}
		return "", fmt.Errorf("API key not found: %s not found in secrets file or environment variables", envVar)
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}
}

// GetWebUIPassword returns the WebUI password:
// 1. Project password from secrets decryption (in memory)
// 2. SOLAR_PASSWORD environment variable
// 3. Empty string (auth disabled).
func GetWebUIPassword() string {
	if password := GetProjectPassword(); password != "" {
		return password
	}
	return os.Getenv(EnvPassword)
}
