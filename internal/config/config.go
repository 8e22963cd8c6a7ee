package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"epcsync/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Model    ModelConfig
	Catalog  CatalogConfig
	Pipeline PipelineConfig
	Store    StoreConfig
	DB       DBConfig
	S3       S3Config
	Queue    QueueConfig
	Upload   UploadConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ModelProviderConfig holds settings for a single LLM provider.
type ModelProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// RequiresAPIKey reports whether the provider talks to a remote API.
func (p *ModelProviderConfig) RequiresAPIKey() bool {
	return p.Provider != "" && p.Provider != "outline"
}

// ModelConfig holds extraction model settings with multi-provider support.
type ModelConfig struct {
	Primary   ModelProviderConfig `mapstructure:"primary"`
	Secondary ModelProviderConfig `mapstructure:"secondary"`
	Tertiary  ModelProviderConfig `mapstructure:"tertiary"`

	ExtractionAttempts int           `mapstructure:"extraction_attempts"`
	TransportRetries   int           `mapstructure:"transport_retries"`
	TransportBaseDelay time.Duration `mapstructure:"transport_base_delay"`
	TransportMaxDelay  time.Duration `mapstructure:"transport_max_delay"`
	Temperature        float64       `mapstructure:"temperature"`
	MaxTokens          int           `mapstructure:"max_tokens"`
	CustomPrompt       string        `mapstructure:"custom_prompt"`
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (m *ModelConfig) SecondaryConfig() *ModelProviderConfig {
	if m.Secondary.Provider != "" {
		return &m.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (m *ModelConfig) TertiaryConfig() *ModelProviderConfig {
	if m.Tertiary.Provider != "" {
		return &m.Tertiary
	}
	return nil
}

// Providers returns the configured providers in fallback order.
func (m *ModelConfig) Providers() []*ModelProviderConfig {
	providers := []*ModelProviderConfig{&m.Primary}
	if s := m.SecondaryConfig(); s != nil {
		providers = append(providers, s)
	}
	if t := m.TertiaryConfig(); t != nil {
		providers = append(providers, t)
	}
	return providers
}

// SSOConfig holds credentials for the catalog SSO gateway.
type SSOConfig struct {
	GatewayURL string `mapstructure:"gateway_url"`
	Email      string `mapstructure:"email"`
	Password   string `mapstructure:"password"`
}

// Enabled reports whether SSO login credentials are present.
func (s *SSOConfig) Enabled() bool {
	return s.Email != "" && s.Password != ""
}

// CatalogConfig holds the remote catalog API settings.
type CatalogConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	BearerToken        string        `mapstructure:"bearer_token"`
	SSO                SSOConfig     `mapstructure:"sso"`
	GroupEntity        string        `mapstructure:"group_entity"`
	EntryEntity        string        `mapstructure:"entry_entity"`
	MasterCategoryID   string        `mapstructure:"master_category_id"`
	MasterCategoryName string        `mapstructure:"master_category_name"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	BaseDelay          time.Duration `mapstructure:"base_delay"`
	MaxDelay           time.Duration `mapstructure:"max_delay"`
	TimeoutSecs        int           `mapstructure:"timeout_secs"`
	CreateEmptyGroups  bool          `mapstructure:"create_empty_groups"`
}

// PipelineConfig holds orchestration policy settings.
type PipelineConfig struct {
	AcceptPartial    bool          `mapstructure:"accept_partial"`
	ReviewMode       bool          `mapstructure:"review_mode"`
	AllowEmptyGroups bool          `mapstructure:"allow_empty_groups"`
	PauseBetween     time.Duration `mapstructure:"pause_between"`
	Concurrency      int           `mapstructure:"concurrency"`
}

// StoreConfig selects the fingerprint store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds optional archive bucket settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Enabled reports whether an archive bucket is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// QueueConfig holds interactive queue worker settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	Buffer      int `mapstructure:"buffer"`
}

// UploadConfig holds upload handling settings.
type UploadConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the EPCSYNC_ prefix.
// The variable names used by the earlier scripts (MAIA_ROUTER_API_KEY,
// EPC_BEARER_TOKEN, ...) are honoured as aliases.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EPCSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Model defaults
	v.SetDefault("model.primary.provider", "openai")
	v.SetDefault("model.primary.api_key", "")
	v.SetDefault("model.primary.base_url", "")
	v.SetDefault("model.primary.default_model", "gpt-4o")
	v.SetDefault("model.primary.timeout_secs", 120)
	v.SetDefault("model.secondary.provider", "")
	v.SetDefault("model.secondary.api_key", "")
	v.SetDefault("model.secondary.base_url", "")
	v.SetDefault("model.secondary.default_model", "")
	v.SetDefault("model.secondary.timeout_secs", 120)
	v.SetDefault("model.tertiary.provider", "")
	v.SetDefault("model.tertiary.api_key", "")
	v.SetDefault("model.tertiary.base_url", "")
	v.SetDefault("model.tertiary.default_model", "")
	v.SetDefault("model.tertiary.timeout_secs", 120)
	v.SetDefault("model.extraction_attempts", 3)
	v.SetDefault("model.transport_retries", 2)
	v.SetDefault("model.transport_base_delay", "1s")
	v.SetDefault("model.transport_max_delay", "30s")
	v.SetDefault("model.temperature", 0.1)
	v.SetDefault("model.max_tokens", 4000)
	v.SetDefault("model.custom_prompt", "")

	// Catalog defaults
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.bearer_token", "")
	v.SetDefault("catalog.sso.gateway_url", "")
	v.SetDefault("catalog.sso.email", "")
	v.SetDefault("catalog.sso.password", "")
	v.SetDefault("catalog.group_entity", "categories")
	v.SetDefault("catalog.entry_entity", "type_category")
	v.SetDefault("catalog.master_category_id", "")
	v.SetDefault("catalog.master_category_name", "")
	v.SetDefault("catalog.max_attempts", 4)
	v.SetDefault("catalog.base_delay", "2s")
	v.SetDefault("catalog.max_delay", "30s")
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("catalog.create_empty_groups", false)

	// Pipeline defaults
	v.SetDefault("pipeline.accept_partial", false)
	v.SetDefault("pipeline.review_mode", false)
	v.SetDefault("pipeline.allow_empty_groups", false)
	v.SetDefault("pipeline.pause_between", "1s")
	v.SetDefault("pipeline.concurrency", 1)

	// Store defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "epc_processed_files.json")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "epcsync")
	v.SetDefault("db.password", "epcsync_secret")
	v.SetDefault("db.name", "epcsync_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// S3 defaults (archive disabled unless a bucket is set)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "epcsync")

	// Queue defaults
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.buffer", 100)

	// Upload defaults
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_file_size_mb", 16)

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string][]string{
		"server.port":                   {"EPCSYNC_SERVER_PORT"},
		"server.read_timeout":           {"EPCSYNC_SERVER_READ_TIMEOUT"},
		"server.write_timeout":          {"EPCSYNC_SERVER_WRITE_TIMEOUT"},
		"server.environment":            {"EPCSYNC_SERVER_ENVIRONMENT"},
		"log.level":                     {"EPCSYNC_LOG_LEVEL", "LOG_LEVEL"},
		"log.format":                    {"EPCSYNC_LOG_FORMAT"},
		"model.primary.provider":        {"EPCSYNC_MODEL_PRIMARY_PROVIDER"},
		"model.primary.api_key":         {"EPCSYNC_MODEL_PRIMARY_API_KEY", "MAIA_ROUTER_API_KEY", "SUMOPOD_API_KEY"},
		"model.primary.base_url":        {"EPCSYNC_MODEL_PRIMARY_BASE_URL"},
		"model.primary.default_model":   {"EPCSYNC_MODEL_PRIMARY_DEFAULT_MODEL", "MAIA_ROUTER_MODEL"},
		"model.primary.timeout_secs":    {"EPCSYNC_MODEL_PRIMARY_TIMEOUT_SECS"},
		"model.secondary.provider":      {"EPCSYNC_MODEL_SECONDARY_PROVIDER"},
		"model.secondary.api_key":       {"EPCSYNC_MODEL_SECONDARY_API_KEY"},
		"model.secondary.base_url":      {"EPCSYNC_MODEL_SECONDARY_BASE_URL"},
		"model.secondary.default_model": {"EPCSYNC_MODEL_SECONDARY_DEFAULT_MODEL"},
		"model.secondary.timeout_secs":  {"EPCSYNC_MODEL_SECONDARY_TIMEOUT_SECS"},
		"model.tertiary.provider":       {"EPCSYNC_MODEL_TERTIARY_PROVIDER"},
		"model.tertiary.api_key":        {"EPCSYNC_MODEL_TERTIARY_API_KEY"},
		"model.tertiary.base_url":       {"EPCSYNC_MODEL_TERTIARY_BASE_URL"},
		"model.tertiary.default_model":  {"EPCSYNC_MODEL_TERTIARY_DEFAULT_MODEL"},
		"model.tertiary.timeout_secs":   {"EPCSYNC_MODEL_TERTIARY_TIMEOUT_SECS"},
		"model.extraction_attempts":     {"EPCSYNC_MODEL_EXTRACTION_ATTEMPTS"},
		"model.transport_retries":       {"EPCSYNC_MODEL_TRANSPORT_RETRIES"},
		"model.transport_base_delay":    {"EPCSYNC_MODEL_TRANSPORT_BASE_DELAY"},
		"model.transport_max_delay":     {"EPCSYNC_MODEL_TRANSPORT_MAX_DELAY"},
		"model.temperature":             {"EPCSYNC_MODEL_TEMPERATURE"},
		"model.max_tokens":              {"EPCSYNC_MODEL_MAX_TOKENS"},
		"model.custom_prompt":           {"EPCSYNC_MODEL_CUSTOM_PROMPT"},
		"catalog.base_url":              {"EPCSYNC_CATALOG_BASE_URL", "EPC_API_BASE_URL"},
		"catalog.bearer_token":          {"EPCSYNC_CATALOG_BEARER_TOKEN", "EPC_BEARER_TOKEN"},
		"catalog.sso.gateway_url":       {"EPCSYNC_CATALOG_SSO_GATEWAY_URL"},
		"catalog.sso.email":             {"EPCSYNC_CATALOG_SSO_EMAIL", "SSO_EMAIL"},
		"catalog.sso.password":          {"EPCSYNC_CATALOG_SSO_PASSWORD", "SSO_PASSWORD"},
		"catalog.group_entity":          {"EPCSYNC_CATALOG_GROUP_ENTITY"},
		"catalog.entry_entity":          {"EPCSYNC_CATALOG_ENTRY_ENTITY"},
		"catalog.master_category_id":    {"EPCSYNC_CATALOG_MASTER_CATEGORY_ID", "DEFAULT_MASTER_CATEGORY_ID"},
		"catalog.master_category_name":  {"EPCSYNC_CATALOG_MASTER_CATEGORY_NAME"},
		"catalog.max_attempts":          {"EPCSYNC_CATALOG_MAX_ATTEMPTS"},
		"catalog.base_delay":            {"EPCSYNC_CATALOG_BASE_DELAY"},
		"catalog.max_delay":             {"EPCSYNC_CATALOG_MAX_DELAY"},
		"catalog.timeout_secs":          {"EPCSYNC_CATALOG_TIMEOUT_SECS"},
		"catalog.create_empty_groups":   {"EPCSYNC_CATALOG_CREATE_EMPTY_GROUPS"},
		"pipeline.accept_partial":       {"EPCSYNC_PIPELINE_ACCEPT_PARTIAL"},
		"pipeline.review_mode":          {"EPCSYNC_PIPELINE_REVIEW_MODE"},
		"pipeline.allow_empty_groups":   {"EPCSYNC_PIPELINE_ALLOW_EMPTY_GROUPS"},
		"pipeline.pause_between":        {"EPCSYNC_PIPELINE_PAUSE_BETWEEN"},
		"pipeline.concurrency":          {"EPCSYNC_PIPELINE_CONCURRENCY"},
		"store.driver":                  {"EPCSYNC_STORE_DRIVER"},
		"store.path":                    {"EPCSYNC_STORE_PATH"},
		"db.host":                       {"EPCSYNC_DB_HOST"},
		"db.port":                       {"EPCSYNC_DB_PORT"},
		"db.user":                       {"EPCSYNC_DB_USER"},
		"db.password":                   {"EPCSYNC_DB_PASSWORD"},
		"db.name":                       {"EPCSYNC_DB_NAME"},
		"db.sslmode":                    {"EPCSYNC_DB_SSLMODE"},
		"db.max_open":                   {"EPCSYNC_DB_MAX_OPEN"},
		"db.max_idle":                   {"EPCSYNC_DB_MAX_IDLE"},
		"s3.region":                     {"EPCSYNC_S3_REGION"},
		"s3.bucket":                     {"EPCSYNC_S3_BUCKET"},
		"s3.endpoint":                   {"EPCSYNC_S3_ENDPOINT"},
		"s3.access_key":                 {"EPCSYNC_S3_ACCESS_KEY"},
		"s3.secret_key":                 {"EPCSYNC_S3_SECRET_KEY"},
		"s3.prefix":                     {"EPCSYNC_S3_PREFIX"},
		"queue.concurrency":             {"EPCSYNC_QUEUE_CONCURRENCY"},
		"queue.buffer":                  {"EPCSYNC_QUEUE_BUFFER"},
		"upload.dir":                    {"EPCSYNC_UPLOAD_DIR"},
		"upload.max_file_size_mb":       {"EPCSYNC_UPLOAD_MAX_FILE_SIZE_MB"},
		"cors.allowed_origins":          {"EPCSYNC_CORS_ALLOWED_ORIGINS"},
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	cfg := &Config{}

	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("EPCSYNC_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Model = ModelConfig{
		Primary:            providerConfig(v, "model.primary"),
		Secondary:          providerConfig(v, "model.secondary"),
		Tertiary:           providerConfig(v, "model.tertiary"),
		ExtractionAttempts: v.GetInt("model.extraction_attempts"),
		TransportRetries:   v.GetInt("model.transport_retries"),
		TransportBaseDelay: v.GetDuration("model.transport_base_delay"),
		TransportMaxDelay:  v.GetDuration("model.transport_max_delay"),
		Temperature:        v.GetFloat64("model.temperature"),
		MaxTokens:          v.GetInt("model.max_tokens"),
		CustomPrompt:       v.GetString("model.custom_prompt"),
	}
	cfg.Catalog = CatalogConfig{
		BaseURL:     strings.TrimRight(v.GetString("catalog.base_url"), "/"),
		BearerToken: v.GetString("catalog.bearer_token"),
		SSO: SSOConfig{
			GatewayURL: strings.TrimRight(v.GetString("catalog.sso.gateway_url"), "/"),
			Email:      v.GetString("catalog.sso.email"),
			Password:   v.GetString("catalog.sso.password"),
		},
		GroupEntity:        v.GetString("catalog.group_entity"),
		EntryEntity:        v.GetString("catalog.entry_entity"),
		MasterCategoryID:   v.GetString("catalog.master_category_id"),
		MasterCategoryName: v.GetString("catalog.master_category_name"),
		MaxAttempts:        v.GetInt("catalog.max_attempts"),
		BaseDelay:          v.GetDuration("catalog.base_delay"),
		MaxDelay:           v.GetDuration("catalog.max_delay"),
		TimeoutSecs:        v.GetInt("catalog.timeout_secs"),
		CreateEmptyGroups:  v.GetBool("catalog.create_empty_groups"),
	}
	cfg.Pipeline = PipelineConfig{
		AcceptPartial:    v.GetBool("pipeline.accept_partial"),
		ReviewMode:       v.GetBool("pipeline.review_mode"),
		AllowEmptyGroups: v.GetBool("pipeline.allow_empty_groups"),
		PauseBetween:     v.GetDuration("pipeline.pause_between"),
		Concurrency:      v.GetInt("pipeline.concurrency"),
	}
	cfg.Store = StoreConfig{
		Driver: v.GetString("store.driver"),
		Path:   v.GetString("store.path"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		Prefix:    v.GetString("s3.prefix"),
	}
	cfg.Queue = QueueConfig{
		Concurrency: v.GetInt("queue.concurrency"),
		Buffer:      v.GetInt("queue.buffer"),
	}
	cfg.Upload = UploadConfig{
		Dir:           v.GetString("upload.dir"),
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) ModelProviderConfig {
	return ModelProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		BaseURL:      v.GetString(prefix + ".base_url"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

// Validate checks the settings needed to run the pipeline. Every problem is
// reported at once so a misconfigured deployment fails fast with a full list.
func (c *Config) Validate() error {
	var problems []string

	for i, p := range c.Model.Providers() {
		if p.Provider == "" {
			problems = append(problems, fmt.Sprintf("model provider %d is not set", i+1))
			continue
		}
		if p.RequiresAPIKey() && p.APIKey == "" {
			problems = append(problems, fmt.Sprintf("model provider %q requires an api key", p.Provider))
		}
	}
	if c.Model.ExtractionAttempts <= 0 {
		problems = append(problems, "model.extraction_attempts must be greater than 0")
	}
	if c.Model.TransportRetries < 0 {
		problems = append(problems, "model.transport_retries must not be negative")
	}

	if c.Catalog.BaseURL == "" {
		problems = append(problems, "catalog.base_url is required")
	}
	if c.Catalog.BearerToken == "" && !c.Catalog.SSO.Enabled() {
		problems = append(problems, "catalog credentials are required: set catalog.bearer_token or catalog.sso.email and catalog.sso.password")
	}
	if c.Catalog.SSO.Enabled() && c.Catalog.SSO.GatewayURL == "" {
		problems = append(problems, "catalog.sso.gateway_url is required for SSO login")
	}
	if c.Catalog.MasterCategoryID == "" {
		problems = append(problems, "catalog.master_category_id is required")
	}
	if c.Catalog.MaxAttempts <= 0 {
		problems = append(problems, "catalog.max_attempts must be greater than 0")
	}
	if c.Catalog.BaseDelay < 0 || c.Catalog.MaxDelay < 0 {
		problems = append(problems, "catalog delays must not be negative")
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the file driver")
		}
	case "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}

	if len(problems) > 0 {
		return &domain.ConfigurationError{Problems: problems}
	}
	return nil
}
