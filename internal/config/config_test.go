package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/config"
	"epcsync/internal/domain"
)

func validConfig() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			Primary:            config.ModelProviderConfig{Provider: "openai", APIKey: "sk-test"},
			ExtractionAttempts: 3,
			TransportRetries:   2,
		},
		Catalog: config.CatalogConfig{
			BaseURL:          "https://epc.example.com/api",
			BearerToken:      "token",
			MasterCategoryID: "mc-1",
			MaxAttempts:      4,
			BaseDelay:        2 * time.Second,
			MaxDelay:         30 * time.Second,
		},
		Store: config.StoreConfig{Driver: "file", Path: "records.json"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Primary.Provider)
	assert.Equal(t, 3, cfg.Model.ExtractionAttempts)
	assert.Equal(t, 2, cfg.Model.TransportRetries)
	assert.Equal(t, "categories", cfg.Catalog.GroupEntity)
	assert.Equal(t, "type_category", cfg.Catalog.EntryEntity)
	assert.Equal(t, 2*time.Second, cfg.Catalog.BaseDelay)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.False(t, cfg.Pipeline.AcceptPartial)
	assert.Nil(t, cfg.Model.SecondaryConfig())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("EPCSYNC_MODEL_EXTRACTION_ATTEMPTS", "5")
	t.Setenv("EPCSYNC_CATALOG_BASE_URL", "https://epc.example.com/api/")
	t.Setenv("EPCSYNC_PIPELINE_ACCEPT_PARTIAL", "true")
	t.Setenv("EPCSYNC_MODEL_SECONDARY_PROVIDER", "claude")
	t.Setenv("EPCSYNC_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Model.ExtractionAttempts)
	assert.Equal(t, "https://epc.example.com/api", cfg.Catalog.BaseURL)
	assert.True(t, cfg.Pipeline.AcceptPartial)
	require.NotNil(t, cfg.Model.SecondaryConfig())
	assert.Equal(t, "claude", cfg.Model.SecondaryConfig().Provider)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_LegacyAliases(t *testing.T) {
	t.Setenv("MAIA_ROUTER_API_KEY", "sk-legacy")
	t.Setenv("EPC_BEARER_TOKEN", "bearer-legacy")
	t.Setenv("DEFAULT_MASTER_CATEGORY_ID", "mc-legacy")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-legacy", cfg.Model.Primary.APIKey)
	assert.Equal(t, "bearer-legacy", cfg.Catalog.BearerToken)
	assert.Equal(t, "mc-legacy", cfg.Catalog.MasterCategoryID)
}

func TestModelConfig_Providers_Order(t *testing.T) {
	cfg := config.ModelConfig{
		Primary:  config.ModelProviderConfig{Provider: "openai"},
		Tertiary: config.ModelProviderConfig{Provider: "gemini"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 2)
	assert.Equal(t, "openai", providers[0].Provider)
	assert.Equal(t, "gemini", providers[1].Provider)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_SSOCredentialsReplaceBearerToken(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.BearerToken = ""
	cfg.Catalog.SSO = config.SSOConfig{GatewayURL: "https://sso.example.com", Email: "a@b.c", Password: "pw"}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_OutlineProviderNeedsNoKey(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Primary = config.ModelProviderConfig{Provider: "outline"}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Primary.APIKey = ""
	cfg.Model.ExtractionAttempts = 0
	cfg.Model.TransportRetries = -1
	cfg.Catalog.BaseURL = ""
	cfg.Catalog.BearerToken = ""
	cfg.Store.Driver = "redis"

	err := cfg.Validate()

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Problems, 6)
	assert.Contains(t, err.Error(), "requires an api key")
	assert.Contains(t, err.Error(), "catalog.base_url is required")
	assert.Contains(t, err.Error(), `unknown store driver "redis"`)
}
