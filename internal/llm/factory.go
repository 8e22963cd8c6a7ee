package llm

import (
	"fmt"

	"epcsync/internal/config"
	"epcsync/internal/port"
)

// Generation holds sampling settings shared by every provider.
type Generation struct {
	Temperature float64
	MaxTokens   int
}

// ProviderFactory is a function that creates a ModelClient from a provider config.
type ProviderFactory func(cfg *config.ModelProviderConfig, gen Generation) (port.ModelClient, error)

// registry of model provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a model provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClient creates a ModelClient from a provider config using the registered factory.
func NewClient(cfg *config.ModelProviderConfig, gen Generation) (port.ModelClient, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown model provider: %s", cfg.Provider)
	}
	return factory(cfg, gen)
}

// NewChain builds a client for every configured provider. A single provider is
// returned as-is; several are wrapped in a FallbackClient in configured order.
func NewChain(cfg *config.ModelConfig) (port.ModelClient, error) {
	gen := Generation{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	var clients []port.ModelClient
	var names []string
	for _, p := range cfg.Providers() {
		c, err := NewClient(p, gen)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
		names = append(names, p.Provider)
	}
	if len(clients) == 1 {
		return clients[0], nil
	}
	return NewFallbackClient(clients, names), nil
}
