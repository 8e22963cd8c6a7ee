// Package providers registers every model client implementation with the llm
// factory.
package providers

import (
	"sync"

	"epcsync/internal/config"
	"epcsync/internal/llm"
	"epcsync/internal/llm/claude"
	"epcsync/internal/llm/gemini"
	"epcsync/internal/llm/openai"
	"epcsync/internal/llm/outline"
	"epcsync/internal/port"
)

var once sync.Once

// RegisterAll registers the built-in providers. Safe to call more than once.
func RegisterAll() {
	once.Do(func() {
		llm.RegisterProvider("openai", func(cfg *config.ModelProviderConfig, gen llm.Generation) (port.ModelClient, error) {
			return openai.NewClient(cfg, gen), nil
		})
		llm.RegisterProvider("claude", func(cfg *config.ModelProviderConfig, gen llm.Generation) (port.ModelClient, error) {
			return claude.NewClient(cfg, gen), nil
		})
		llm.RegisterProvider("gemini", func(cfg *config.ModelProviderConfig, gen llm.Generation) (port.ModelClient, error) {
			return gemini.NewClient(cfg, gen), nil
		})
		llm.RegisterProvider("outline", func(_ *config.ModelProviderConfig, _ llm.Generation) (port.ModelClient, error) {
			return outline.NewClient(), nil
		})
	})
}

// Build registers the providers and returns the configured client chain.
func Build(cfg *config.ModelConfig) (port.ModelClient, error) {
	RegisterAll()
	return llm.NewChain(cfg)
}
