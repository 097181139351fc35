package explain

import "fmt"

// NewProvider creates a Provider from configuration, wrapped with retry
// middleware.
func NewProvider(cfg Config) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown explanation provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(base, cfg.Retry), nil
}
