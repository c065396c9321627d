package completion

import (
	"context"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/config"
)

// Build creates the providers named in cfg.Completion.Providers, in that
// order. Unknown names are an error; a provider whose credentials are
// missing is skipped with a warning.
func Build(ctx context.Context, cfg *config.Config) ([]Provider, error) {
	client := &http.Client{}
	c := cfg.Completion

	providers := make([]Provider, 0, len(c.Providers))
	for _, name := range c.Providers {
		switch name {
		case "huggingface", "hf":
			providers = append(providers, NewHuggingFace(HuggingFaceOptions{
				BaseURL:     c.HuggingFace.BaseURL,
				Model:       c.HuggingFace.Model,
				Token:       c.HuggingFace.Token,
				MaxLength:   c.HuggingFace.MaxLength,
				Temperature: c.HuggingFace.Temperature,
				HTTPClient:  client,
			}))
		case "ollama":
			providers = append(providers, NewOllama(c.Ollama.BaseURL, c.Ollama.Model, client))
		case "openai":
			if c.OpenAI.APIKey == "" {
				log.Printf("[completion] openai listed but OPENAI_API_KEY is empty, skipping")
				continue
			}
			providers = append(providers, NewOpenAI(c.OpenAI.BaseURL, c.OpenAI.Model, c.OpenAI.APIKey, client))
		case "ark":
			if !cfg.AI.Enabled() {
				log.Printf("[completion] ark listed but credentials are missing, skipping")
				continue
			}
			chatModel, err := cfg.AI.NewChatModel(ctx)
			if err != nil {
				return nil, fmt.Errorf("create ark chat model: %w", err)
			}
			ark, err := NewArk(ctx, chatModel)
			if err != nil {
				return nil, err
			}
			providers = append(providers, ark)
		default:
			return nil, fmt.Errorf("unknown completion provider %q", name)
		}
	}
	return providers, nil
}
