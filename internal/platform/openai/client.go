package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/apierr"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/envutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	MaxRetries      int

	// Azure deployments are addressed by endpoint + api version; Model is the
	// deployment name.
	AzureEndpoint   string
	AzureAPIKey     string
	AzureAPIVersion string
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:          envutil.String("OPENAI_API_KEY", ""),
		BaseURL:         envutil.String("OPENAI_BASE_URL", ""),
		Model:           envutil.String("OPENAI_MODEL", "gpt-4o"),
		Temperature:     envutil.Float("OPENAI_TEMPERATURE", 0.1),
		MaxOutputTokens: envutil.Int("OPENAI_MAX_OUTPUT_TOKENS", 4000),
		Timeout:         envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries:      envutil.Int("OPENAI_MAX_RETRIES", 2),
		AzureEndpoint:   envutil.String("AZURE_OPENAI_ENDPOINT", ""),
		AzureAPIKey:     envutil.String("AZURE_OPENAI_API_KEY", ""),
		AzureAPIVersion: envutil.String("AZURE_OPENAI_API_VERSION", "2025-03-01-preview"),
	}
}

// Client implements llm.Backend and llm.SchemaCompleter on the Responses API.
type Client struct {
	log    *logger.Logger
	client openai.Client
	cfg    Config
}

var (
	_ llm.Backend         = (*Client)(nil)
	_ llm.SchemaCompleter = (*Client)(nil)
)

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai: model is empty")
	}
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	switch {
	case cfg.AzureEndpoint != "":
		if cfg.AzureAPIKey == "" {
			return nil, errors.New("openai: missing AZURE_OPENAI_API_KEY")
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.AzureEndpoint, cfg.AzureAPIVersion),
			azure.WithAPIKey(cfg.AzureAPIKey),
		)
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	default:
		return nil, errors.New("openai: missing OPENAI_API_KEY")
	}
	return &Client{
		log:    log.With("service", "OpenAIClient", "model", cfg.Model),
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return c.create(ctx, c.params(messages))
}

func (c *Client) CompleteJSON(ctx context.Context, messages []llm.Message, schemaName string, schema map[string]any) (string, error) {
	if schemaName == "" {
		return "", errors.New("openai: schemaName required")
	}
	if schema == nil {
		return "", errors.New("openai: schema required")
	}
	params := c.params(messages)
	params.Text = responses.ResponseTextConfigParam{
		Format: responses.ResponseFormatTextConfigUnionParam{
			OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
				Name:   schemaName,
				Schema: schema,
				Strict: openai.Bool(true),
				Type:   "json_schema",
			},
		},
	}
	return c.create(ctx, params)
}

func (c *Client) params(messages []llm.Message) responses.ResponseNewParams {
	inputs := llm.Inputs(messages)
	items := make([]responses.ResponseInputItemUnionParam, 0, len(inputs))
	for _, m := range inputs {
		role := responses.EasyInputMessageRoleUser
		if m.Role == llm.RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}
	params := responses.ResponseNewParams{
		Model:       c.cfg.Model,
		Temperature: openai.Float(c.cfg.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if instructions := llm.Instructions(messages); instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if c.cfg.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(c.cfg.MaxOutputTokens))
	}
	return params
}

func (c *Client) create(ctx context.Context, params responses.ResponseNewParams) (string, error) {
	start := time.Now()
	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.log.Warn("OpenAI request failed", "status", apiErr.StatusCode, "elapsed", time.Since(start).String())
			return "", apierr.New(apiErr.StatusCode, "openai_error", fmt.Errorf("openai: %w", err))
		}
		c.log.Warn("OpenAI request failed", "error", err.Error(), "elapsed", time.Since(start).String())
		return "", fmt.Errorf("openai: %w", err)
	}
	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("openai: no output_text found in response")
	}
	c.log.Debug("OpenAI request done", "elapsed", time.Since(start).String(), "output_chars", len(text))
	return text, nil
}
