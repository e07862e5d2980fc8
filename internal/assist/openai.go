package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/nhath/psqlsh/internal/logger"
)

const systemPrompt = `You translate requests into a single PostgreSQL statement.
Reply with exactly one line.
If you can write the statement, reply "SQL: " followed by the statement.
If the request cannot be expressed as SQL, reply "ERROR: " followed by a short reason.`

// OpenAIOptions configures the OpenAI backend
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// Schema, when set, is called per request and its text is added to the
	// prompt so the model can reference real tables
	Schema func(ctx context.Context) string
}

// OpenAI converts with a chat completion model
type OpenAI struct {
	api    *openai.Client
	model  string
	schema func(ctx context.Context) string
}

// NewOpenAI creates the OpenAI backend
func NewOpenAI(opts OpenAIOptions, extra ...option.RequestOption) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	cfg = append(cfg, extra...)
	client := openai.NewClient(cfg...)

	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{api: &client, model: model, schema: opts.Schema}, nil
}

// SetSchema replaces the schema callback
func (o *OpenAI) SetSchema(fn func(ctx context.Context) string) {
	o.schema = fn
}

// Convert asks the model for a protocol line
func (o *OpenAI) Convert(ctx context.Context, text string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}
	if o.schema != nil {
		if schema := strings.TrimSpace(o.schema(ctx)); schema != "" {
			messages = append(messages, openai.SystemMessage("Database schema:\n"+schema))
		}
	}
	messages = append(messages, openai.UserMessage(text))

	resp, err := o.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.model),
		Messages: messages,
	})
	if err != nil {
		logger.Named("assist").WithError(err).Error("Failed to convert text to SQL")
		return "", wrapHTTPError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return normalizeReply(resp.Choices[0].Message.Content), nil
}

// normalizeReply strips markdown fences models like to add around SQL
func normalizeReply(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```sql")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, sqlPrefix) || strings.HasPrefix(content, errorPrefix) {
		// multi-line statements go onto the protocol line
		return strings.NewReplacer("\r\n", " ", "\n", " ").Replace(content)
	}
	return content
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		raw := strings.TrimSpace(apiErr.RawJSON())
		if raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}
