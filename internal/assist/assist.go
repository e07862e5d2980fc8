// Package assist converts natural-language requests into SQL.
//
// Backends answer with a single line protocol: "SQL: <statement>" for a
// generated statement, "ERROR: <message>" for a user-facing refusal. Anything
// else is treated as a failed conversion.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhath/psqlsh/internal/config"
)

const (
	sqlPrefix   = "SQL: "
	errorPrefix = "ERROR: "
)

// Converter turns free text into a protocol line
type Converter interface {
	Convert(ctx context.Context, text string) (string, error)
}

// Kind classifies a converter reply
type Kind int

const (
	KindUnknown Kind = iota
	KindSQL
	KindError
)

// Reply is a classified converter response
type Reply struct {
	Kind Kind
	// Text is the SQL or error message without its prefix
	Text string
}

// Classify splits a raw response into its kind and payload
func Classify(response string) Reply {
	switch {
	case strings.HasPrefix(response, sqlPrefix):
		return Reply{Kind: KindSQL, Text: strings.TrimSpace(strings.TrimPrefix(response, sqlPrefix))}
	case strings.HasPrefix(response, errorPrefix):
		return Reply{Kind: KindError, Text: strings.TrimSpace(strings.TrimPrefix(response, errorPrefix))}
	default:
		return Reply{Kind: KindUnknown, Text: response}
	}
}

// Disabled answers every request with an error line
type Disabled struct{}

// Convert always refuses
func (Disabled) Convert(context.Context, string) (string, error) {
	return errorPrefix + "text-to-SQL is not configured", nil
}

// New builds the converter selected by cfg.Assist.Mode
func New(cfg *config.Config) (Converter, error) {
	switch cfg.Assist.Mode {
	case config.AssistHTTP:
		if cfg.Assist.APIURL == "" {
			return nil, fmt.Errorf("assist.api_url is required in http mode")
		}
		return NewHTTP(cfg.Assist.APIURL, 0), nil
	case config.AssistOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:  cfg.Assist.APIKey,
			BaseURL: cfg.Assist.BaseURL,
			Model:   cfg.Assist.Model,
		})
	case config.AssistOff, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown assist mode: %s", cfg.Assist.Mode)
	}
}
