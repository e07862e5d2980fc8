package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nhath/psqlsh/internal/apiclient"
	"github.com/nhath/psqlsh/internal/logger"
)

// ErrConversionFailed is returned when the service cannot be reached or
// answers with a non-success status
var ErrConversionFailed = errors.New("Failed to convert text to SQL")

// HTTP posts requests to a text-to-SQL service that answers in plain text
type HTTP struct {
	client *resty.Client
	// Database is sent along so the service can use its schema
	Database string
}

// NewHTTP creates a client for the service at baseURL
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	c := apiclient.New(baseURL, timeout).SetHeader("Accept", "text/plain")
	return &HTTP{client: c}
}

// SetDatabase sets the database sent with each request
func (h *HTTP) SetDatabase(name string) {
	h.Database = name
}

type textToSQLRequest struct {
	Text     string `json:"text"`
	Database string `json:"db,omitempty"`
}

// Convert requests POST /text-to-sql
func (h *HTTP) Convert(ctx context.Context, text string) (string, error) {
	log := logger.Named("assist").WithField("text", text)
	log.Info("Converting text to SQL")

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(textToSQLRequest{Text: text, Database: h.Database}).
		Post("/text-to-sql")
	if err != nil {
		log.WithError(err).Error("Failed to convert text to SQL")
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if resp.IsError() {
		log.WithField("status", resp.StatusCode()).
			WithField("body", resp.String()).
			Error("Failed to convert text to SQL")
		return "", ErrConversionFailed
	}

	data := strings.TrimSpace(resp.String())
	log.WithField("data", data).Info("Converted text to SQL")
	return data, nil
}
