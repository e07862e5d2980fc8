// Package apiclient builds the HTTP client shared by the remote collaborators
// (provisioning, text-to-SQL and the keyword list).
package apiclient

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	DefaultTimeout = 30 * time.Second
	userAgent      = "psqlsh/1.0"
	requestIDKey   = "X-Request-Id"
)

// New creates a resty client rooted at baseURL. Every request carries a
// fresh X-Request-Id unless the caller set one.
func New(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(requestIDKey) == "" {
			r.SetHeader(requestIDKey, uuid.NewString())
		}
		return nil
	})
	return c
}
