// Package provision issues connection strings for new sessions.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nhath/psqlsh/internal/apiclient"
	"github.com/nhath/psqlsh/internal/config"
	"github.com/nhath/psqlsh/internal/logger"
)

// Issuer hands out a connection string, optionally branched from a
// template source branch
type Issuer interface {
	Issue(ctx context.Context, sourceBranch string) (string, error)
}

// Error is a provisioning failure shown to the user
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provisioning failed (%d): %s", e.Status, e.Message)
	}
	return "provisioning failed: " + e.Message
}

// ErrNoConnection is returned when static mode has nothing to connect to
var ErrNoConnection = errors.New("no connection string configured")

// Static returns a fixed connection string. Template branches are not
// supported by a fixed database, so the source branch is ignored.
type Static struct {
	ConnString string
}

// Issue returns the configured connection string
func (s *Static) Issue(ctx context.Context, sourceBranch string) (string, error) {
	if s.ConnString == "" {
		return "", &Error{Message: ErrNoConnection.Error()}
	}
	if sourceBranch != "" {
		logger.Named("provision").WithField("branch", sourceBranch).Debug("static provisioning ignores source branch")
	}
	return s.ConnString, nil
}

type issueRequest struct {
	SourceBranch string `json:"sourceBranch,omitempty"`
}

type issueResponse struct {
	ConnectionString string `json:"connectionString"`
	Error            string `json:"error"`
}

// HTTP asks a provisioning service for a fresh database
type HTTP struct {
	client *resty.Client
}

// NewHTTP creates a provisioning client for the service at baseURL
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{client: apiclient.New(baseURL, timeout)}
}

// Issue requests POST /issue-database
func (h *HTTP) Issue(ctx context.Context, sourceBranch string) (string, error) {
	log := logger.Named("provision")
	var out issueResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(issueRequest{SourceBranch: sourceBranch}).
		SetResult(&out).
		SetError(&out).
		Post("/issue-database")
	if err != nil {
		return "", fmt.Errorf("issue database: %w", err)
	}
	log.WithField("status", resp.StatusCode()).
		WithField("request_id", resp.Request.Header.Get("X-Request-Id")).
		Debug("issue-database")

	if out.Error != "" {
		return "", &Error{Status: resp.StatusCode(), Message: out.Error}
	}
	if resp.IsError() {
		return "", &Error{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.Status())}
	}
	if out.ConnectionString == "" {
		return "", &Error{Status: resp.StatusCode(), Message: "No connection URIs found"}
	}
	return out.ConnectionString, nil
}

// New builds the issuer selected by cfg.Provision.Mode
func New(cfg *config.Config) (Issuer, error) {
	switch cfg.Provision.Mode {
	case config.ProvisionHTTP:
		if cfg.Provision.APIURL == "" {
			return nil, fmt.Errorf("provision.api_url is required in http mode")
		}
		return NewHTTP(cfg.Provision.APIURL, 0), nil
	case config.ProvisionStatic, "":
		if cfg.Provision.ConnectionString != "" {
			return &Static{ConnString: cfg.Provision.ConnectionString}, nil
		}
		p, err := cfg.ProvisionProfile()
		if err != nil {
			return &Static{}, nil
		}
		return &Static{ConnString: p.ConnectionString()}, nil
	default:
		return nil, fmt.Errorf("unknown provision mode: %s", cfg.Provision.Mode)
	}
}
