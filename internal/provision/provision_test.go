package provision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/config"
)

func TestHTTPIssue(t *testing.T) {
	var gotBranch string
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/issue-database", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotBranch = body["sourceBranch"]
		gotRequestID = r.Header.Get("X-Request-Id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"connectionString":"postgres://u:p@h/neondb"}`))
	}))
	defer srv.Close()

	got, err := NewHTTP(srv.URL, 0).Issue(context.Background(), "template/chinook")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/neondb", got)
	assert.Equal(t, "template/chinook", gotBranch)
	assert.NotEmpty(t, gotRequestID)
}

func TestHTTPIssueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Sorry, we have reached our limit"}`))
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, 0).Issue(context.Background(), "")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.Status)
	assert.Equal(t, "Sorry, we have reached our limit", perr.Message)
}

func TestHTTPIssueEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, 0).Issue(context.Background(), "")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "No connection URIs found", perr.Message)
}

func TestStatic(t *testing.T) {
	s := &Static{ConnString: "sqlite://x.db"}
	got, err := s.Issue(context.Background(), "template/x")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://x.db", got)

	_, err = (&Static{}).Issue(context.Background(), "")
	var perr *Error
	assert.ErrorAs(t, err, &perr)
}

func TestNew(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.NoError(t, err)

	cfg.Provision.ConnectionString = "postgres://a@b/c"
	iss, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, &Static{ConnString: "postgres://a@b/c"}, iss)

	cfg.Provision.ConnectionString = ""
	require.NoError(t, cfg.SetProfile(config.Profile{Name: "local", Type: "sqlite", Database: "local.db"}))
	cfg.DefaultProfile = "local"
	iss, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, &Static{ConnString: "sqlite://local.db"}, iss)

	cfg.Provision.Mode = config.ProvisionHTTP
	_, err = New(cfg)
	assert.Error(t, err)
	cfg.Provision.APIURL = "http://localhost:1"
	iss, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, iss)

	cfg.Provision.Mode = "carrier-pigeon"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, "template/chinook", GenerateBranchName("Chinook"))
	assert.Equal(t, "template/my_data_set_2", GenerateBranchName("My Data-Set 2"))

	got := Templates([]config.Template{{Name: "Pokemon", Description: "d"}})
	assert.Equal(t, []Template{{Name: "Pokemon", Description: "d", Branch: "template/pokemon"}}, got)
}
