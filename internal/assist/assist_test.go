package assist

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/config"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want Reply
	}{
		{"SQL: SELECT 1", Reply{Kind: KindSQL, Text: "SELECT 1"}},
		{"ERROR: no such table", Reply{Kind: KindError, Text: "no such table"}},
		{"sql: select 1", Reply{Kind: KindUnknown, Text: "sql: select 1"}},
		{"SQL:SELECT 1", Reply{Kind: KindUnknown, Text: "SQL:SELECT 1"}},
		{"", Reply{Kind: KindUnknown}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.in), tt.in)
	}
}

func TestHTTPConvert(t *testing.T) {
	var got textToSQLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/text-to-sql", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("SQL: SELECT count(*) FROM artist\n"))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, 0)
	h.Database = "neondb"
	out, err := h.Convert(context.Background(), "how many artists")
	require.NoError(t, err)
	assert.Equal(t, "SQL: SELECT count(*) FROM artist", out)
	assert.Equal(t, textToSQLRequest{Text: "how many artists", Database: "neondb"}, got)
}

func TestHTTPConvertFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, 0).Convert(context.Background(), "x")
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func chatServer(t *testing.T, status int, content string, gotMessages *[]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Model    string           `json:"model"`
			Messages []map[string]any `json:"messages"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		if gotMessages != nil {
			*gotMessages = req.Messages
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIConvert(t *testing.T) {
	var messages []map[string]any
	srv := chatServer(t, http.StatusOK, "```sql\nSQL: SELECT *\nFROM album\n```", &messages)
	defer srv.Close()

	o, err := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model"}, option.WithMaxRetries(0))
	require.NoError(t, err)
	o.SetSchema(func(context.Context) string { return "album(id, title)" })

	out, err := o.Convert(context.Background(), "all albums")
	require.NoError(t, err)
	assert.Equal(t, "SQL: SELECT * FROM album", out)
	require.Len(t, messages, 3)
	assert.Equal(t, "user", messages[2]["role"])
	assert.Equal(t, "all albums", messages[2]["content"])
	assert.Contains(t, messages[1]["content"], "album(id, title)")
}

func TestOpenAIConvertHTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized, "", nil)
	defer srv.Close()

	o, err := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL + "/v1"}, option.WithMaxRetries(0))
	require.NoError(t, err)
	_, err = o.Convert(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http_401")
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIOptions{})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)
	out, err := c.Convert(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, KindError, Classify(out).Kind)

	cfg.Assist.Mode = config.AssistHTTP
	_, err = New(cfg)
	assert.Error(t, err)
	cfg.Assist.APIURL = "http://localhost:1"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, c)

	cfg.Assist.Mode = config.AssistOpenAI
	_, err = New(cfg)
	assert.Error(t, err)
	cfg.Assist.APIKey = "k"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)
}
