package terminal

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nhath/psqlsh/internal/apiclient"
)

//go:embed keywords.json
var defaultKeywords []byte

// Keywords is a case-insensitive set of SQL keywords
type Keywords struct {
	set map[string]struct{}
}

// NewKeywords builds a set from words
func NewKeywords(words []string) *Keywords {
	k := &Keywords{set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			k.set[strings.ToLower(w)] = struct{}{}
		}
	}
	return k
}

// Has reports whether word is a keyword
func (k *Keywords) Has(word string) bool {
	if k == nil {
		return false
	}
	_, ok := k.set[strings.ToLower(word)]
	return ok
}

// Len returns the number of keywords
func (k *Keywords) Len() int {
	if k == nil {
		return 0
	}
	return len(k.set)
}

type keywordFile struct {
	Keywords []string `json:"keywords"`
}

// ParseKeywords decodes a {"keywords": [...]} document
func ParseKeywords(data []byte) (*Keywords, error) {
	var f keywordFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return NewKeywords(f.Keywords), nil
}

// LoadKeywords reads the keyword list from an http(s) URL or a file path.
// An empty source yields the built-in list.
func LoadKeywords(ctx context.Context, source string) (*Keywords, error) {
	switch {
	case source == "":
		return ParseKeywords(defaultKeywords)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		resp, err := apiclient.New("", 0).R().SetContext(ctx).Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch keywords: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch keywords: %s", resp.Status())
		}
		return ParseKeywords(resp.Body())
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read keywords: %w", err)
		}
		return ParseKeywords(data)
	}
}
