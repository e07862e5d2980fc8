package provision

import (
	"regexp"
	"strings"

	"github.com/nhath/psqlsh/internal/config"
)

// Template is a sample dataset with the branch it is provisioned from
type Template struct {
	Name        string
	Description string
	Branch      string
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// GenerateBranchName maps a template name to its source branch
func GenerateBranchName(name string) string {
	return "template/" + strings.ToLower(nonAlnum.ReplaceAllString(name, "_"))
}

// Templates resolves the configured templates
func Templates(cfg []config.Template) []Template {
	out := make([]Template, len(cfg))
	for i, t := range cfg {
		out[i] = Template{Name: t.Name, Description: t.Description, Branch: GenerateBranchName(t.Name)}
	}
	return out
}
