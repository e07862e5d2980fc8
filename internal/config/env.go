package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. PSQLSH_ROW_LIMIT
const EnvPrefix = "psqlsh"

// env mirrors the settings that can be overridden from the environment.
// Zero values leave the file setting untouched.
type env struct {
	ConnectionString string `envconfig:"CONNECTION_STRING"`
	APIURL           string `envconfig:"API_URL"`
	AssistMode       string `envconfig:"ASSIST_MODE"`
	AssistURL        string `envconfig:"ASSIST_URL"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel      string `envconfig:"OPENAI_MODEL"`
	RowLimit         int    `envconfig:"ROW_LIMIT"`
	KeywordsSource   string `envconfig:"KEYWORDS"`
	LogFile          string `envconfig:"LOG_FILE"`
}

// ApplyEnv overlays PSQLSH_* environment variables onto c. A connection
// string switches provisioning to static mode and an API URL to http mode.
func (c *Config) ApplyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if e.ConnectionString != "" {
		c.Provision.Mode = ProvisionStatic
		c.Provision.ConnectionString = e.ConnectionString
	}
	if e.APIURL != "" {
		c.Provision.Mode = ProvisionHTTP
		c.Provision.APIURL = e.APIURL
		if c.Assist.APIURL == "" {
			c.Assist.APIURL = e.APIURL
		}
	}
	if e.AssistMode != "" {
		c.Assist.Mode = e.AssistMode
	}
	if e.AssistURL != "" {
		c.Assist.APIURL = e.AssistURL
	}
	if e.OpenAIAPIKey != "" {
		c.Assist.APIKey = e.OpenAIAPIKey
		if c.Assist.Mode == AssistOff {
			c.Assist.Mode = AssistOpenAI
		}
	}
	if e.OpenAIBaseURL != "" {
		c.Assist.BaseURL = e.OpenAIBaseURL
	}
	if e.OpenAIModel != "" {
		c.Assist.Model = e.OpenAIModel
	}
	if e.RowLimit > 0 {
		c.RowLimit = e.RowLimit
	}
	if e.KeywordsSource != "" {
		c.KeywordsSource = e.KeywordsSource
	}
	if e.LogFile != "" {
		c.LogFile = e.LogFile
	}
	return nil
}
