// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/nhath/psqlsh/internal/logger"
)

// Provisioning modes
const (
	ProvisionStatic = "static"
	ProvisionHTTP   = "http"
)

// Assist modes
const (
	AssistOff    = "off"
	AssistHTTP   = "http"
	AssistOpenAI = "openai"
)

// Config represents the application configuration
type Config struct {
	DefaultProfile  string     `toml:"default_profile"`
	PromptLabel     string     `toml:"prompt_label"` // replaces the database name in the prompt
	RowLimit        int        `toml:"row_limit"`
	MaxColumnWidth  int        `toml:"max_column_width"`
	ScrollbackLines int        `toml:"scrollback_lines"`
	QueryTimeout    int        `toml:"query_timeout_seconds"` // 0: no timeout
	AssistPrefix    string     `toml:"assist_prefix"`
	KeywordsSource  string     `toml:"keywords_source"` // file path or URL, empty for built-in
	Banner          string     `toml:"banner"`
	DocsURL         string     `toml:"docs_url"` // %s is replaced by the doc page id
	LogFile         string     `toml:"log_file"`
	Provision       Provision  `toml:"provision"`
	Assist          Assist     `toml:"assist"`
	Templates       []Template `toml:"templates"`
	Profiles        []Profile  `toml:"profiles"`
	Theme           Theme      `toml:"theme_colors"`

	path    string
	secrets SecretStore
}

// Provision selects where database connection strings come from
type Provision struct {
	Mode             string `toml:"mode"`
	APIURL           string `toml:"api_url"`
	ConnectionString string `toml:"connection_string"`
	// Profile names a saved profile used by static mode when no
	// connection string is set; falls back to default_profile
	Profile string `toml:"profile"`
}

// Assist configures the natural-language to SQL backend
type Assist struct {
	Mode    string `toml:"mode"`
	APIURL  string `toml:"api_url"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	// APIKey comes from the environment or the keyring, never the file
	APIKey string `toml:"-"`
}

// Template is a sample dataset the user can start from
type Template struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Theme defines the color palette
type Theme struct {
	Text       string `toml:"text"`
	Faint      string `toml:"faint"`
	Accent     string `toml:"accent"`
	Red        string `toml:"red"`
	Green      string `toml:"green"`
	LightGreen string `toml:"light_green"`
	Yellow     string `toml:"yellow"`
	Border     string `toml:"border"`
}

// Profile represents a database connection profile
type Profile struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"` // postgres, mysql, sqlite
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Database string `toml:"database"`
	// Options are extra connection parameters such as sslmode
	Options map[string]string `toml:"options,omitempty"`
	// Password is kept in memory for usage
	Password string `toml:"-"`
	// EncryptedPassword is the one persisted in the config file
	EncryptedPassword string `toml:"password"`

	// SSH Tunnel Configuration
	SSHHost     string `toml:"ssh_host,omitempty"`
	SSHPort     int    `toml:"ssh_port,omitempty"`
	SSHUser     string `toml:"ssh_user,omitempty"`
	SSHPassword string `toml:"-"` // In-memory
	SSHKeyPath  string `toml:"ssh_key_path,omitempty"`

	// EncryptedSSHPassword persisted in config
	EncryptedSSHPassword string `toml:"ssh_password,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		RowLimit:        1000,
		MaxColumnWidth:  30,
		ScrollbackLines: 5000,
		AssistPrefix:    "/ai ",
		Banner:          "Welcome to psqlsh! To start, press Enter",
		DocsURL:         "https://neon.tech/docs/postgres/%s",
		Provision: Provision{
			Mode: ProvisionStatic,
		},
		Assist: Assist{
			Mode:  AssistOff,
			Model: "gpt-4o-mini",
		},
		Templates: []Template{
			{Name: "Chinook", Description: "Digital media store: artists, albums, tracks, invoices"},
			{Name: "Pokemon", Description: "Pokémon species, types and moves"},
		},
		Profiles: []Profile{},
		Theme: Theme{
			Text:       "#D8DEE9",
			Faint:      "#4C566A",
			Accent:     "#88C0D0",
			Red:        "#FF2B6A",
			Green:      "#2BE5AD",
			LightGreen: "#8DF0D2",
			Yellow:     "#FFD73A",
			Border:     "#3B4252",
		},
	}
}

// ConfigPath returns the XDG-compliant config file path
func ConfigPath() (string, error) {
	return xdg.ConfigFile("psqlsh/config.toml")
}

// Load loads the config from the XDG path, using the OS keyring for
// secrets when it is available
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	var secrets SecretStore
	if ks, err := NewKeyringStore(); err == nil {
		secrets = ks
	} else {
		logger.Named("config").WithError(err).Warn("keyring unavailable, passwords stay encrypted")
	}
	return LoadFrom(path, secrets)
}

// LoadFrom loads the config at path or creates it with defaults.
// secrets may be nil, in which case stored passwords are not decrypted.
func LoadFrom(path string, secrets SecretStore) (*Config, error) {
	log := logger.Named("config")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run: create default
		cfg := DefaultConfig()
		cfg.path, cfg.secrets = path, secrets
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		log.WithField("path", path).Info("created default config")
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.path, cfg.secrets = path, secrets

	// Populate defaults for missing fields (migration)
	if cfg.migrate() {
		if err := cfg.Save(); err != nil {
			log.WithError(err).Warn("could not persist migrated config")
		}
	}

	if secrets == nil {
		return &cfg, nil
	}
	key, err := GetMasterKey(secrets)
	if err != nil {
		log.WithError(err).Warn("master key unavailable")
		return &cfg, nil
	}
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		if p.EncryptedPassword != "" {
			if decrypted, err := Decrypt(p.EncryptedPassword, key); err == nil {
				p.Password = decrypted
			}
		}
		if p.EncryptedSSHPassword != "" {
			if decrypted, err := Decrypt(p.EncryptedSSHPassword, key); err == nil {
				p.SSHPassword = decrypted
			}
		}
	}
	if cfg.Assist.APIKey == "" {
		if apiKey, err := secrets.GetPassword(openAIKeyItem); err == nil {
			cfg.Assist.APIKey = apiKey
		}
	}
	return &cfg, nil
}

func (c *Config) migrate() bool {
	defaults := DefaultConfig()
	updated := false

	if c.RowLimit <= 0 {
		c.RowLimit = defaults.RowLimit
		updated = true
	}
	if c.MaxColumnWidth <= 0 {
		c.MaxColumnWidth = defaults.MaxColumnWidth
		updated = true
	}
	if c.ScrollbackLines <= 0 {
		c.ScrollbackLines = defaults.ScrollbackLines
		updated = true
	}
	if c.AssistPrefix == "" {
		c.AssistPrefix = defaults.AssistPrefix
		updated = true
	}
	if c.Banner == "" {
		c.Banner = defaults.Banner
		updated = true
	}
	if c.DocsURL == "" {
		c.DocsURL = defaults.DocsURL
		updated = true
	}
	if c.Provision.Mode == "" {
		c.Provision.Mode = defaults.Provision.Mode
		updated = true
	}
	if c.Assist.Mode == "" {
		c.Assist.Mode = defaults.Assist.Mode
		c.Assist.Model = defaults.Assist.Model
		updated = true
	}
	if c.Templates == nil {
		c.Templates = defaults.Templates
		updated = true
	}
	if c.Theme.Text == "" {
		c.Theme = defaults.Theme
		updated = true
	}
	return updated
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	if c.path == "" {
		path, err := ConfigPath()
		if err != nil {
			return err
		}
		c.path = path
	}

	// Ensure directory exists with secure permissions
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	// Create/truncate file with secure permissions (owner read/write only)
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if c.secrets != nil {
		if key, err := GetMasterKey(c.secrets); err == nil {
			for i := range c.Profiles {
				p := &c.Profiles[i]
				if p.Password != "" {
					if encrypted, err := Encrypt(p.Password, key); err == nil {
						p.EncryptedPassword = encrypted
					}
				}
				if p.SSHPassword != "" {
					if encrypted, err := Encrypt(p.SSHPassword, key); err == nil {
						p.EncryptedSSHPassword = encrypted
					}
				}
			}
		}
	}

	return toml.NewEncoder(f).Encode(c)
}
