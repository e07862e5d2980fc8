// internal/config/profiles.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

func (c *Config) profileIndex(name string) int {
	return slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
}

// GetProfile retrieves a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	i := c.profileIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("profile not found: %s", name)
	}
	return &c.Profiles[i], nil
}

// SetProfile adds p or replaces the profile with the same name, then saves
func (c *Config) SetProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if i := c.profileIndex(p.Name); i >= 0 {
		c.Profiles[i] = p
	} else {
		c.Profiles = append(c.Profiles, p)
	}
	return c.Save()
}

// DeleteProfile removes a profile from the config
func (c *Config) DeleteProfile(name string) error {
	i := c.profileIndex(name)
	if i < 0 {
		return fmt.Errorf("profile not found: %s", name)
	}
	c.Profiles = slices.Delete(c.Profiles, i, i+1)
	if c.DefaultProfile == name {
		c.DefaultProfile = ""
	}
	return c.Save()
}

// ListProfiles returns all profile names
func (c *Config) ListProfiles() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// ConnectionString renders the profile as a URL understood by ParseDSN and
// the session connector. Passwords are included; do not log the result.
func (p *Profile) ConnectionString() string {
	switch p.Type {
	case "postgres", "mysql":
		u := url.URL{
			Scheme: p.Type,
			Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
			Path:   "/" + p.Database,
		}
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else if p.User != "" {
			u.User = url.User(p.User)
		}
		if len(p.Options) > 0 {
			q := url.Values{}
			for k, v := range p.Options {
				q.Set(k, v)
			}
			u.RawQuery = q.Encode()
		}
		return u.String()
	case "sqlite":
		return "sqlite://" + p.Database
	default:
		return ""
	}
}

// Redacted is ConnectionString with the password masked, for display
func (p *Profile) Redacted() string {
	c := *p
	if c.Password != "" {
		c.Password = "xxxxx"
	}
	return c.ConnectionString()
}

// ProvisionProfile resolves the saved profile used by static provisioning
func (c *Config) ProvisionProfile() (*Profile, error) {
	name := c.Provision.Profile
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		return nil, fmt.Errorf("no profile configured for static provisioning")
	}
	return c.GetProfile(name)
}

// ParseDSN parses a connection string into a Profile. Strings without a
// known scheme are treated as SQLite file paths.
func ParseDSN(name, dsn string) (Profile, error) {
	p := Profile{Name: name}

	scheme, _, _ := strings.Cut(dsn, "://")
	switch scheme {
	case "postgres", "postgresql", "mysql":
		u, err := url.Parse(dsn)
		if err != nil {
			return p, err
		}
		p.Type = "postgres"
		p.Port = 5432
		if scheme == "mysql" {
			p.Type = "mysql"
			p.Port = 3306
		}
		p.Host = u.Hostname()
		if port := u.Port(); port != "" {
			if p.Port, err = strconv.Atoi(port); err != nil {
				return p, fmt.Errorf("invalid port %q", port)
			}
		}
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
		p.Database = strings.TrimPrefix(u.Path, "/")
		for k, v := range u.Query() {
			if p.Options == nil {
				p.Options = map[string]string{}
			}
			p.Options[k] = v[0]
		}
	default:
		p.Type = "sqlite"
		path := strings.TrimPrefix(dsn, "sqlite://")
		p.Database = strings.TrimPrefix(path, "file:")
	}

	return p, nil
}
