package session

import (
	"context"

	"github.com/nhath/psqlsh/internal/config"
	"github.com/nhath/psqlsh/internal/db"
)

// DSNConnector opens drivers from connection strings. The scheme picks the
// driver: postgres://, mysql://, anything else is a SQLite path.
type DSNConnector struct {
	// SSH tunnels every connection when set
	SSH *db.SSHConfig
}

// NewDSNConnector returns a connector that tunnels through the SSH settings
// of profile, if any
func NewDSNConnector(profile *config.Profile) *DSNConnector {
	c := &DSNConnector{}
	if profile != nil && profile.SSHHost != "" {
		c.SSH = &db.SSHConfig{
			Host:     profile.SSHHost,
			Port:     profile.SSHPort,
			User:     profile.SSHUser,
			Password: profile.SSHPassword,
			KeyPath:  profile.SSHKeyPath,
		}
	}
	return c
}

// Open connects to connString
func (c *DSNConnector) Open(ctx context.Context, connString string) (db.Driver, error) {
	p, err := config.ParseDSN("session", connString)
	if err != nil {
		return nil, db.WrapConnectionError(err)
	}
	params := db.ConnectParams{
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		Password:  p.Password,
		Database:  p.Database,
		Options:   p.Options,
		SSHConfig: c.SSH,
	}
	return db.Open(ctx, db.DriverType(p.Type), params)
}
