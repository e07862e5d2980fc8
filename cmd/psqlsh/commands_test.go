package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/config"
)

func TestProfileCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := config.LoadFrom(path, nil)
	require.NoError(t, err)

	require.NoError(t, runCommand(cfg, []string{"profile", "add", "-ssh-host", "bastion", "-ssh-user", "ops", "neon", "postgres://alex@db.example:5432/neondb?sslmode=require"}))
	require.NoError(t, runCommand(cfg, []string{"profile", "list"}))

	reloaded, err := config.LoadFrom(path, nil)
	require.NoError(t, err)
	p, err := reloaded.GetProfile("neon")
	require.NoError(t, err)
	assert.Equal(t, "neon", reloaded.DefaultProfile)
	assert.Equal(t, "db.example", p.Host)
	assert.Equal(t, "bastion", p.SSHHost)
	assert.Equal(t, 22, p.SSHPort)
	assert.Equal(t, map[string]string{"sslmode": "require"}, p.Options)

	require.NoError(t, runCommand(reloaded, []string{"profile", "rm", "neon"}))
	assert.Empty(t, reloaded.ListProfiles())

	assert.Error(t, runCommand(reloaded, []string{"profile", "rm"}))
	assert.Error(t, runCommand(reloaded, []string{"bogus"}))
}

func TestSSHProfile(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Nil(t, sshProfile(cfg))

	cfg.Profiles = []config.Profile{{Name: "a", Type: "postgres", SSHHost: "jump"}}
	cfg.DefaultProfile = "a"
	p := sshProfile(cfg)
	require.NotNil(t, p)
	assert.Equal(t, "jump", p.SSHHost)

	cfg.Provision.ConnectionString = "postgres://x@y/z"
	assert.Nil(t, sshProfile(cfg))
}
