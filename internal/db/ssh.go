package db

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/nhath/psqlsh/internal/logger"
)

// SSHConfig holds SSH connection details
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
}

// SSHTunnel is an SSH client used to dial the database host
type SSHTunnel struct {
	client *ssh.Client
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func authMethods(config *SSHConfig) []ssh.AuthMethod {
	log := logger.Named("ssh")
	var methods []ssh.AuthMethod

	if config.KeyPath != "" {
		keyPath := expandHome(config.KeyPath)
		key, err := os.ReadFile(keyPath)
		if err != nil {
			log.WithError(err).WithField("path", keyPath).Warn("cannot read private key")
		} else {
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil && config.Password != "" {
				signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(config.Password))
			}
			if err != nil {
				log.WithError(err).Warn("cannot parse private key")
			} else {
				log.WithField("type", signer.PublicKey().Type()).Debug("loaded private key")
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			log.WithError(err).Debug("ssh agent unavailable")
		}
	}

	if config.Password != "" {
		methods = append(methods,
			ssh.Password(config.Password),
			// some servers only offer keyboard-interactive
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = config.Password
				}
				return answers, nil
			}),
		)
	}
	return methods
}

// hostKeyCallback verifies against ~/.ssh/known_hosts when present
func hostKeyCallback() ssh.HostKeyCallback {
	path := expandHome("~/.ssh/known_hosts")
	if cb, err := knownhosts.New(path); err == nil {
		return cb
	}
	logger.Named("ssh").Warn("known_hosts not found, host key is not verified")
	return ssh.InsecureIgnoreHostKey()
}

// NewSSHTunnel establishes an SSH connection
func NewSSHTunnel(ctx context.Context, config *SSHConfig) (*SSHTunnel, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("SSH host is required")
	}
	methods := authMethods(config)
	if len(methods) == 0 {
		return nil, fmt.Errorf("no valid SSH authentication methods found")
	}

	port := config.Port
	if port == 0 {
		port = 22
	}
	address := net.JoinHostPort(config.Host, fmt.Sprint(port))
	cliConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback(),
	}

	logger.Named("ssh").WithField("addr", address).WithField("user", config.User).Debug("dialing")
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, address, cliConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake: %w", err)
	}
	return &SSHTunnel{client: ssh.NewClient(c, chans, reqs)}, nil
}

// DialContext connects to a remote address through the tunnel
func (t *SSHTunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return t.client.DialContext(ctx, network, addr)
}

// Close closes the SSH connection
func (t *SSHTunnel) Close() error {
	return t.client.Close()
}
