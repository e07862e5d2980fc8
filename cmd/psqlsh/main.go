// cmd/psqlsh/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhath/psqlsh/internal/assist"
	"github.com/nhath/psqlsh/internal/config"
	"github.com/nhath/psqlsh/internal/describe"
	"github.com/nhath/psqlsh/internal/history"
	"github.com/nhath/psqlsh/internal/input"
	"github.com/nhath/psqlsh/internal/logger"
	"github.com/nhath/psqlsh/internal/provision"
	"github.com/nhath/psqlsh/internal/session"
	"github.com/nhath/psqlsh/internal/terminal"
	"github.com/nhath/psqlsh/internal/ui"
)

const usage = `Usage: psqlsh [flags] [command]

Commands:
  (none)                         start the interactive shell
  profile add [flags] NAME DSN   save a connection profile
  profile list                   list saved profiles
  profile rm NAME                delete a profile
  history list DATABASE          list saved prompt lines, newest first
  history search DATABASE TEXT   find saved prompt lines containing TEXT
  history rm ID                  delete a saved prompt line
  set-openai-key KEY             store the OpenAI API key in the keyring

Flags:
`

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging to psqlsh.log")
	configPath := flag.String("config", "", "Path to the config file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Args(), *debug, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "psqlsh: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, debug bool, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	closer, err := setupLogging(cfg, debug)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	if len(args) > 0 {
		return runCommand(cfg, args)
	}
	return runShell(cfg)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	var secrets config.SecretStore
	if ks, err := config.NewKeyringStore(); err == nil {
		secrets = ks
	}
	return config.LoadFrom(path, secrets)
}

func setupLogging(cfg *config.Config, debug bool) (io.Closer, error) {
	switch {
	case debug:
		return logger.SetupFile(cfg.LogFile, logrus.DebugLevel)
	case cfg.LogFile != "":
		return logger.SetupFile(cfg.LogFile, logrus.InfoLevel)
	}
	return nil, nil
}

func runShell(cfg *config.Config) error {
	log := logger.Named("main")
	ui.InitStyles(cfg.Theme)

	issuer, err := provision.New(cfg)
	if err != nil {
		return err
	}
	assistant, err := assist.New(cfg)
	if err != nil {
		return err
	}

	deps := session.Deps{
		Provisioner: issuer,
		Connector:   session.NewDSNConnector(sshProfile(cfg)),
		Describer:   describe.New(cfg.DocsURL),
		Assistant:   assistant,
		Reporter:    session.NewLogReporter(nil),
	}

	store, err := history.NewStore()
	if err != nil {
		log.WithError(err).Warn("History disabled")
	} else {
		defer store.Close()
		deps.History = store
	}

	opts := session.Options{
		Banner:         cfg.Banner,
		PromptLabel:    cfg.PromptLabel,
		AssistPrefix:   cfg.AssistPrefix,
		RowLimit:       cfg.RowLimit,
		MaxColumnWidth: cfg.MaxColumnWidth,
		QueryTimeout:   time.Duration(cfg.QueryTimeout) * time.Second,
		KeywordsSource: cfg.KeywordsSource,
	}
	// template branches only mean something to a provisioning service
	if cfg.Provision.Mode == config.ProvisionHTTP {
		opts.Templates = provision.Templates(cfg.Templates)
	}

	in := input.NewManager()
	term := terminal.New(in, terminal.WithScrollback(cfg.ScrollbackLines))
	sess := session.New(term, deps, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("provision", cfg.Provision.Mode).WithField("assist", cfg.Assist.Mode).Info("Starting psqlsh")
	return ui.Run(ctx, term, in, sess, cfg.Banner)
}

// sshProfile is the profile whose tunnel settings static provisioning uses
func sshProfile(cfg *config.Config) *config.Profile {
	if cfg.Provision.Mode != config.ProvisionStatic || cfg.Provision.ConnectionString != "" {
		return nil
	}
	p, err := cfg.ProvisionProfile()
	if err != nil {
		return nil
	}
	return p
}
