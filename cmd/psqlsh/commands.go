package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nhath/psqlsh/internal/config"
)

func runCommand(cfg *config.Config, args []string) error {
	switch args[0] {
	case "profile":
		if len(args) < 2 {
			return errors.New("usage: psqlsh profile add|list|rm")
		}
		switch args[1] {
		case "add":
			return profileAdd(cfg, args[2:])
		case "list", "ls":
			return profileList(cfg)
		case "rm", "delete":
			if len(args) != 3 {
				return errors.New("usage: psqlsh profile rm NAME")
			}
			if err := cfg.DeleteProfile(args[2]); err != nil {
				return err
			}
			fmt.Printf("Deleted profile %q\n", args[2])
			return nil
		}
		return fmt.Errorf("unknown profile command: %s", args[1])

	case "history":
		return runHistory(os.Stdout, args[1:])

	case "set-openai-key":
		if len(args) != 2 {
			return errors.New("usage: psqlsh set-openai-key KEY")
		}
		store, err := config.NewKeyringStore()
		if err != nil {
			return err
		}
		if err := config.SetOpenAIKey(store, args[1]); err != nil {
			return err
		}
		fmt.Println("OpenAI API key stored in the system keyring")
		return nil
	}
	return fmt.Errorf("unknown command: %s", args[0])
}

func profileAdd(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("profile add", flag.ContinueOnError)
	makeDefault := fs.Bool("default", false, "Use this profile for static provisioning")
	sshHost := fs.String("ssh-host", "", "SSH jump host")
	sshPort := fs.Int("ssh-port", 22, "SSH port")
	sshUser := fs.String("ssh-user", "", "SSH user")
	sshKey := fs.String("ssh-key", "", "SSH private key path")
	sshPassword := fs.String("ssh-password", "", "SSH password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: psqlsh profile add [flags] NAME DSN")
	}

	p, err := config.ParseDSN(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if *sshHost != "" {
		p.SSHHost = *sshHost
		p.SSHPort = *sshPort
		p.SSHUser = *sshUser
		p.SSHKeyPath = *sshKey
		p.SSHPassword = *sshPassword
	}
	if *makeDefault || cfg.DefaultProfile == "" {
		cfg.DefaultProfile = p.Name
	}
	if err := cfg.SetProfile(p); err != nil {
		return err
	}
	fmt.Printf("Saved profile %q (%s)\n", p.Name, p.Redacted())
	return nil
}

func profileList(cfg *config.Config) error {
	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles. Add one with: psqlsh profile add NAME DSN")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tCONNECTION\tSSH")
	for _, name := range cfg.ListProfiles() {
		p, err := cfg.GetProfile(name)
		if err != nil {
			continue
		}
		marker := ""
		if name == cfg.DefaultProfile {
			marker = " *"
		}
		ssh := "-"
		if p.SSHHost != "" {
			ssh = fmt.Sprintf("%s@%s:%d", p.SSHUser, p.SSHHost, p.SSHPort)
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", p.Name, marker, p.Type, p.Redacted(), ssh)
	}
	return w.Flush()
}
