package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tonhe/fritzmon/internal/config"
	"github.com/tonhe/fritzmon/internal/fritz"
	"github.com/tonhe/fritzmon/internal/vault"
)

const masterKeyEnv = "FRITZMON_MASTER_KEY"

var errProfileUsage = errors.New("usage: fritzmon profile <list|add|rename|remove|test>")

func profileCmd(args []string) error {
	if len(args) == 0 {
		return errProfileUsage
	}

	switch args[0] {
	case "list":
		return profileList()
	case "add":
		return profileAdd()
	case "rename":
		if len(args) < 3 {
			return errors.New("usage: fritzmon profile rename OLD NEW")
		}
		return profileRename(args[1], args[2])
	case "remove":
		if len(args) < 2 {
			return errors.New("usage: fritzmon profile remove NAME")
		}
		return profileRemove(args[1])
	case "test":
		if len(args) < 2 {
			return errors.New("usage: fritzmon profile test NAME [flags]")
		}
		return profileTest(args[1], args[2:])
	default:
		return fmt.Errorf("unknown profile command: %s\n%v", args[0], errProfileUsage)
	}
}

// openStore opens the profile store, prompting for the master password if
// needed. An empty password is tried first to support unprotected stores.
// On first run the password chosen here protects the new store.
func openStore() (*vault.FileStore, error) {
	storePath, err := config.GetProfileStorePath()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating config directories: %w", err)
	}

	prompt := "Master password: "
	if !vault.Exists(storePath) {
		fmt.Fprintf(stderr, "Creating profile store %s\n", storePath)
		prompt = "New master password (empty for none): "
	} else if store, err := vault.Open(storePath, nil); err == nil {
		return store, nil
	}

	password, err := masterPassword(prompt)
	if err != nil {
		return nil, err
	}
	store, err := vault.Open(storePath, password)
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}
	return store, nil
}

// masterPassword reads the store password from the environment or prompts.
func masterPassword(prompt string) ([]byte, error) {
	if key := os.Getenv(masterKeyEnv); key != "" {
		return []byte(key), nil
	}
	return readSecret(prompt)
}

func readSecret(prompt string) ([]byte, error) {
	fmt.Fprint(stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return secret, nil
}

func profileList() error {
	store, err := profileOpener()
	if err != nil {
		return err
	}
	summaries, err := store.List()
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(stdout, "No routers configured.")
		return nil
	}

	cfg := loadOrDefaultConfig()
	for _, s := range summaries {
		base := s.BaseURL
		if base == "" {
			base = fritz.DefaultBaseURL
		}
		line := fmt.Sprintf("%-20s  %s", s.Name, base)
		if s.Username != "" {
			line += fmt.Sprintf("  user=%s", s.Username)
		}
		if s.Name == cfg.DefaultRouter {
			line += "  (default)"
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

func profileAdd() error {
	reader := bufio.NewReader(os.Stdin)
	ask := func(prompt string) string {
		fmt.Fprint(stdout, prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	p := vault.Profile{Name: ask("Router name: ")}
	if p.Name == "" {
		return vault.ErrNoName
	}
	p.BaseURL = ask(fmt.Sprintf("Base URL [%s]: ", fritz.DefaultBaseURL))
	p.Username = ask(fmt.Sprintf("Username [%s]: ", fritz.DefaultUsername))

	password, err := readSecret("Router password: ")
	if err != nil {
		return err
	}
	p.Password = string(password)

	store, err := profileOpener()
	if err != nil {
		return err
	}
	if err := store.Add(p); err != nil {
		return fmt.Errorf("adding profile: %w", err)
	}
	fmt.Fprintf(stdout, "Router %q added.\n", p.Name)
	return nil
}

// profileRename moves a saved router to a new name and follows it with the
// configured default.
func profileRename(from, to string) error {
	store, err := profileOpener()
	if err != nil {
		return err
	}
	p, err := store.Get(from)
	if err != nil {
		return fmt.Errorf("renaming profile: %w", err)
	}
	p.Name = to
	if err := store.Update(from, *p); err != nil {
		return fmt.Errorf("renaming profile: %w", err)
	}

	cfg := loadOrDefaultConfig()
	if cfg.DefaultRouter == from {
		cfg.DefaultRouter = to
		if err := saveConfig(cfg); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "Router %q renamed to %q.\n", from, to)
	return nil
}

func profileRemove(name string) error {
	store, err := profileOpener()
	if err != nil {
		return err
	}
	if err := store.Remove(name); err != nil {
		return fmt.Errorf("removing profile: %w", err)
	}
	fmt.Fprintf(stdout, "Router %q removed.\n", name)
	return nil
}

// profileTest logs in with a saved router and reads its OS version.
func profileTest(name string, args []string) error {
	conn := connection{Profile: name}
	fs := newConnectionFlags("profile test", &conn)
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}
	conn.Profile = name

	cl, err := conn.dial("", fritz.SampleInterval)
	if err != nil {
		return err
	}
	defer cl.Close()

	creds := cl.auth.Credentials()
	fmt.Fprintf(stderr, "Testing login to %s as %s using router %q...\n", creds.BaseURL, creds.Username, name)

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := cl.auth.Authenticate(ctx); err != nil {
		return err
	}
	v, err := cl.info.OSVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "FRITZ!OS: %s\n", v)
	fmt.Fprintln(stdout, "Connection test successful.")
	return nil
}
