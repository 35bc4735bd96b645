package cmd

import (
	"errors"
	"fmt"

	"github.com/tonhe/fritzmon/internal/config"
	"github.com/tonhe/fritzmon/tui/styles"
)

var errConfigUsage = errors.New("usage: fritzmon config <path|theme|router>")

func configCmd(args []string) error {
	if len(args) == 0 {
		return errConfigUsage
	}

	switch args[0] {
	case "path":
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	case "theme":
		if len(args) < 2 {
			return errors.New("usage: fritzmon config theme NAME")
		}
		return configSetTheme(args[1])
	case "router":
		if len(args) < 2 {
			return errors.New("usage: fritzmon config router NAME")
		}
		return configSetRouter(args[1])
	default:
		return fmt.Errorf("unknown config command: %s\n%v", args[0], errConfigUsage)
	}
}

func configSetTheme(name string) error {
	if !knownTheme(name) {
		return fmt.Errorf("unknown theme %q (run 'fritzmon themes' to see available themes)", name)
	}
	cfg := loadOrDefaultConfig()
	cfg.Theme = name
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Default theme set to %q.\n", name)
	return nil
}

func configSetRouter(name string) error {
	store, err := profileOpener()
	if err != nil {
		return err
	}
	if _, err := store.Get(name); err != nil {
		return err
	}
	cfg := loadOrDefaultConfig()
	cfg.DefaultRouter = name
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Default router set to %q.\n", name)
	return nil
}

func themesCmd() {
	for _, name := range styles.Names() {
		fmt.Fprintln(stdout, name)
	}
}

// loadOrDefaultConfig loads the config from disk, falling back to defaults.
func loadOrDefaultConfig() *config.Config {
	path, err := config.GetConfigPath()
	if err != nil {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v, using defaults\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func saveConfig(cfg *config.Config) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func knownTheme(name string) bool {
	_, ok := styles.Lookup(name)
	return ok
}
