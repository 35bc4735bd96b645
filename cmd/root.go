package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const version = "fritzmon v0.1.0"

// Output streams, swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Execute runs the subcommand named by args[0], defaulting to watch. Errors
// are printed to stderr and exit the process with status 1.
func Execute(args []string) {
	if err := run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || (len(args[0]) > 0 && args[0][0] == '-') {
		return watchCmd(args)
	}

	switch args[0] {
	case "watch":
		return watchCmd(args[1:])
	case "token":
		return tokenCmd(args[1:])
	case "graph":
		return graphCmd(args[1:])
	case "info":
		return infoCmd(args[1:])
	case "profile":
		return profileCmd(args[1:])
	case "config":
		return configCmd(args[1:])
	case "themes":
		themesCmd()
		return nil
	case "version":
		fmt.Fprintln(stdout, version)
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// parseFlags parses args into fs. --help prints the flag defaults and
// returns errHelpShown so the caller can stop without reporting an error.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(stdout, "Usage of fritzmon %s:\n", fs.Name())
			fs.SetOutput(stdout)
			fs.PrintDefaults()
			return errHelpShown
		}
		return err
	}
	return nil
}

var errHelpShown = errors.New("help shown")

func ignoreHelp(err error) error {
	if errors.Is(err, errHelpShown) {
		return nil
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `fritzmon - FRITZ!Box bandwidth monitor

Usage:
  fritzmon [watch] [flags]            Launch the live dashboard
  fritzmon token [flags]              Log in and print a session token
  fritzmon graph [flags]              Print normalized bandwidth as JSON
      --interval D                    Poll every D (minimum 5s)
      --count N                       Stop after N polls (0 = forever)
  fritzmon info [flags]               Print the FRITZ!OS version
  fritzmon profile <cmd>              Manage saved routers
  fritzmon config <cmd>               Manage configuration
  fritzmon themes                     List available themes
  fritzmon version                    Show version
  fritzmon help                       Show this help

Connection flags:
  --profile NAME        Saved router to use (default: config default_router)
  --base URL            Router base URL (default http://fritz.box)
  --login-path PATH     Login endpoint (default /login_sid.lua)
  --username NAME       Login user (default admin)
  --password PW         Login password (or FRITZ_PASSWORD)
  --token SID           Reuse an existing session token
  --token-issued T      When --token was issued (RFC 3339 or unix ms)
  --timeout D           Per-request timeout
  --log-level LEVEL     debug, info, warn or error
  --metrics-addr ADDR   Serve Prometheus metrics on ADDR

Profile Commands:
  fritzmon profile list               List saved routers
  fritzmon profile add                Add a router (interactive)
  fritzmon profile rename OLD NEW     Rename a router
  fritzmon profile remove NAME        Remove a router
  fritzmon profile test NAME          Log in and print the OS version

Config Commands:
  fritzmon config path                Show config file path
  fritzmon config theme NAME          Set default theme
  fritzmon config router NAME         Set default router`)
}
