package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tonhe/fritzmon/internal/config"
	"github.com/tonhe/fritzmon/internal/engine"
	"github.com/tonhe/fritzmon/tui"
)

// watchCmd runs the live dashboard. Logs go to a file because the
// dashboard owns the terminal.
func watchCmd(args []string) error {
	var (
		conn     connection
		interval time.Duration
		theme    string
	)
	fs := newConnectionFlags("watch", &conn)
	fs.DurationVar(&interval, "interval", 0, "poll interval (minimum 5s)")
	fs.StringVar(&theme, "theme", "", "theme override")
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg := loadOrDefaultConfig()
	every := cfg.PollInterval
	if fs.Changed("interval") {
		every = interval
	}

	if theme != "" {
		if !knownTheme(theme) {
			return fmt.Errorf("unknown theme %q", theme)
		}
		cfg.Theme = theme
	}

	logPath, err := config.GetLogPath()
	if err != nil {
		return err
	}
	pollEvery, _ := engine.ClampInterval(every)
	cl, err := conn.dial(logPath, pollEvery)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := signalContext()
	defer cancel()
	cl.serveMetrics(ctx, conn.MetricsAddr)

	poller := engine.NewPoller(cl.auth, cl.graph, engine.Config{
		Interval:   every,
		MaxHistory: cfg.MaxHistory,
		Logger:     cl.log.Named("poller"),
		OnPoll:     cl.metrics.ObservePoll,
	})
	defer poller.Stop()

	creds := cl.auth.Credentials()
	model := tui.NewAppModel(ctx, cfg, poller, creds.BaseURL).WithOSVersion(cl.info.OSVersion)
	go poller.Run(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
