package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tonhe/fritzmon/internal/engine"
	"github.com/tonhe/fritzmon/internal/fritz"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func tokenCmd(args []string) error {
	var conn connection
	fs := newConnectionFlags("token", &conn)
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}

	cl, err := conn.dial("", fritz.SampleInterval)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := signalContext()
	defer cancel()

	token, err := cl.auth.Authenticate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func infoCmd(args []string) error {
	var conn connection
	fs := newConnectionFlags("info", &conn)
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}

	cl, err := conn.dial("", fritz.SampleInterval)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := cl.auth.Authenticate(ctx); err != nil {
		return err
	}
	v, err := cl.info.OSVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, v)
	return nil
}

func graphCmd(args []string) error {
	var (
		conn     connection
		interval time.Duration
		count    int
	)
	fs := newConnectionFlags("graph", &conn)
	fs.DurationVar(&interval, "interval", 0, "poll repeatedly at this interval (minimum 5s)")
	fs.IntVar(&count, "count", 0, "stop after this many polls in interval mode (0 = forever)")
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}

	repeat := fs.Changed("interval")
	pollEvery := fritz.SampleInterval
	if repeat {
		pollEvery, _ = engine.ClampInterval(interval)
	}

	cl, err := conn.dial("", pollEvery)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := signalContext()
	defer cancel()

	enc := json.NewEncoder(stdout)
	if !repeat {
		if _, err := cl.auth.Authenticate(ctx); err != nil {
			return err
		}
		bw, err := cl.graph.Fetch(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(bw)
	}

	cl.serveMetrics(ctx, conn.MetricsAddr)
	return pollGraph(ctx, cl, interval, count, enc)
}

// pollGraph prints one JSON line per successful poll. The poller logs
// failed polls and keeps going.
func pollGraph(ctx context.Context, cl *client, interval time.Duration, count int, enc *json.Encoder) error {
	poller := engine.NewPoller(cl.auth, cl.graph, engine.Config{
		Interval:   interval,
		MaxHistory: cl.cfg.MaxHistory,
		Logger:     cl.log.Named("poller"),
		OnPoll:     cl.metrics.ObservePoll,
	})
	events := poller.Subscribe()
	go poller.Run(ctx)
	defer poller.Stop()

	var printed *fritz.Bandwidth
	polls := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			snap := ev.Snapshot
			polls = snap.PollCount
			if errors.Is(snap.LastError, context.Canceled) {
				return nil
			}
			if snap.LastError == nil && snap.Latest != nil && snap.Latest != printed {
				printed = snap.Latest
				if err := enc.Encode(snap.Latest); err != nil {
					return err
				}
			}
			if count > 0 && polls >= count {
				return nil
			}
		}
	}
}
