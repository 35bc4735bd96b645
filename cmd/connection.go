package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tonhe/fritzmon/internal/config"
	"github.com/tonhe/fritzmon/internal/fritz"
	"github.com/tonhe/fritzmon/internal/logging"
	"github.com/tonhe/fritzmon/internal/metrics"
	"github.com/tonhe/fritzmon/internal/vault"
)

const passwordEnv = "FRITZ_PASSWORD"

// connection holds the flags shared by every command that talks to a
// router.
type connection struct {
	Profile     string
	BaseURL     string
	LoginPath   string
	Username    string
	Password    string
	Token       string
	TokenIssued string
	Timeout     time.Duration
	LogLevel    string
	MetricsAddr string
}

func (c *connection) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Profile, "profile", "", "saved router profile")
	fs.StringVar(&c.BaseURL, "base", "", "router base URL")
	fs.StringVar(&c.LoginPath, "login-path", "", "login endpoint path")
	fs.StringVar(&c.Username, "username", "", "login user")
	fs.StringVar(&c.Password, "password", "", "login password (or "+passwordEnv+")")
	fs.StringVar(&c.Token, "token", "", "existing session token")
	fs.StringVar(&c.TokenIssued, "token-issued", "", "issue time of --token (RFC 3339 or unix ms)")
	fs.DurationVar(&c.Timeout, "timeout", 0, "per-request timeout")
	fs.StringVar(&c.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func newConnectionFlags(name string, conn *connection) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	conn.AddFlags(fs)
	return fs
}

// profileOpener opens the profile store. Replaced in tests.
var profileOpener = func() (vault.Provider, error) { return openStore() }

// credentials resolves the login: a saved profile (explicit, or the config
// default when no password or token was given) overlaid with flags.
func (c *connection) credentials(cfg *config.Config) (fritz.Credentials, error) {
	var creds fritz.Credentials

	password := c.Password
	if password == "" {
		password = os.Getenv(passwordEnv)
	}

	name := c.Profile
	if name == "" && password == "" && c.Token == "" {
		name = cfg.DefaultRouter
	}
	if name != "" {
		store, err := profileOpener()
		if err != nil {
			return creds, err
		}
		p, err := store.Get(name)
		if err != nil {
			return creds, err
		}
		creds = p.Credentials()
	}

	if c.BaseURL != "" {
		creds.BaseURL = c.BaseURL
	}
	if c.LoginPath != "" {
		creds.LoginPath = c.LoginPath
	}
	if c.Username != "" {
		creds.Username = c.Username
	}
	if password != "" {
		creds.Password = password
	}
	return creds.WithDefaults(), nil
}

// parseIssued accepts RFC 3339 or unix milliseconds. Empty means unknown.
func parseIssued(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--token-issued: want RFC 3339 or unix milliseconds, got %q", s)
	}
	return t, nil
}

// client is a ready-to-use router connection with its ambient stack.
type client struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
	metrics  *metrics.Collector
	auth     *fritz.Authenticator
	graph    *fritz.Graph
	info     *fritz.Info
}

// dial builds the logger, metrics and router clients. logPath redirects
// logs to a file; empty logs to stderr. pollInterval is how often the graph
// will be fetched.
func (c *connection) dial(logPath string, pollInterval time.Duration) (*client, error) {
	cfg := loadOrDefaultConfig()

	level := c.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	log, closeLog, err := logging.New(level, logPath)
	if err != nil {
		return nil, err
	}

	creds, err := c.credentials(cfg)
	if err != nil {
		closeLog()
		return nil, err
	}
	issued, err := parseIssued(c.TokenIssued)
	if err != nil {
		closeLog()
		return nil, err
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		closeLog()
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = cfg.RequestTimeout
	}
	opts := []fritz.Option{
		fritz.WithFetcher(fritz.NewHTTPFetcher(timeout)),
		fritz.WithLogger(log.Named("fritz")),
		fritz.WithObserver(fritz.Observers(logging.Observer(log), collector.Observe)),
		fritz.WithTokenValidity(cfg.TokenValidity),
		fritz.WithPollInterval(pollInterval),
	}

	var auth *fritz.Authenticator
	if c.Token != "" {
		auth = fritz.NewAuthenticatorWithToken(creds, c.Token, issued, opts...)
	} else {
		auth = fritz.NewAuthenticator(creds, opts...)
	}

	log.Debug("router connection",
		zap.String("base", creds.BaseURL),
		zap.String("user", creds.Username),
		zap.Bool("token_reuse", c.Token != ""))

	return &client{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		metrics:  collector,
		auth:     auth,
		graph:    fritz.NewGraph(auth, creds.BaseURL, opts...),
		info:     fritz.NewInfo(auth, creds.BaseURL, opts...),
	}, nil
}

// serveMetrics starts the /metrics listener when an address is configured.
func (cl *client) serveMetrics(ctx context.Context, flagAddr string) {
	addr := flagAddr
	if addr == "" {
		addr = cl.cfg.MetricsAddr
	}
	if addr == "" {
		return
	}
	go func() {
		if err := cl.metrics.Serve(ctx, addr, cl.log.Named("metrics")); err != nil {
			cl.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

func (cl *client) Close() {
	cl.closeLog()
}
