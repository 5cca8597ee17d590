package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/cli"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/go-tfs"
	"github.com/tphakala/go-tfs/internal/config"
	"github.com/tphakala/go-tfs/internal/logging"
	"github.com/tphakala/go-tfs/internal/telemetry"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const closeTimeout = 10 * time.Second

// Meta holds what every command shares: the UI, common flags and extra
// client options.
type Meta struct {
	UI cli.Ui

	// ClientOptions are applied after the options derived from config.
	ClientOptions []tfs.ClientOption

	flagConfig string
	flagFormat string
}

// FlagSet returns a flag set carrying the common flags.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)

	f.StringVar(
		&m.flagConfig, "config", "",
		"Path to a YAML config file. TFS_* environment variables override it.",
	)
	f.StringVar(
		&m.flagFormat, "format", FormatJSON,
		"Output format: json or yaml.",
	)

	return f
}

// commonHelp documents the flags added by FlagSet.
const commonHelp = `

Common Options:

  -config=<path>    Path to a YAML config file. TFS_* environment
                    variables override values from the file.
  -format=<json|yaml>
                    Output format. Default: json.`

// session is an opened client together with the resources to release
// after the command.
type session struct {
	client   *tfs.Client
	cfg      *config.Config
	logger   hclog.Logger
	registry *prometheus.Registry

	shutdownTracing telemetry.ShutdownFunc
	closeLog        func() error
}

func (m *Meta) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(m.flagConfig)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cliName, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	tp, shutdown, err := telemetry.NewTracerProvider(ctx, cfg.Tracing, Version, logger)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	registry := prometheus.NewRegistry()

	opts := []tfs.ClientOption{
		tfs.WithHost(cfg.Server.Host, cfg.Server.Port),
		tfs.WithCollection(cfg.Server.Collection),
		tfs.WithCredentials(cfg.Server.Domain, cfg.Server.Username, cfg.Server.Password),
		tfs.WithAPIVersion(cfg.Server.APIVersion),
		tfs.WithPageSize(cfg.Server.PageSize),
		tfs.WithTimeout(cfg.Server.Timeout),
		tfs.WithUserAgent(cliName + "/" + Version),
		tfs.WithLogger(logger.Named("client")),
		tfs.WithStatusLogger(tfs.NewLogStatusLogger(logger)),
		tfs.WithTracerProvider(tp),
	}
	if cfg.Metrics.Enabled() {
		opts = append(opts, tfs.WithMetrics(registry))
	}
	opts = append(opts, m.ClientOptions...)

	client, err := tfs.NewClient(opts...)
	if err != nil {
		_ = shutdown(ctx)
		_ = closeLog()
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return &session{
		client:          client,
		cfg:             cfg,
		logger:          logger,
		registry:        registry,
		shutdownTracing: shutdown,
		closeLog:        closeLog,
	}, nil
}

// close pushes metrics, flushes traces and closes the log file.
func (s *session) close(ctx context.Context) error {
	var result *multierror.Error

	if err := telemetry.Push(ctx, s.cfg.Metrics, s.registry, s.logger); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.shutdownTracing(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutting down tracing: %w", err))
	}
	if err := s.closeLog(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing log: %w", err))
	}

	return result.ErrorOrNil()
}

// execute opens a session, runs fn and renders its result.
func (m *Meta) execute(fn func(context.Context, *session) (*tfs.Result, error)) int {
	if err := validateFormat(m.flagFormat); err != nil {
		m.UI.Error(err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := m.open(ctx)
	if err != nil {
		m.UI.Error(fmt.Sprintf("error: %v", err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := s.close(closeCtx); err != nil {
			m.UI.Warn(fmt.Sprintf("warning: %v", err))
		}
	}()

	res, err := fn(ctx, s)
	if err != nil {
		m.UI.Error(fmt.Sprintf("error: %v", err))
		return 1
	}

	return m.render(res)
}

// render writes a result in the selected format. Failures exit with 1.
func (m *Meta) render(res *tfs.Result) int {
	if res.Partial != nil {
		m.UI.Warn(fmt.Sprintf("warning: some chunks failed: %v", res.Partial))
	}

	switch res.Kind {
	case tfs.KindValue:
		out, err := encode(m.flagFormat, res.Value)
		if err != nil {
			m.UI.Error(fmt.Sprintf("error encoding output: %v", err))
			return 1
		}
		m.UI.Output(out)
		return 0
	case tfs.KindEmpty:
		m.UI.Info("no content")
		return 0
	default:
		m.UI.Error(res.Message())
		return 1
	}
}

func validateFormat(format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func encode(format string, v any) (string, error) {
	var (
		b   []byte
		err error
	)
	switch format {
	case FormatYAML:
		b, err = yaml.Marshal(v)
	case FormatJSON:
		b, err = json.MarshalIndent(v, "", "  ")
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// parseFlags parses args and reports flag errors on the UI.
func (m *Meta) parseFlags(f *flag.FlagSet, args []string) bool {
	if err := f.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			m.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		}
		return false
	}
	return true
}
