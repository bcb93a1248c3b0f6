// Package main is the entry point for the mailjet-send CLI. It parses RFC 5322
// message files and delivers them through Mailjet, AWS SES or stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shineum/mailjet-transport/internal/config"
	"github.com/shineum/mailjet-transport/internal/provider"
	"github.com/shineum/mailjet-transport/internal/provider/mailjet"
	"github.com/shineum/mailjet-transport/internal/provider/ses"
	"github.com/shineum/mailjet-transport/internal/provider/stdout"
	"github.com/shineum/mailjet-transport/internal/transport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by the subcommands once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mailjet-send",
		Short: "Send RFC 5322 message files through the Mailjet send API",
		Long: `mailjet-send parses .eml files and delivers them through Mailjet
(v3 or v3.1 send API), AWS SES or stdout.

Example:
  mailjet-send send welcome.eml            # send one message
  mailjet-send send --batch a.eml b.eml    # one API call for both
  mailjet-send payload --version v3.1 a.eml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML configuration file (optional)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "override the configured log format (text or json)")

	root.AddCommand(newSendCmd(a))
	root.AddCommand(newPayloadCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func (a *app) init(logOut io.Writer) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogger(logOut, cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger. "json" writes slog JSON
// records; anything else uses the human-readable charmbracelet handler.
func setupLogger(w io.Writer, level, format string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(logLevel),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
	}
	slog.SetDefault(slog.New(handler))
}

// selectProvider builds the delivery backend named by the configuration,
// auto-detecting from credentials when none is set. The stdout provider
// writes to out.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch name := cfg.ResolvedProvider(); name {
	case config.ProviderMailjet:
		t := transport.New(cfg.Mailjet.APIKey, cfg.Mailjet.APISecret,
			transport.WithCall(cfg.Mailjet.Call),
			transport.WithClientOptions(cfg.ClientOptions()),
			transport.WithLogger(slog.Default()),
		)
		slog.Info("using Mailjet provider",
			"version", t.Format(),
			"url", cfg.Mailjet.URL,
			"call", cfg.Mailjet.Call,
		)
		return mailjet.New(t), nil

	case config.ProviderSES:
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderStdout:
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(out), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
