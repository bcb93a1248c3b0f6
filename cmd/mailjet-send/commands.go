package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/mailjet-transport/internal/email"
	"github.com/shineum/mailjet-transport/internal/parser"
	"github.com/shineum/mailjet-transport/internal/payload"
	"github.com/shineum/mailjet-transport/internal/provider"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		batch        bool
		providerName string
	)

	cmd := &cobra.Command{
		Use:   "send FILE...",
		Short: "Parse and deliver one or more message files",
		Long: `Parse each FILE as an RFC 5322 message and deliver it through the
configured provider. Use "-" to read a single message from stdin.

With --batch and a provider that supports it, all messages are delivered in
one API call and a failure applies to every message.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerName != "" {
				a.cfg.Provider = providerName
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			msgs, err := readMessages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			prov, err := selectProvider(cmd.Context(), a.cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			if bp, ok := prov.(provider.BatchProvider); ok && batch {
				if err := bp.SendBatch(cmd.Context(), msgs); err != nil {
					slog.Error("batch delivery failed", "provider", prov.Name(), "messages", len(msgs), "error", err)
					return err
				}
				slog.Info("batch delivered", "provider", prov.Name(), "messages", len(msgs))
				return nil
			}

			var failed int
			for i, msg := range msgs {
				if err := prov.Send(cmd.Context(), msg); err != nil {
					slog.Error("delivery failed", "provider", prov.Name(), "file", args[i], "error", err)
					failed++
					continue
				}
				slog.Info("message delivered", "provider", prov.Name(), "file", args[i])
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d messages failed", failed, len(msgs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&batch, "batch", false, "deliver all messages in a single API call")
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "override the configured provider (mailjet, ses, stdout)")
	return cmd
}

func newPayloadCmd(a *app) *cobra.Command {
	var apiVersion string

	cmd := &cobra.Command{
		Use:   "payload FILE...",
		Short: "Print the Mailjet request body for message files without sending",
		Long: `Build the send API request body for each FILE and print it as JSON.
A single file produces a single-message body; several files produce one bulk
body.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiVersion == "" {
				apiVersion = a.cfg.Mailjet.Version
			}
			if apiVersion != payload.VersionV3 && apiVersion != payload.VersionV31 {
				return fmt.Errorf("unsupported API version %q", apiVersion)
			}

			msgs, err := readMessages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			b := payload.ForVersion(apiVersion, payload.WithLogger(slog.Default()))
			var body any
			if len(msgs) == 1 {
				body, err = b.Build(msgs[0])
			} else {
				body, err = b.Batch(msgs)
			}
			if err != nil {
				return fmt.Errorf("failed to build %s payload: %w", b.Version(), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(body)
		},
	}

	cmd.Flags().StringVar(&apiVersion, "version", "", "send API version, v3 or v3.1 (default from config)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mailjet-send version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mailjet-send %s\n", version)
		},
	}
}

// readMessages parses every path. "-" reads from stdin and may appear once.
func readMessages(stdin io.Reader, paths []string) ([]*email.Message, error) {
	msgs := make([]*email.Message, 0, len(paths))
	usedStdin := false

	for _, path := range paths {
		var (
			raw []byte
			err error
		)
		if path == "-" {
			if usedStdin {
				return nil, errors.New("stdin can only be read once")
			}
			usedStdin = true
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		msg, err := parser.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
