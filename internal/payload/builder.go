// Package payload converts email messages into request bodies for the
// Mailjet send API. Two incompatible wire formats are supported: the flat v3
// format and the nested v3.1 format.
package payload

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shineum/mailjet-transport/internal/email"
)

// Send API versions.
const (
	VersionV3  = "v3"
	VersionV31 = "v3.1"
)

// Builder produces send API request bodies for one wire format version.
type Builder interface {
	// Version returns the send API version, "v3" or "v3.1".
	Version() string

	// Build returns the request body for sending a single message.
	Build(msg *email.Message) (any, error)

	// Batch returns one request body carrying every message.
	Batch(msgs []*email.Message) (any, error)

	// SentCount returns the number of recipients the provider accepted,
	// read from a send API response body.
	SentCount(body []byte) int
}

// BatchRequest is the bulk request body shared by both versions.
type BatchRequest struct {
	Messages []any `json:"Messages"`
}

// Option customises a Builder.
type Option func(*options)

type options struct {
	table  HeaderTable
	logger *slog.Logger
}

// WithHeaderTable overrides the provider header catalog.
func WithHeaderTable(table HeaderTable) Option {
	return func(o *options) {
		if table != nil {
			o.table = append(HeaderTable(nil), table...)
		}
	}
}

// WithLogger sets the logger used for dropped-content notices.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(table HeaderTable, opts []Option) options {
	o := options{table: table, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// ForVersion returns the builder for version. Any value other than "v3.1"
// selects the v3 format.
func ForVersion(version string, opts ...Option) Builder {
	if version == VersionV31 {
		return NewV31(opts...)
	}
	return NewV3(opts...)
}

// marshalWithFields encodes v and adds the provider header fields as
// top-level keys of the resulting object.
func marshalWithFields(v any, fields map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(fields) == 0 {
		return data, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", name, err)
		}
		obj[name] = raw
	}
	return json.Marshal(obj)
}
