package mailjet

import (
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
)

// Default client settings.
const (
	DefaultURL     = "api.mailjet.com"
	DefaultVersion = "v3"
	DefaultTimeout = 30 * time.Second
)

// Options configures the API endpoint. Zero fields take the defaults.
type Options struct {
	// URL is the API host, without scheme.
	URL string `yaml:"url"`

	// Version is the API version path segment, "v3" or "v3.1".
	Version string `yaml:"version"`

	// Insecure selects plain http instead of https.
	Insecure bool `yaml:"insecure"`

	Timeout time.Duration `yaml:"timeout"`
}

// DefaultOptions returns the settings used for unset fields.
func DefaultOptions() Options {
	return Options{
		URL:     DefaultURL,
		Version: DefaultVersion,
		Timeout: DefaultTimeout,
	}
}

// WithDefaults returns o with every zero field filled from DefaultOptions.
func (o Options) WithDefaults() (Options, error) {
	if err := mergo.Merge(&o, DefaultOptions()); err != nil {
		return o, fmt.Errorf("failed to merge client options: %w", err)
	}
	return o, nil
}

// Scheme returns "http" for insecure clients and "https" otherwise.
func (o Options) Scheme() string {
	if o.Insecure {
		return "http"
	}
	return "https"
}

// Endpoint returns the absolute URL of resource.
func (o Options) Endpoint(r Resource) string {
	host := strings.TrimSuffix(o.URL, "/")
	return fmt.Sprintf("%s://%s/%s/%s", o.Scheme(), host, strings.Trim(o.Version, "/"), r)
}
