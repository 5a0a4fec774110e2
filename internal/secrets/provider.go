// Package secrets resolves the webhook destination configuration from
// a secret-backed source. The pipeline only depends on the Provider
// interface, so any backend can stand in.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"release_relay/internal/model"
)

// Provider returns the set of destination endpoints for one
// invocation. The returned slice must be treated as immutable.
type Provider interface {
	Destinations(ctx context.Context) ([]model.Destination, error)
}

// ConfigError reports missing or malformed destination configuration.
// It aborts the invocation: without a trustworthy destination list
// nothing can be delivered or committed.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("destination config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("destination config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// The secret document shared by all providers: {"urls": [...]}.
type urlsDoc struct {
	URLs []string `json:"urls"`
}

func parseDoc(raw []byte) ([]model.Destination, error) {
	var doc urlsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Reason: "decode json", Err: err}
	}
	if len(doc.URLs) == 0 {
		return nil, &ConfigError{Reason: "no webhook urls configured"}
	}
	dests := make([]model.Destination, 0, len(doc.URLs))
	for i, u := range doc.URLs {
		if u == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("empty url at index %d", i)}
		}
		dests = append(dests, model.Destination{URL: u})
	}
	return dests, nil
}

// EnvProvider parses the secret document from an inline value, usually
// injected into the environment by the deployment.
type EnvProvider struct {
	Raw string
}

// Destinations implements Provider.
func (p EnvProvider) Destinations(_ context.Context) ([]model.Destination, error) {
	if p.Raw == "" {
		return nil, &ConfigError{Reason: "inline document is empty"}
	}
	return parseDoc([]byte(p.Raw))
}

// FileProvider reads the secret document from a mounted file, re-read
// on every invocation so secret rotation is picked up without a
// restart.
type FileProvider struct {
	Path string
}

// Destinations implements Provider.
func (p FileProvider) Destinations(_ context.Context) ([]model.Destination, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("read %s", p.Path), Err: err}
	}
	return parseDoc(raw)
}

// Static wraps a fixed destination list. Useful in tests.
type Static []model.Destination

// Destinations implements Provider.
func (p Static) Destinations(_ context.Context) ([]model.Destination, error) {
	if len(p) == 0 {
		return nil, &ConfigError{Reason: "no webhook urls configured"}
	}
	return p, nil
}
