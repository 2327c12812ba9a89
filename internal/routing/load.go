package routing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidRouting is returned when a routing document fails validation.
var ErrInvalidRouting = errors.New("invalid routing configuration")

// Default returns the embedded routing table.
func Default() *Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("routing: embedded default is invalid: %v", err))
	}
	return t
}

// Load reads a routing table from path. An empty path yields Default().
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing file %s: %w", path, err)
	}
	t, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("routing file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML routing document.
func Parse(b []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if t.Routes == nil {
		t.Routes = map[string]RoutingEntry{}
	}
	if t.Channels == nil {
		t.Channels = map[string]Channel{}
	}
	if t.Plans == nil {
		t.Plans = map[string]PlanTier{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the invariants the pipeline relies on.
func (t *Table) Validate() error {
	for name, r := range t.Routes {
		if name == "" {
			return fmt.Errorf("%w: empty event type", ErrInvalidRouting)
		}
		if len(r.Channels) == 0 {
			return fmt.Errorf("%w: route %q has no channels", ErrInvalidRouting, name)
		}
		if r.Priority == "" {
			return fmt.Errorf("%w: route %q has no priority", ErrInvalidRouting, name)
		}
	}
	for name, p := range t.Plans {
		if p.MaxChannels < 0 || p.RateLimit < 0 {
			return fmt.Errorf("%w: plan %q has negative limits", ErrInvalidRouting, name)
		}
	}
	if t.Dedup.WindowSeconds < 0 {
		return fmt.Errorf("%w: negative dedup window", ErrInvalidRouting)
	}
	return nil
}
