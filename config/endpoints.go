// Package config loads broker configuration records from a YAML endpoints
// file. Each top-level key names one endpoint section with a type, an
// optional url, and free-form parameters.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/next-trace/scg-event-broker/contract/broker"
)

type rawEndpoint struct {
	Type   string         `yaml:"type"`
	URL    string         `yaml:"url"`
	Kwargs map[string]any `yaml:",inline"`
}

// ReadEndpointConfig reads the section named key from the YAML file at
// path. A missing file or a missing key yields (nil, nil) — no endpoint
// configured; a file that fails to parse is an error.
func ReadEndpointConfig(path, key string) (*broker.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read endpoints %q: %w", path, err)
	}

	var sections map[string]rawEndpoint
	if err = yaml.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("parse endpoints %q: %w", path, err)
	}

	section, ok := sections[key]
	if !ok {
		return nil, nil
	}

	return &broker.Config{
		Type:   section.Type,
		URL:    section.URL,
		Kwargs: section.Kwargs,
	}, nil
}
