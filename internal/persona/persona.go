// Package persona holds the tone presets that shape the coaching prompt.
// Presets are small user-authored YAML files; the built-in default matches
// the tone the front end was designed around.
package persona

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset overrides the tone wording in the prompt template.
type Preset struct {
	Name     string `yaml:"name"`
	Tone     string `yaml:"tone"`
	Guidance string `yaml:"guidance"`
	Example  string `yaml:"example"`
}

// Default returns the built-in preset.
func Default() Preset {
	return Preset{
		Name:     "default",
		Tone:     "understanding first, then one small step",
		Guidance: "Never use guilt-inducing language. Speak gently, as to a tired friend.",
		Example: `{"message": "🌿 It's okay to slow down today. Your own pace is worth protecting.", ` +
			`"emotion": "healing", "tags": ["rest", "calm"]}`,
	}
}

// LoadFromDirectory loads presets from YAML files in a directory.
// Files must have .yaml or .yml extension. Unreadable or malformed files are
// skipped with a warning so one bad preset cannot block startup.
func LoadFromDirectory(dir string, logger *slog.Logger) ([]Preset, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("persona directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read persona dir: %w", err)
	}

	var presets []Preset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read persona file", "path", path, "err", err)
			continue
		}

		var p Preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			logger.Warn("cannot parse persona file", "path", path, "err", err)
			continue
		}

		if p.Name == "" {
			p.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}

		logger.Info("loaded persona preset", "name", p.Name, "path", path)
		presets = append(presets, p)
	}

	return presets, nil
}

// Select returns the preset with the given name, falling back to Default.
// Empty fields in a matched preset are filled from the default so a preset
// file may override just the tone line.
func Select(presets []Preset, name string) Preset {
	def := Default()
	for _, p := range presets {
		if p.Name != name {
			continue
		}
		if p.Tone == "" {
			p.Tone = def.Tone
		}
		if p.Guidance == "" {
			p.Guidance = def.Guidance
		}
		if p.Example == "" {
			p.Example = def.Example
		}
		return p
	}
	return def
}
