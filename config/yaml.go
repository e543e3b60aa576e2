package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed blank_template.yaml
var blankTemplateYAML []byte

// Defaults returns the zero-config document, normalized. It is the base
// layer of the defaults ⊕ file ⊕ CLI merge.
func Defaults() (Config, error) {
	var c Config
	if err := yaml.Unmarshal(blankTemplateYAML, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse blank_template.yaml: %w", err)
	}
	if err := Normalize(&c); err != nil {
		return Config{}, fmt.Errorf("config: normalize defaults: %w", err)
	}
	return c, nil
}

// ParseYAML unmarshals content into a Config overlay. The result is NOT
// normalized and NOT merged with defaults — callers combine it with
// Merge(base, overlay) and then Normalize the result, matching
// SPEC_FULL.md §4.8's three-way merge (Normalize folding in check_config's
// validation only needs to run once, on the final merged document).
func ParseYAML(content []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(content, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return c, nil
}

// DumpYAML serializes c back to YAML. Grounded on
// matsense/tools.py::dump_config.
func DumpYAML(c Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: dump yaml: %w", err)
	}
	return out, nil
}
