package config

import (
	"bytes"
	"os"

	"github.com/crazy-max/unpak/pkg/resolve"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Profile describes the game owning an archive: its name, an optional
// forced driver and resolver rule overrides.
type Profile struct {
	Name   string                        `yaml:"name"`
	Driver string                        `yaml:"driver,omitempty"`
	Rules  map[resolve.Kind]resolve.Rule `yaml:"rules,omitempty"`
}

// LoadProfile reads a YAML profile file.
func LoadProfile(filename string) (*Profile, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read profile %q", filename)
	}
	p, err := ParseProfile(b)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid profile %q", filename)
	}
	return p, nil
}

// ParseProfile decodes a YAML profile. Unknown fields and kinds are
// rejected. Rule keys are case-insensitive.
func ParseProfile(b []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.New("profile name is required")
	}
	if len(p.Rules) == 0 {
		return &p, nil
	}
	rules := make(map[resolve.Kind]resolve.Rule, len(p.Rules))
	for key, rule := range p.Rules {
		kind, err := resolve.ParseKind(string(key))
		if err != nil {
			return nil, err
		}
		if kind == resolve.KindAny {
			return nil, errors.New("rules cannot be set for kind any")
		}
		if _, dup := rules[kind]; dup {
			return nil, errors.Errorf("duplicate rule for kind %s", kind)
		}
		if len(rule.Extensions) == 0 {
			return nil, errors.Errorf("rule %s has no extensions", kind)
		}
		if len(rule.Locations) == 0 {
			return nil, errors.Errorf("rule %s has no locations", kind)
		}
		rules[kind] = rule
	}
	p.Rules = rules
	return &p, nil
}
