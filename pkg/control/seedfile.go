package control

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
)

// LoadSeedFile reads a YAML (or JSON) surface from path. Omitted optional
// fields receive the same defaults the insert path applies, except that a
// missing guardrails.approvalsNeeded stays 0. Timestamps may be omitted;
// the store stamps them when the seed is installed.
func LoadSeedFile(path string) (Surface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Surface{}, fmt.Errorf("%w: %v", ErrSeedFile, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document. Unknown fields are rejected.
func ParseSeed(data []byte) (Surface, error) {
	var s Surface
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Surface{}, fmt.Errorf("%w: %v", ErrSeedFile, err)
	}
	normalizeSeed(&s)
	return s, nil
}

// WriteSeedFile writes s as YAML to path, creating or truncating it.
func WriteSeedFile(path string, s Surface) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding seed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding seed: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing seed %s: %w", path, err)
	}
	return nil
}

func normalizeSeed(s *Surface) {
	for i := range s.Features {
		f := &s.Features[i]
		f.Tags = nonNil(f.Tags)
	}
	for i := range s.Roles {
		r := &s.Roles[i]
		r.Permissions = nonNil(r.Permissions)
		r.FeatureAccess = nonNil(r.FeatureAccess)
		if r.DefaultLanding == "" {
			r.DefaultLanding = defaults.DefaultLanding
		}
	}
	for i := range s.ScanProfiles {
		p := &s.ScanProfiles[i]
		p.Targets = nonNil(p.Targets)
		p.Tooling = nonNil(p.Tooling)
		p.Tags = nonNil(p.Tags)
		if p.Parameters == nil {
			p.Parameters = map[string]any{}
		}
		if p.Schedule.Timezone == "" {
			p.Schedule.Timezone = defaults.DefaultTimezone
		}
		p.Guardrails.NotifyRoles = nonNil(p.Guardrails.NotifyRoles)
	}
}
