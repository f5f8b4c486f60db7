// Package config loads a tinypg connection profile from YAML, the same
// way an application embedding the driver would keep its database
// credentials out of source: one file, environment-variable
// substitution for secrets, optional hot-reload when the file changes.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile describes everything needed to call tinypg.Connect for one
// database. Fields mirror Connect's parameter list plus the options
// exposed as functional Options.
type Profile struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	User       string        `yaml:"user"`
	Password   string        `yaml:"password"`
	Database   string        `yaml:"database"`
	TLS        bool          `yaml:"tls"`
	Timeout    time.Duration `yaml:"timeout"`
	Autocommit *bool         `yaml:"autocommit"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML connection profile from path, substituting
// ${VAR_NAME} references against the current environment before
// parsing, matching the teacher's substituteEnvVars behavior: an unset
// variable is left as the literal "${VAR_NAME}" text rather than
// silently blanked, so a typo'd variable name shows up as that literal
// text in the loaded field instead of a quietly empty credential.
func Load(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(raw))

	var p Profile
	if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if p.Port == 0 {
		p.Port = 5432
	}
	return &p, nil
}

// substituteEnvVars replaces every ${NAME} occurrence with the value of
// the environment variable NAME, leaving the match untouched when NAME
// isn't set.
func substituteEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// AutocommitOrDefault returns the profile's autocommit setting, defaulting
// to false (tinypg's own default) when the profile doesn't specify one.
func (p *Profile) AutocommitOrDefault() bool {
	if p.Autocommit == nil {
		return false
	}
	return *p.Autocommit
}
