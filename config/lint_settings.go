package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const (
	DefaultLintSettingsFile = ".defcheck.yml"
	lintEnvPrefix           = "DEFCHECK_"
)

// LintSettings selects which checks run and how definitions are loaded.
// Checks not mentioned are enabled.
type LintSettings struct {
	Checks      map[string]bool `koanf:"checks"`
	Strict      bool            `koanf:"strict"`
	Format      string          `koanf:"format"`
	Template    string          `koanf:"template"`
	Concurrency int             `koanf:"concurrency"`

	// Source is the settings file that was read, if any
	Source string `koanf:"-"`
}

func (s *LintSettings) Enabled(ruleID string) bool {
	if enabled, ok := s.Checks[ruleID]; ok {
		return enabled
	}
	return true
}

// LoadLintSettings merges, lowest precedence first: defaults, the settings file, `DEFCHECK_` env vars
// and any flags that were explicitly set
func LoadLintSettings(settingsFile string, flags *pflag.FlagSet) (*LintSettings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"checks":      map[string]any{},
		"strict":      false,
		"format":      "text",
		"concurrency": 0,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	source := ""
	if settingsFile != "" {
		if _, err := os.Stat(settingsFile); err == nil {
			if err := k.Load(file.Provider(settingsFile), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading settings file %s: %w", settingsFile, err)
			}
			source = settingsFile
			log.Debug().Msgf("Loaded lint settings from %s", settingsFile)
		} else if settingsFile != DefaultLintSettingsFile {
			return nil, fmt.Errorf("settings file %s: %w", settingsFile, err)
		}
	}

	// DEFCHECK_STRICT -> strict, DEFCHECK_CHECKS_SOME_RULE -> checks.some-rule
	if err := k.Load(env.Provider(lintEnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "check" {
				values, _ := flags.GetStringSlice(f.Name)
				return "checks", ParseCheckFlags(values)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	settings := LintSettings{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "koanf",
		WeaklyTypedInput: true,
		Result:           &settings,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(k.Raw()); err != nil {
		return nil, fmt.Errorf("unable to decode lint settings: %w", err)
	}
	settings.Source = source

	return &settings, nil
}

// ParseCheckFlags turns `rule=true` style values into a checks map. A bare rule ID enables it.
func ParseCheckFlags(values []string) map[string]any {
	checks := map[string]any{}
	for _, v := range values {
		rule, enabled, found := strings.Cut(v, "=")
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if !found {
			enabled = "true"
		}
		checks[rule] = strings.TrimSpace(enabled)
	}
	return checks
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, lintEnvPrefix))
	if rule, ok := strings.CutPrefix(key, "checks_"); ok {
		return "checks." + strings.ReplaceAll(rule, "_", "-")
	}
	return key
}
