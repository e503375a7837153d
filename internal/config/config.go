// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads pipeline configuration. The on-disk format is the
// classic config.ini the pipeline has always been driven by; its sections
// merge into viper underneath flags and CORECOMP_* environment variables,
// so precedence is flags > env > file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Config is the full pipeline configuration.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Radius   RadiusConfig   `mapstructure:"radius"`
	RV       RVConfig       `mapstructure:"rv"`
	Models   ModelsConfig   `mapstructure:"models"`
	Database DatabaseConfig `mapstructure:"database"`
}

// CatalogConfig drives candidate selection in build mode.
type CatalogConfig struct {
	MassCut              float64 `mapstructure:"mass_cut"`
	MinParallax          float64 `mapstructure:"min_parallax"`
	MinParallaxOverError float64 `mapstructure:"min_parallax_over_error"`
	MaxRUWE              float64 `mapstructure:"max_ruwe"`
}

// RadiusConfig drives the photometric radius measurement.
type RadiusConfig struct {
	Engines string `mapstructure:"engines"` // comma-separated grid names
	NDraws  int    `mapstructure:"n_draws"`
	Seed    uint64 `mapstructure:"seed"`
}

// EngineList splits the comma-separated engine names.
func (r RadiusConfig) EngineList() []string {
	var out []string
	for _, e := range strings.Split(r.Engines, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// RVConfig drives the radial-velocity aggregation in analyze mode.
type RVConfig struct {
	MaxSpread float64 `mapstructure:"max_spread"`
}

// ModelsConfig points at the cooling-model grid manifest.
type ModelsConfig struct {
	Manifest    string `mapstructure:"manifest"`
	Composition string `mapstructure:"composition"` // grid used for the mass cut
}

// DatabaseConfig selects the results database backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"catalog.mass_cut":                1.0,
		"catalog.min_parallax":            1.0,
		"catalog.min_parallax_over_error": 10.0,
		"catalog.max_ruwe":                1.4,
		"radius.engines":                  "ONe,CO",
		"radius.n_draws":                  500,
		"radius.seed":                     0,
		"rv.max_spread":                   1.0,
		"models.manifest":                 "models.yaml",
		"models.composition":              "ONe",
		"database.type":                   "sqlite",
		"database.dsn":                    "./corecomposition.db",
	}
}

// Load builds the configuration for a command invocation. path names the
// INI file; a missing file at the default location is not an error, so
// the pipeline runs on defaults and flags alone.
func Load(cmd *cobra.Command, path string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if err := mergeINI(v, path); err != nil {
		return c, err
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("corecomp")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}
	// The database flags use short CLI names rather than dotted keys.
	for key, name := range map[string]string{
		"database.type": "db-type",
		"database.dsn":  "db-dsn",
	} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return c, err
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("could not parse configuration: %w", err)
	}
	return c, nil
}

// mergeINI reads the INI file and merges its sections into viper as
// "section.key" entries. Viper dropped native INI support in 1.20, so the
// file is parsed with go-ini and handed over as a config map.
func mergeINI(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not stat config file: %w", err)
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	merged := make(map[string]any)
	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		vals := make(map[string]any, len(section.Keys()))
		for _, key := range section.Keys() {
			vals[key.Name()] = key.Value()
		}
		merged[section.Name()] = vals
	}
	return v.MergeConfigMap(merged)
}
