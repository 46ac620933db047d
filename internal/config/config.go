// Package config reads optional run settings from msgload.yaml and
// MSGLOAD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/msgload/pkg/msgload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// FileName is the config file looked up in the working directory.
const FileName = "msgload.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MSGLOAD_"

// Settings are the optional run settings. Empty values mean "not set".
type Settings struct {
	Table            string `yaml:"table"`
	IDColumn         string `yaml:"id_column"`
	CategoriesColumn string `yaml:"categories_column"`
	Delimiter        string `yaml:"delimiter"`
	OnSchemaMismatch string `yaml:"on_schema_mismatch"`
	Timeout          string `yaml:"timeout"`
	MetricsFile      string `yaml:"metrics_file"`
}

// Load reads settings from the yaml file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", path, msgload.ErrInvalidConfig, err)
	}
	return &s, nil
}

// FromEnv collects MSGLOAD_* overrides through lookup, normally os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) Settings {
	get := func(key string) string {
		v, _ := lookup(EnvPrefix + key)
		return v
	}
	return Settings{
		Table:            get("TABLE"),
		IDColumn:         get("ID_COLUMN"),
		CategoriesColumn: get("CATEGORIES_COLUMN"),
		Delimiter:        get("DELIMITER"),
		OnSchemaMismatch: get("ON_SCHEMA_MISMATCH"),
		Timeout:          get("TIMEOUT"),
		MetricsFile:      get("METRICS_FILE"),
	}
}

// Merge returns s with every value set in over replacing the one in s.
func (s Settings) Merge(over Settings) Settings {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}
	return Settings{
		Table:            pick(s.Table, over.Table),
		IDColumn:         pick(s.IDColumn, over.IDColumn),
		CategoriesColumn: pick(s.CategoriesColumn, over.CategoriesColumn),
		Delimiter:        pick(s.Delimiter, over.Delimiter),
		OnSchemaMismatch: pick(s.OnSchemaMismatch, over.OnSchemaMismatch),
		Timeout:          pick(s.Timeout, over.Timeout),
		MetricsFile:      pick(s.MetricsFile, over.MetricsFile),
	}
}

// Apply copies every set value into cfg. All parse failures are reported
// together.
func (s Settings) Apply(cfg *msgload.RunConfig) error {
	var errs []error

	if s.Table != "" {
		cfg.TableName = s.Table
	}
	if s.IDColumn != "" {
		cfg.IDColumn = s.IDColumn
	}
	if s.CategoriesColumn != "" {
		cfg.CategoriesColumn = s.CategoriesColumn
	}
	if s.MetricsFile != "" {
		cfg.MetricsFile = s.MetricsFile
	}
	if s.Delimiter != "" {
		d, err := ParseDelimiter(s.Delimiter)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Delimiter = d
		}
	}
	if s.OnSchemaMismatch != "" {
		p, err := msgload.ParseSchemaPolicy(s.OnSchemaMismatch)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.SchemaPolicy = p
		}
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid timeout %q: %w", s.Timeout, msgload.ErrInvalidConfig))
		} else {
			cfg.Timeout = d
		}
	}

	return errors.Join(errs...)
}

// ParseDelimiter accepts a single character, `\t` or the word "tab".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character: %w", s, msgload.ErrInvalidConfig)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
