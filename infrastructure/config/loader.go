// Package config loads YAML configuration files and layers environment
// variables on top of them.
//
// Resolution order, lowest to highest precedence:
//
//  1. zero values
//  2. the YAML file (a missing file is allowed when AllowMissing is used)
//  3. the defaults function passed to LoadWithDefaults
//  4. variables named by `env:"NAME"` struct tags, including those read from
//     dotenv files (ENV_FILE if set, otherwise .env.local then .env)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Option tweaks a single Load call.
type Option func(*loadOptions)

type loadOptions struct {
	allowMissing bool
	lookup       func(string) (string, bool)
}

// AllowMissing makes an absent YAML file equivalent to an empty one.
func AllowMissing() Option {
	return func(o *loadOptions) { o.allowMissing = true }
}

// WithLookup replaces os.LookupEnv. Tests use it to avoid touching the
// process environment.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.lookup = fn }
}

func dotenv() error {
	if f := os.Getenv("ENV_FILE"); f != "" {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
		return nil
	}
	// godotenv never overwrites variables that are already set, so .env.local
	// must be read first to take precedence over .env.
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load decodes path into a new T and applies env overrides.
func Load[T any](path string, opts ...Option) (*T, error) {
	return LoadWithDefaults[T](path, nil, opts...)
}

// LoadWithDefaults decodes path into a new T, calls setDefaults, then applies
// env overrides so that the environment always wins.
func LoadWithDefaults[T any](path string, setDefaults func(*T), opts ...Option) (*T, error) {
	o := loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	if err := dotenv(); err != nil {
		return nil, fmt.Errorf("environment files: %w", err)
	}

	cfg := new(T)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && o.allowMissing:
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if setDefaults != nil {
		setDefaults(cfg)
	}

	if err = overlayEnv(reflect.ValueOf(cfg).Elem(), o.lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns $CONFIG_PATH or fallback.
func GetConfigPath(fallback string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return fallback
}

var durationType = reflect.TypeOf(time.Duration(0))

func overlayEnv(v reflect.Value, lookup func(string) (string, bool)) error {
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	for i := range t.NumField() {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Kind() == reflect.Struct && f.Type() != durationType:
			if err := overlayEnv(f, lookup); err != nil {
				return err
			}
			continue
		case f.Kind() == reflect.Pointer && f.Type().Elem().Kind() == reflect.Struct:
			if f.IsNil() {
				f.Set(reflect.New(f.Type().Elem()))
			}
			if err := overlayEnv(f.Elem(), lookup); err != nil {
				return err
			}
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookup(name)
		if !ok || raw == "" {
			continue
		}
		if err := assign(f, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

func assign(f reflect.Value, raw string) error {
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		f.SetBool(ParseBool(raw))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			f.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		f.SetFloat(n)
	case reflect.Slice:
		if f.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", f.Type())
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		f.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported kind %s", f.Kind())
	}
	return nil
}

// ParseBool accepts true/1/yes/on in any case.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
