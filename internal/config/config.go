// Public domain.

// Package config is the per-program settings store.
//
// Each program keeps its settings as a flat JSON object in
// $HOME/.config/<app>/<app>.conf.  Defaults fill keys absent from the file,
// command line flags that were explicitly given override stored values for
// the current run, and Save writes the effective values back.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/saft-obs/saftlog/internal/errs"
)

// Store holds the settings of one program.
type Store struct {
	app    string
	path   string
	exists bool
	values map[string]any
}

// Open loads the store for app from the user's home directory, creating
// the config directory if needed.  A missing file is not an error.
func Open(app string) (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errs.Config("config.Open", app, err)
	}
	return OpenDir(filepath.Join(home, ".config"), app)
}

// OpenDir is Open with an explicit base directory in place of
// $HOME/.config.
func OpenDir(base, app string) (*Store, error) {
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.IO("config.Open", dir, err)
	}
	s := &Store{
		app:    app,
		path:   filepath.Join(dir, app+".conf"),
		values: map[string]any{},
	}
	b, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, errs.IO("config.Open", s.path, err)
	}
	if err := json.Unmarshal(b, &s.values); err != nil {
		return nil, errs.Config("config.Open", s.path, err)
	}
	s.exists = true
	return s, nil
}

// Path is the location of the settings file.
func (s *Store) Path() string { return s.path }

// Exists reports whether the settings file was present when opened.
func (s *Store) Exists() bool { return s.exists }

// SetDefaults stores each default whose key is not already set.
func (s *Store) SetDefaults(defaults map[string]any) {
	for k, v := range defaults {
		if _, ok := s.values[k]; !ok {
			s.values[k] = v
		}
	}
}

// Set stores a value.
func (s *Store) Set(key string, v any) { s.values[key] = v }

// ApplyFlags copies the value of every flag that was explicitly set on fs
// into the store under the key keys maps it to.  Flags absent from keys are
// ignored.
func (s *Store) ApplyFlags(fs *flag.FlagSet, keys map[string]string) {
	fs.Visit(func(f *flag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			return
		}
		if g, ok := f.Value.(flag.Getter); ok {
			s.values[key] = g.Get()
		} else {
			s.values[key] = f.Value.String()
		}
	})
}

// String returns a required string setting.
func (s *Store) String(key string) (string, error) {
	v, err := s.required(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", s.typeErr(key, v, "string")
	}
	return str, nil
}

// OptString returns a string setting, or "" if it is absent or null.
func (s *Store) OptString(key string) string {
	str, _ := s.values[key].(string)
	return str
}

// Float returns a required numeric setting.
func (s *Store) Float(key string) (float64, error) {
	v, err := s.required(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case time.Duration:
		return n.Seconds(), nil
	}
	return 0, s.typeErr(key, v, "number")
}

// Int returns a required integer setting.
func (s *Store) Int(key string) (int, error) {
	f, err := s.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, s.typeErr(key, f, "integer")
	}
	return int(f), nil
}

// Seconds returns a required numeric setting, in seconds, as a Duration.
func (s *Store) Seconds(key string) (time.Duration, error) {
	f, err := s.Float(key)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, s.typeErr(key, f, "non-negative number")
	}
	return time.Duration(f * float64(time.Second)), nil
}

// Save writes all settings as indented JSON.  Keys beginning with an
// underscore are not written.
func (s *Store) Save() error {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		if d, ok := v.(time.Duration); ok {
			v = d.Seconds()
		}
		out[k] = v
	}
	b, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return errs.Config("config.Save", s.path, err)
	}
	if err := os.WriteFile(s.path, append(b, '\n'), 0o644); err != nil {
		return errs.IO("config.Save", s.path, err)
	}
	s.exists = true
	return nil
}

func (s *Store) required(key string) (any, error) {
	v, ok := s.values[key]
	if !ok || v == nil {
		return nil, errs.Config(s.app, key,
			fmt.Errorf("%s not specified and no default set", key))
	}
	return v, nil
}

func (s *Store) typeErr(key string, v any, want string) error {
	return errs.Config(s.app, key, fmt.Errorf("value %v is not a %s", v, want))
}
