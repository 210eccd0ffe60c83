package confloader

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "VALTOK_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	knownKeys map[string]fieldKey // env form -> koanf key
	loaded    bool
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables environment loading.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		knownKeys: make(map[string]fieldKey),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file and the environment and unmarshals into target, which
// should be a pointer to a struct pre-filled with defaults. Keys absent from
// every source keep their default.
func (l *Loader) Load(target any) error {
	l.addKnownKeys(structFields(target))

	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.loaded = true
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads environment variables carrying the prefix.
// Example: VALTOK_SERVER_HTTP_ADDR=0.0.0.0:8080 sets server.http.addr.
func (l *Loader) LoadEnv() error {
	if l.envPrefix == "" {
		return nil
	}
	if err := l.k.Load(env.ProviderWithValue(l.envPrefix, ".", l.envValue), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// envValue maps VALTOK_SECTION_SOME_KEY to a koanf key. Known keys win;
// anything else splits on every underscore. Values of list keys are
// comma separated.
func (l *Loader) envValue(name, value string) (string, any) {
	name = strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
	f, ok := l.knownKeys[name]
	if !ok {
		return strings.ReplaceAll(name, "_", "."), value
	}
	if f.list {
		parts := strings.Split(value, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return f.key, out
	}
	return f.key, value
}

func (l *Loader) addKnownKeys(fields []fieldKey) {
	for _, f := range fields {
		l.knownKeys[strings.ReplaceAll(f.key, ".", "_")] = f
	}
}

// LoadMap loads configuration from a map (flags, tests).
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetBool returns a bool value from the configuration.
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// IsLoaded returns true if Load has succeeded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// StructKeys lists the dotted koanf keys of the struct v points to. Nested
// structs contribute their own keys; every other field is a leaf.
func StructKeys(v any) []string {
	fields := structFields(v)
	if fields == nil {
		return nil
	}
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

type fieldKey struct {
	key  string
	list bool
}

func structFields(v any) []fieldKey {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var fields []fieldKey
	collectKeys(t, "", &fields)
	return fields
}

func collectKeys(t reflect.Type, prefix string, fields *[]fieldKey) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if !f.IsExported() || name == "" || name == "-" {
			continue
		}
		key := prefix + name
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, key+".", fields)
			continue
		}
		*fields = append(*fields, fieldKey{key: key, list: f.Type.Kind() == reflect.Slice})
	}
}
