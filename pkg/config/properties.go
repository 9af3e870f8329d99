package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Properties is a flat set of dotted keys (e.g. "path.maxdepth") to string values
type Properties struct {
	values map[string]string
}

// NewProperties creates an empty property set
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set assigns a value, formatting non-string values with fmt
func (p *Properties) Set(key string, value interface{}) *Properties {
	p.values[strings.ToLower(key)] = fmt.Sprint(value)
	return p
}

// Has reports whether key is defined
func (p *Properties) Has(key string) bool {
	_, ok := p.values[strings.ToLower(key)]
	return ok
}

// Keys returns all defined keys in sorted order
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies every value of other into p, overriding existing keys
func (p *Properties) Merge(other *Properties) *Properties {
	for k, v := range other.values {
		p.values[k] = v
	}
	return p
}

// GetString returns the value for key or def when the key is missing
func (p *Properties) GetString(key, def string) string {
	if v, ok := p.values[strings.ToLower(key)]; ok {
		return v
	}
	return def
}

// GetInt returns the integer value for key or def when missing
func (p *Properties) GetInt(key string, def int) (int, error) {
	v, ok := p.values[strings.ToLower(key)]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v)
	}
	return i, nil
}

// GetFloat returns the float value for key or def when missing
func (p *Properties) GetFloat(key string, def float64) (float64, error) {
	v, ok := p.values[strings.ToLower(key)]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, key, v)
	}
	return f, nil
}

// GetBool returns the boolean value for key or def when missing
func (p *Properties) GetBool(key string, def bool) (bool, error) {
	v, ok := p.values[strings.ToLower(key)]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, v)
	}
	return b, nil
}

// ParseOverrides parses "key=value" pairs as given on the command line
func ParseOverrides(pairs []string) (*Properties, error) {
	props := NewProperties()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: malformed property %q, expected key=value", ErrInvalidValue, pair)
		}
		props.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return props, nil
}

// LoadYAML reads a YAML document. Nested maps are flattened into dotted keys:
//
//	path:
//	  maxdepth: 8
//
// becomes "path.maxdepth" = "8".
func LoadYAML(r io.Reader) (*Properties, error) {
	var doc map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return NewProperties(), nil
		}
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	props := NewProperties()
	flatten(props, "", doc)
	return props, nil
}

// LoadFile reads a YAML property file from disk
func LoadFile(path string) (*Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	props, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return props, nil
}

func flatten(props *Properties, prefix string, node interface{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(props, joinKey(prefix, k), child)
		}
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		props.Set(prefix, strings.Join(parts, " "))
	case nil:
		props.Set(prefix, "")
	default:
		props.Set(prefix, v)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
