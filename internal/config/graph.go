package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktgraph/internal/core"
)

// GraphConfig describes the elements of a graph and how their ports connect.
type GraphConfig struct {
	Entry       string             `mapstructure:"entry" json:"entry" yaml:"entry"`
	Elements    []ElementConfig    `mapstructure:"elements" json:"elements" yaml:"elements"`
	Connections []ConnectionConfig `mapstructure:"connections" json:"connections" yaml:"connections"`
}

// ElementConfig declares one element. Args wins over Config when both are set.
type ElementConfig struct {
	Name   string   `mapstructure:"name" json:"name" yaml:"name"`
	Class  string   `mapstructure:"class" json:"class" yaml:"class"`
	Args   []string `mapstructure:"args" json:"args,omitempty" yaml:"args,omitempty"`
	Config string   `mapstructure:"config" json:"config,omitempty" yaml:"config,omitempty"` // "a, b"
}

// ConnectionConfig connects output Port of From to the input of To.
type ConnectionConfig struct {
	From string `mapstructure:"from" json:"from" yaml:"from"`
	Port int    `mapstructure:"port" json:"port" yaml:"port"`
	To   string `mapstructure:"to" json:"to" yaml:"to"`
}

// Arguments returns the element's argument list.
func (e ElementConfig) Arguments() []string {
	if e.Args != nil {
		return e.Args
	}
	return SplitArgs(e.Config)
}

// SplitArgs splits a comma-separated argument string. Surrounding whitespace
// is trimmed and one level of double quotes is removed; commas inside quotes
// do not split. Inside quotes, \" and \\ stand for a quote and a backslash.
func SplitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		escaped bool
	)
	flush := func() {
		arg := strings.TrimSpace(cur.String())
		if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
			arg = unescapeArg(arg[1 : len(arg)-1])
		}
		args = append(args, arg)
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			cur.WriteRune(r)
		case r == '\\' && inQuote:
			escaped = true
			cur.WriteRune(r)
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}

var (
	argEscaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	argUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

func unescapeArg(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	return argUnescaper.Replace(s)
}

// JoinArgs is the inverse of SplitArgs. Arguments that would not survive a
// split are quoted.
func JoinArgs(args []string) string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, `,"`) || strings.TrimSpace(a) != a {
			a = `"` + argEscaper.Replace(a) + `"`
		}
		out[i] = a
	}
	return strings.Join(out, ", ")
}

// Validate checks names and connections. Element classes and arguments are
// checked later, when the graph is built.
func (g *GraphConfig) Validate() error {
	if len(g.Elements) == 0 {
		return fmt.Errorf("graph has no elements: %w", core.ErrConfigInvalid)
	}

	names := make(map[string]struct{}, len(g.Elements))
	for i, e := range g.Elements {
		if e.Name == "" {
			return fmt.Errorf("element[%d]: name is required: %w", i, core.ErrConfigInvalid)
		}
		if e.Class == "" {
			return fmt.Errorf("element %s: class is required: %w", e.Name, core.ErrConfigInvalid)
		}
		if _, dup := names[e.Name]; dup {
			return fmt.Errorf("element %s: %w", e.Name, core.ErrDuplicateElement)
		}
		names[e.Name] = struct{}{}
	}

	if g.Entry == "" {
		g.Entry = g.Elements[0].Name
	}
	if _, ok := names[g.Entry]; !ok {
		return fmt.Errorf("entry %s: %w", g.Entry, core.ErrUnknownElement)
	}

	used := make(map[string]struct{}, len(g.Connections))
	for i, c := range g.Connections {
		if _, ok := names[c.From]; !ok {
			return fmt.Errorf("connection[%d] from %s: %w", i, c.From, core.ErrUnknownElement)
		}
		if _, ok := names[c.To]; !ok {
			return fmt.Errorf("connection[%d] to %s: %w", i, c.To, core.ErrUnknownElement)
		}
		if c.Port < 0 {
			return fmt.Errorf("connection[%d] %s[%d]: %w", i, c.From, c.Port, core.ErrPortOutOfRange)
		}
		key := fmt.Sprintf("%s[%d]", c.From, c.Port)
		if _, dup := used[key]; dup {
			return fmt.Errorf("output %s connected twice: %w", key, core.ErrConfigInvalid)
		}
		used[key] = struct{}{}
	}
	return nil
}

// ParseGraphFile reads a graph description. The format follows the extension:
// .json is JSON, .yaml/.yml is YAML.
func ParseGraphFile(path string) (*GraphConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}
	return ParseGraphAuto(data, path)
}

// ParseGraphAuto decodes data according to the extension of filename.
func ParseGraphAuto(data []byte, filename string) (*GraphConfig, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse graph %s: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse graph %s: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("unsupported graph file extension %q (must be .json, .yaml or .yml)", filepath.Ext(filename))
	}

	var g GraphConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &g,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode graph %s: %w", filename, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}
