package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktgraph/internal/core"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"7", []string{"7"}},
		{"label, 32", []string{"label", "32"}},
		{`"1.2.3.4 5.6.7.8"`, []string{"1.2.3.4 5.6.7.8"}},
		{`"a, b", 3`, []string{"a, b", "3"}},
		{"a,,b", []string{"a", "", "b"}},
		{`"say \"hi\"", 8`, []string{`say "hi"`, "8"}},
		{`"c:\\tmp, x"`, []string{`c:\tmp, x`}},
		{`c:\tmp`, []string{`c:\tmp`}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitArgs(tt.in), tt.in)
	}
}

func TestJoinArgsRoundTrip(t *testing.T) {
	for _, args := range [][]string{
		{"7"},
		{"label", "32"},
		{"1.2.3.4 5.6.7.8"},
		{"a, b", "3"},
		{"a", "", "b"},
		{" padded "},
		{""},
		{`say "hi"`, "8"},
		{`"quoted"`},
		{`back\slash, comma`},
		{`trailing\`, `"`},
		{`\"`},
	} {
		joined := JoinArgs(args)
		assert.Equal(t, args, SplitArgs(joined), joined)
	}
	assert.Equal(t, "label, 32", JoinArgs([]string{"label", "32"}))
	assert.Equal(t, "", JoinArgs(nil))
	assert.Equal(t, `"say \"hi\""`, JoinArgs([]string{`say "hi"`}))
}

func TestArgumentsPrefersArgs(t *testing.T) {
	e := ElementConfig{Args: []string{"x"}, Config: "y, z"}
	assert.Equal(t, []string{"x"}, e.Arguments())

	e = ElementConfig{Args: []string{}, Config: "y"}
	assert.Empty(t, e.Arguments())
}

func TestParseGraphAutoYAML(t *testing.T) {
	g, err := ParseGraphAuto([]byte(`
elements:
  - name: print
    class: Print
    args: [ok, 16]
  - name: sink
    class: Discard
connections:
  - from: print
    to: sink
`), "g.yml")
	require.NoError(t, err)

	assert.Equal(t, "print", g.Entry)
	assert.Equal(t, []string{"ok", "16"}, g.Elements[0].Args)
}

func TestParseGraphAutoJSON(t *testing.T) {
	g, err := ParseGraphAuto([]byte(`{
  "entry": "chk",
  "elements": [
    {"name": "chk", "class": "CheckIPHeader", "args": ["10.0.0.1 10.0.0.2"]},
    {"name": "bad", "class": "Discard"}
  ],
  "connections": [{"from": "chk", "port": 1, "to": "bad"}]
}`), "g.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1 10.0.0.2"}, g.Elements[0].Arguments())
	assert.Equal(t, 1, g.Connections[0].Port)
}

func TestParseGraphAutoRejectsUnknownKeys(t *testing.T) {
	_, err := ParseGraphAuto([]byte("elements: [{name: a, class: Discard, colour: 3}]"), "g.yaml")
	assert.Error(t, err)
}

func TestParseGraphAutoRejectsExtension(t *testing.T) {
	_, err := ParseGraphAuto([]byte("{}"), "g.toml")
	assert.Error(t, err)
}

func TestGraphValidate(t *testing.T) {
	two := func() []ElementConfig {
		return []ElementConfig{{Name: "a", Class: "Paint"}, {Name: "b", Class: "Discard"}}
	}
	tests := []struct {
		name string
		g    GraphConfig
		want error
	}{
		{"empty", GraphConfig{}, core.ErrConfigInvalid},
		{"no name", GraphConfig{Elements: []ElementConfig{{Class: "Paint"}}}, core.ErrConfigInvalid},
		{"no class", GraphConfig{Elements: []ElementConfig{{Name: "a"}}}, core.ErrConfigInvalid},
		{"duplicate", GraphConfig{Elements: []ElementConfig{{Name: "a", Class: "Paint"}, {Name: "a", Class: "Paint"}}}, core.ErrDuplicateElement},
		{"bad entry", GraphConfig{Entry: "x", Elements: two()}, core.ErrUnknownElement},
		{"bad from", GraphConfig{Elements: two(), Connections: []ConnectionConfig{{From: "x", To: "b"}}}, core.ErrUnknownElement},
		{"bad to", GraphConfig{Elements: two(), Connections: []ConnectionConfig{{From: "a", To: "x"}}}, core.ErrUnknownElement},
		{"negative port", GraphConfig{Elements: two(), Connections: []ConnectionConfig{{From: "a", Port: -1, To: "b"}}}, core.ErrPortOutOfRange},
		{"port twice", GraphConfig{Elements: two(), Connections: []ConnectionConfig{{From: "a", To: "b"}, {From: "a", To: "b"}}}, core.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}
