package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/pktgraph/internal/config"
)

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "validate", "classes", "handlers", "read", "write", "stats"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("socket"))
	assert.NotNil(t, validateCmd.Flags().Lookup("file"))
}

func TestArgValidation(t *testing.T) {
	assert.Error(t, readCmd.Args(readCmd, nil))
	assert.NoError(t, readCmd.Args(readCmd, []string{"chk.drops"}))
	assert.Error(t, writeCmd.Args(writeCmd, nil))
	assert.NoError(t, writeCmd.Args(writeCmd, []string{"chk.config"}))
}

func TestEntryName(t *testing.T) {
	cfg := &config.GraphConfig{Elements: []config.ElementConfig{{Name: "a"}, {Name: "b"}}}
	assert.Equal(t, "a", entryName(cfg))
	cfg.Entry = "b"
	assert.Equal(t, "b", entryName(cfg))
}
