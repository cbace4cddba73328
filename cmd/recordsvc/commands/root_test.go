package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendsCommandListsBothRecordTypes(t *testing.T) {
	var out bytes.Buffer
	backendsCmd.SetOut(&out)
	t.Cleanup(func() { backendsCmd.SetOut(nil) })

	require.NoError(t, backendsCmd.RunE(backendsCmd, nil))
	assert.Equal(t,
		"items: memory, postgres, sqlite\ntickets: dynamodb, memory, postgres, redis, sqlite\n",
		out.String())
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "init", "backends"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestLoadRuntimeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("RECORD_TYPE", "widgets")
	t.Setenv("DB_TYPE", "memory")

	_, _, err := loadRuntime()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORD_TYPE")
}
