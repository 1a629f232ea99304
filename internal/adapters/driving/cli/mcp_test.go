package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"mcp", "serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", cmd.Name())

	port := cmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "0", port.DefValue)
	assert.Equal(t, "p", port.Shorthand)
}

func TestMCPServeCmd_NotConfigured(t *testing.T) {
	_, err := execute(t, &Services{}, "mcp", "serve")

	require.ErrorIs(t, err, errNotConfigured)
	assert.Contains(t, err.Error(), "item")
}
