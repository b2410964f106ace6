package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginCommandTree(t *testing.T) {
	cmd := NewPluginCommand()
	assert.Contains(t, cmd.Aliases, "plugins")

	for _, name := range []string{"create", "list"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}
