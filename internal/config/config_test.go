package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "1")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(7839284712), c.ProtectedID)
	assert.Equal(t, "https://api.telegram.org", c.APIURL)
	assert.Equal(t, "info", c.LogLevel)

	partners := c.Partners()
	assert.Equal(t, "AtlantaVPN", partners[0].Name)
	assert.Equal(t, "Nursultan VPN", partners[1].Name)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}
