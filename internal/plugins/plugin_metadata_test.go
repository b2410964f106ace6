package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

func TestShortVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "1.0", want: "1"},
		{in: "1.0.0", want: "1"},
		{in: "1.2.0", want: "1.2"},
		{in: "1.2.3", want: "1.2.3"},
		{in: "0.0.1", want: "0.0.1"},
		{in: "0.0.0", want: "0"},
		{in: "2.0.0-beta.1", want: "2-beta.1"},
		{in: "not a version", want: "not a version"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortVersion(tt.in))
		})
	}
}

func TestBanner(t *testing.T) {
	tests := []struct {
		name string
		info plugin.Info
		want string
	}{
		{
			name: "full",
			info: plugin.Info{Name: "Minecraft", Version: "1.0.0", Description: "Runs a server.", Author: "ops"},
			want: "[Minecraft v1] Runs a server. by ops",
		},
		{
			name: "name and version",
			info: plugin.Info{Name: "Dice", Version: "0.3.0"},
			want: "[Dice v0.3]",
		},
		{
			name: "no description",
			info: plugin.Info{Name: "Dice", Version: "1.1", Author: "me"},
			want: "[Dice v1.1] by me",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Banner(tt.info))
		})
	}
}

func TestNormalizeInfo(t *testing.T) {
	info, err := normalizeInfo(plugin.Info{Name: " Multi\nLine\r ", Author: " me "})
	require.NoError(t, err)
	assert.Equal(t, "MultiLine", info.Name)
	assert.Equal(t, "me", info.Author)
	assert.Equal(t, plugin.DefaultVersion, info.Version)

	_, err = normalizeInfo(plugin.Info{Name: "\n"})
	assert.ErrorIs(t, err, ErrMissingMetadata)

	_, err = normalizeInfo(plugin.Info{Name: "x", Version: "v.bad"})
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
