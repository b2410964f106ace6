// Package minecraft is a built-in plugin that runs a Minecraft server as a
// child process and relays console commands to it.
package minecraft

import (
	"context"
	"path/filepath"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// ID is the module id of the plugin.
const ID = "minecraft"

// Settings is persisted as Settings.yaml in the plugin data directory.
type Settings struct {
	// ServerDirectory holds the server; relative paths are resolved
	// against the plugin data directory.
	ServerDirectory string `yaml:"server_directory"`
	// ExeName is the start script inside ServerDirectory.
	ExeName string `yaml:"exe_name"`
}

// Plugin manages one Minecraft server.
type Plugin struct {
	settings *Settings
	server   *Server
}

// New returns an unconfigured plugin.
func New() plugin.Plugin {
	return &Plugin{server: &Server{}}
}

func init() {
	plugin.Register(ID, New)
}

// Info implements plugin.Plugin.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "Minecraft",
		Description: "A plugin for managing your Minecraft server.",
		Author:      "go_cmdhost",
		Version:     "1.0.0",
	}
}

// DefaultSettings implements plugin.SettingsProvider.
func (p *Plugin) DefaultSettings() any {
	p.settings = &Settings{
		ServerDirectory: "server",
		ExeName:         "start.sh",
	}
	return p.settings
}

// Register implements plugin.Plugin.
func (p *Plugin) Register(r plugin.Registrar) error {
	s := p.server
	r.Category(plugin.CategorySpec{
		Name:        "mc",
		Description: "Moderating Minecraft servers.",
		Auth:        "Administrator",
		Instance:    s,
	}).
		Command(plugin.CommandSpec{Name: "start", Description: "Starts the Minecraft server."}, s.start).
		Command(plugin.CommandSpec{
			Name:        "exec",
			Description: "Executes a command on the server.",
			Params: []plugin.ParamSpec{{
				Name:        "command",
				Type:        plugin.Rest,
				Description: "Command to execute on the server.",
			}},
		}, s.execute).
		Command(plugin.CommandSpec{Name: "stop", Description: "Stops the Minecraft server."}, s.stop).
		Command(plugin.CommandSpec{Name: "status", Description: "Shows whether the server is running."}, s.status)
	return nil
}

// Initialize implements plugin.Plugin.
func (p *Plugin) Initialize(_ context.Context, env *plugin.Env) error {
	if p.settings == nil {
		p.DefaultSettings()
	}
	dir := p.settings.ServerDirectory
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(env.DataDir, dir)
	}
	p.server.configure(dir, p.settings.ExeName, env)
	return nil
}

// Dispose implements plugin.Plugin. The server process is stopped through
// the category instance.
func (p *Plugin) Dispose() error { return nil }
