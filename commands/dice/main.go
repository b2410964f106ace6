//go:build tinygo.wasm || wasip1

// Command dice is a sample WASM plugin. Build it with
//
//	tinygo build -o Plugins/dice.wasm -target=wasi ./commands/dice
package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
	"github.com/andrei-cloud/go_cmdhost/pkg/pluginsdk"
)

var manifest = pluginsdk.Manifest{
	Plugin: plugin.Info{
		Name:        "Dice",
		Version:     "1.0.0",
		Author:      "go_cmdhost",
		Description: "Rolls dice for chat users.",
	},
	Settings: map[string]any{"default_sides": 6},
	Categories: []pluginsdk.CategoryManifest{{
		Name:        "dice",
		Description: "Dice rolls",
		Commands: []pluginsdk.CommandManifest{
			{
				Name:        "roll",
				Description: "Roll one die",
				Params: []plugin.ParamSpec{
					{Name: "sides", Type: plugin.Int, Optional: true},
				},
			},
			{
				Name:        "many",
				Description: "Roll several dice",
				Params: []plugin.ParamSpec{
					{Name: "count", Type: plugin.Int},
					{Name: "sides", Type: plugin.Int, Optional: true},
				},
			},
		},
	}},
}

//export Alloc
func Alloc(size uint32) uint32 {
	return pluginsdk.Alloc(size)
}

//export Manifest
func Manifest() uint64 {
	pluginsdk.ResetAllocator()
	return pluginsdk.WriteJSON(manifest)
}

//export Initialize
func Initialize(_, _ uint32) uint64 {
	pluginsdk.ResetAllocator()
	pluginsdk.LogInfo("dice ready")
	return pluginsdk.WriteJSON(pluginsdk.Response{})
}

//export Execute
func Execute(ptr, length uint32) uint64 {
	req, err := pluginsdk.DecodeRequest(ptr, length)
	pluginsdk.ResetAllocator()
	if err != nil {
		return pluginsdk.WriteError(err.Error())
	}

	sides := intSetting(req.Settings, "default_sides", 6)
	switch req.Command {
	case "roll":
		if n, ok := intArg(req.Args, 0); ok {
			sides = n
		}
		if sides < 1 {
			return pluginsdk.WriteError("sides must be positive")
		}
		return reply(fmt.Sprintf("rolled %d", roll(sides)))
	case "many":
		count, _ := intArg(req.Args, 0)
		if n, ok := intArg(req.Args, 1); ok {
			sides = n
		}
		if count < 1 || count > 100 || sides < 1 {
			return pluginsdk.WriteError("bad dice")
		}
		rolls := make([]string, count)
		for i := range rolls {
			rolls[i] = fmt.Sprint(roll(sides))
		}
		return reply("rolled " + strings.Join(rolls, " "))
	default:
		return pluginsdk.WriteError("unknown command " + req.Command)
	}
}

func roll(sides int) int {
	return rand.Intn(sides) + 1 //nolint:gosec // not used for security.
}

func reply(text string) uint64 {
	return pluginsdk.WriteJSON(pluginsdk.Response{Replies: []string{text}})
}

// JSON numbers decode as float64.
func intArg(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	f, ok := args[i].(float64)
	return int(f), ok
}

func intSetting(settings map[string]any, key string, def int) int {
	if f, ok := settings[key].(float64); ok {
		return int(f)
	}
	return def
}

func main() {}
