// Package lua loads plugins written as Lua scripts. A script declares its
// metadata with host.plugin, its categories with host.category and its
// commands with host.command; optional global initialize and dispose
// functions are called at the matching lifecycle points.
package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// newState creates a Lua state with only the safe standard libraries.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// no io, os, debug or package: scripts only reach the host through the host table.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// doWithRecovery executes a function with panic recovery.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
