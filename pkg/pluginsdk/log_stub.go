//go:build !(tinygo.wasm || wasip1)

package pluginsdk

// LogDebug is a no-op outside WASM.
func LogDebug(string) {}

// LogInfo is a no-op outside WASM.
func LogInfo(string) {}

// LogError is a no-op outside WASM.
func LogError(string) {}
