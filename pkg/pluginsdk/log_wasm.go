//go:build tinygo.wasm || wasip1

package pluginsdk

//go:wasmimport env log_debug
func logDebug(ptr, length uint32)

//go:wasmimport env log_info
func logInfo(ptr, length uint32)

//go:wasmimport env log_error
func logError(ptr, length uint32)

func hostLog(fn func(ptr, length uint32), msg string) {
	if msg == "" {
		return
	}
	data := []byte(msg)
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)
	fn(ptr, uint32(len(data)))
}

// LogDebug logs a debug message through the host.
func LogDebug(msg string) { hostLog(logDebug, msg) }

// LogInfo logs an info message through the host.
func LogInfo(msg string) { hostLog(logInfo, msg) }

// LogError logs an error message through the host.
func LogError(msg string) { hostLog(logError, msg) }
