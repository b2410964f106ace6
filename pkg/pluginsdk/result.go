package pluginsdk

import "encoding/json"

// PackResult combines a pointer and a length into a single uint64 result.
func PackResult(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackResult splits a packed result into pointer and length.
func UnpackResult(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

// Write copies data into freshly allocated guest memory and returns the
// packed result.
func Write(data []byte) uint64 {
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return PackResult(ptr, uint32(len(data)))
}

// WriteJSON encodes v and writes it like Write.
func WriteJSON(v any) uint64 {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(Response{Error: err.Error()})
	}
	return Write(data)
}

// WriteError writes a Response carrying msg.
func WriteError(msg string) uint64 {
	return WriteJSON(Response{Error: msg})
}

// DecodeRequest reads a Request from guest memory.
func DecodeRequest(ptr, length uint32) (Request, error) {
	var req Request
	err := json.Unmarshal(ReadBytes(ptr, length), &req)
	return req, err
}
