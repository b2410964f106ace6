package pluginsdk

import "unsafe"

// ReadBytes returns a view of length bytes of linear memory at ptr. The view
// aliases guest memory and stays valid until ResetAllocator hands the region
// out again.
//
//nolint:gosec // linear memory addresses fit in uintptr.
func ReadBytes(ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

// WriteBytes copies data into linear memory at ptr and returns the number of
// bytes written.
func WriteBytes(ptr uint32, data []byte) int {
	if len(data) == 0 {
		return 0
	}
	return copy(ReadBytes(ptr, uint32(len(data))), data)
}
