package pluginsdk

var nextPtr uint32 = 8

// ResetAllocator resets the allocator to the initial memory offset. Guests
// call it at the start of every export that allocates.
func ResetAllocator() {
	nextPtr = 8
}

// Alloc allocates n bytes with 8-byte alignment and returns the starting pointer.
func Alloc(n uint32) uint32 {
	ptr := nextPtr
	padding := (8 - n%8) % 8
	nextPtr += n + padding

	return ptr
}
