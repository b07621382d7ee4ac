// Platform abstracted filesystem ops
package system

import (
	"errors"
	"fmt"
	"unsafe"
)

// Disposition picks between making a new file and opening an existing one.
// Neither one ever truncates.
type Disposition uint8
const (
	CreateNew 	Disposition = iota // fails if the path exists
	OpenExisting 				   // fails if the path does not exist
)

func (d Disposition) String() string {
	switch d {
	case CreateNew:		return "create"
	case OpenExisting:	return "open"
	}
	return fmt.Sprintf("Disposition(%d)", uint8(d))
}

var ErrBadAlign = errors.New("alignment must be a power of two")

// Handle is the raw descriptor plus how it ended up being opened.
// Direct is false when the filesystem refused O_DIRECT and we fell back to buffered.
type Handle struct {
	Fd		int
	Direct	bool
}

// AllocAligned returns a zeroed slice of len size whose first byte sits on an align
// boundary. O_DIRECT needs this for the user memory as well as for offsets.
// The returned cap is rounded up to align too so growing in align-sized steps
// doesn't always reallocate.
func AllocAligned(size int, align int) ([]byte, error) {
	if align <= 0 || align&(align-1) != 0 { return nil, ErrBadAlign }
	capacity := ((size + align - 1) / align) * align
	if capacity == 0 { capacity = align }

	raw := make([]byte, capacity + align)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align - 1)); rem != 0 {
		off = align - rem
	}
	return raw[off : off+size : off+capacity], nil
}

func IsAligned(buf []byte, align int) bool {
	if cap(buf) == 0 { return true }
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf))) & uintptr(align - 1) == 0
}
