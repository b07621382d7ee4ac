//go:build linux

package system

import (
	c "moooio/internal"

	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

const F_OPEN_MODE	= unix.O_RDWR | unix.O_CLOEXEC
const F_OPEN_PERM	= 0b_000_110_100_000

// OpenAsync opens path for unbuffered read/write access. O_DIRECT is attempted when
// direct is set. Filesystems that reject it (tmpfs and friends answer EINVAL) get a
// buffered descriptor instead and Handle.Direct reports false.
//
// CreateNew makes the file exclusively first and only then reopens it with O_DIRECT,
// so a rejected O_DIRECT never leaves us with a created file we can't open.
func OpenAsync(path string, disp Disposition, direct bool) (Handle, error) {
	switch disp {
	case CreateNew:
		fd, err := unix.Open(path, F_OPEN_MODE | unix.O_CREAT | unix.O_EXCL, F_OPEN_PERM)
		if err != nil { return Handle{Fd: -1}, &os.PathError{Op: disp.String(), Path: path, Err: err} }
		if !direct { return Handle{Fd: fd}, nil }

		dfd, err := openDirect(path)
		if err != nil {
			// fd is still good, just buffered
			return Handle{Fd: fd}, nil
		}
		unix.Close(fd)
		return Handle{Fd: dfd, Direct: true}, nil

	case OpenExisting:
		if direct {
			fd, err := openDirect(path)
			if err == nil { return Handle{Fd: fd, Direct: true}, nil }
			if !errors.Is(err, unix.EINVAL) {
				return Handle{Fd: -1}, &os.PathError{Op: disp.String(), Path: path, Err: err}
			}
		}
		fd, err := unix.Open(path, F_OPEN_MODE, 0)
		if err != nil { return Handle{Fd: -1}, &os.PathError{Op: disp.String(), Path: path, Err: err} }
		return Handle{Fd: fd}, nil
	}

	return Handle{Fd: -1}, &os.PathError{Op: disp.String(), Path: path, Err: unix.EINVAL}
}

func openDirect(path string) (int, error) {
	fd, err := unix.Open(path, F_OPEN_MODE | unix.O_DIRECT, 0)
	if errors.Is(err, unix.EINVAL) {
		slog.Warn("O_DIRECT not supported, falling back to buffered io", "path", path)
	}
	return fd, err
}

func CloseHandle(fd int) error {
	return unix.Close(fd)
}

// SeekEnd moves the file pointer delta bytes relative to the end of file and
// returns the new absolute position.
func SeekEnd(fd int, delta int64) (int64, error) {
	return unix.Seek(fd, delta, io.SeekEnd)
}

// Truncate sets the end of file at size.
func Truncate(fd int, size int64) error {
	return unix.Ftruncate(fd, size)
}

// Logical processors we are allowed to run on
func NumCPU() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 { return n }
	}
	return runtime.NumCPU()
}

// BlockSize is the preferred io unit of the volume holding fd. Anything that doesn't
// look like a usable O_DIRECT alignment returns DEFAULT_ALIGN.
func BlockSize(fd int) int {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil { return c.DEFAULT_ALIGN }
	bs := int(st.Blksize)
	if bs < c.MIN_ALIGN || !c.IsPow2(bs) { return c.DEFAULT_ALIGN }
	return bs
}

// Valid reports whether fd refers to an open descriptor.
func Valid(fd int) bool {
	if fd < 0 { return false }
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}
