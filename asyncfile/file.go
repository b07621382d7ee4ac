// Package asyncfile reads and writes whole files through a shared completion queue.
// Calls return right away and results come back through callbacks, which run on the
// engine's worker threads (or on the caller's goroutine when the operation could not
// be started at all).
package asyncfile

import (
	c "moooio/internal"
	"moooio/internal/iomgr"
	"moooio/internal/system"

	"fmt"
	"log/slog"
)

type (
	Engine		= iomgr.Engine
	Config		= iomgr.Config
	OpError		= iomgr.OpError
	ReadFunc	= iomgr.ReadFunc
	WriteFunc	= iomgr.WriteFunc
)

var (
	ErrClosed			= iomgr.ErrClosed
	ErrInvalidChunk		= iomgr.ErrInvalidChunk
	ErrCompletedSync	= iomgr.ErrCompletedSync
)

func NewEngine(cfg Config) *Engine	{ return iomgr.NewEngine(cfg) }
func DefaultConfig() Config			{ return iomgr.DefaultConfig() }

// File owns its descriptor from Create/Open until Close.
type File struct {
	log		*slog.Logger
	eng		*Engine
	path	string
	fd		int
	align	int
	direct	bool
}

// Create makes a new file at path. It fails if path already exists.
func Create(eng *Engine, path string) (*File, error) {
	return open(eng, path, system.CreateNew)
}

// Open opens the existing file at path. It fails if path does not exist.
func Open(eng *Engine, path string) (*File, error) {
	return open(eng, path, system.OpenExisting)
}

func open(eng *Engine, path string, disp system.Disposition) (*File, error) {
	cfg := eng.Config()

	h, err := system.OpenAsync(path, disp, cfg.Direct)
	if err != nil { return nil, err }

	if err := eng.Associate(h.Fd); err != nil {
		system.CloseHandle(h.Fd)
		return nil, fmt.Errorf("asyncfile: %s %s: %w", disp, path, err)
	}

	align := cfg.Align
	if align == 0 { align = system.BlockSize(h.Fd) }
	if !c.IsPow2(align) {
		system.CloseHandle(h.Fd)
		return nil, fmt.Errorf("asyncfile: %s %s: %w", disp, path, system.ErrBadAlign)
	}

	return &File{
		log: 	slog.With("src", "File", "path", path),
		eng: 	eng,
		path: 	path,
		fd: 	h.Fd,
		align: 	align,
		direct: h.Direct,
	}, nil
}

func (f *File) Path() string	{ return f.path }
func (f *File) Direct() bool	{ return f.direct }

// AlignUnit is the storage granularity every request against this file is rounded to.
func (f *File) AlignUnit() int	{ return f.align }

// WriteAll replaces the file contents with buf. The payload goes out padded to the
// alignment unit and the file is cut back to len(buf) once the write lands.
// buf is copied, the caller may reuse it as soon as WriteAll returns.
func (f *File) WriteAll(buf []byte, cb WriteFunc) {
	if len(buf) == 0 {
		// nothing to send, just make the file empty
		if err := system.Truncate(f.fd, 0); err != nil {
			cb(iomgr.NewOpError(iomgr.OpWrite, err))
			return
		}
		cb(nil)
		return
	}

	padded, err := system.AllocAligned(c.RoundUp(len(buf), f.align), f.align)
	if err != nil {
		cb(iomgr.NewOpError(iomgr.OpWrite, err))
		return
	}
	copy(padded, buf)
	f.eng.Write(f.fd, padded, len(buf), cb)
}

// ReadAll reads the whole file one alignment unit at a time.
func (f *File) ReadAll(cb ReadFunc) {
	f.ReadAllSize(f.align, cb)
}

// ReadAllSize reads the whole file in chunks of approximateSize rounded up to the
// alignment unit. Pick something close to the expected file size to save round trips.
func (f *File) ReadAllSize(approximateSize int, cb ReadFunc) {
	if approximateSize <= 0 {
		cb(nil, iomgr.NewOpError(iomgr.OpRead, ErrInvalidChunk))
		return
	}
	f.eng.Read(f.fd, c.RoundUp(approximateSize, f.align), f.align, cb)
}

// ChunkSize is the per-request size ReadAllSize would use for approximateSize.
func (f *File) ChunkSize(approximateSize int) int {
	return c.RoundUp(approximateSize, f.align)
}

// Close releases the descriptor. Operations still in flight against this file are
// the caller's problem. A descriptor that won't close is not something we can
// recover from, so that panics.
func (f *File) Close() {
	if f.fd < 0 { return }
	if err := system.CloseHandle(f.fd); err != nil {
		f.log.Error("Close", "err", err)
		panic(fmt.Sprintf("asyncfile: cannot close %s: %v", f.path, err))
	}
	f.fd = -1
}
