package iomgr

import (
	c "moooio/internal"
	"moooio/internal/system"

	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

type Config struct {
	// Completion queue depth, also the number of requests we keep in flight at once.
	// Anything above that waits in the registry backlog.
	RingEntries	uint32
	// 0 means 2 per logical processor
	Workers		int
	// Storage alignment unit. 0 means ask the volume per file.
	Align		int
	// Open files with O_DIRECT where the filesystem allows it
	Direct		bool
	// nil means DefaultPort
	NewPort		PortFactory
	// Called from a worker when the completion queue itself fails. Nothing can be
	// attributed to any single Op at that point. nil means log and panic.
	OnFatal		func(error)
}

func DefaultConfig() Config {
	return Config{
		RingEntries: 	c.RING_ENTRIES,
		Direct: 		true,
	}
}

// Engine is the completion queue plus the workers draining it. Nothing is started
// until the first Init (or the first operation); the outcome of that first Init,
// good or bad, is what every later caller gets.
type Engine struct {
	log			*slog.Logger
	cfg			Config

	once		sync.Once
	initErr		error

	port		Port
	reg			*registry
	nworkers	int
	workers		sync.WaitGroup

	closeOnce	sync.Once
	closeErr	error
}

func NewEngine(cfg Config) *Engine {
	if cfg.RingEntries == 0 { cfg.RingEntries = c.RING_ENTRIES }

	return &Engine{
		log: 	slog.With("src", "Engine"),
		cfg: 	cfg,
		reg: 	newRegistry(int(cfg.RingEntries)),
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Workers is the size of the pool. It starts the engine if nothing has yet, and is
// 0 when that failed.
func (e *Engine) Workers() int {
	if e.Init() != nil { return 0 }
	return e.nworkers
}

func (e *Engine) Init() error {
	e.once.Do(e.init)
	return e.initErr
}

func (e *Engine) init() {
	newPort := e.cfg.NewPort
	if newPort == nil { newPort = DefaultPort }

	port, err := newPort(e.cfg.RingEntries)
	if err != nil {
		e.initErr = fmt.Errorf("iomgr: create completion port: %w", err)
		e.log.Error("Init", "err", err)
		return
	}

	n := e.cfg.Workers
	if n <= 0 { n = 2 * system.NumCPU() }

	e.port = port
	e.nworkers = n
	e.workers.Add(n)
	for i := range n {
		go e.worker(i)
	}
	e.log.Debug("Completion port ready", "workers", n, "entries", e.cfg.RingEntries)
}

// Associate ties fd to the completion queue. Every handle goes through here once
// before any Read or Write against it.
func (e *Engine) Associate(fd int) error {
	if err := e.Init(); err != nil { return err }
	return e.port.Associate(fd)
}

// Read reads fd from offset 0 to end of file, chunk bytes per request, and hands the
// whole thing to cb. chunk should be a multiple of align for O_DIRECT handles.
// cb runs on a worker, or on the calling goroutine if the read never got going.
func (e *Engine) Read(fd int, chunk int, align int, cb ReadFunc) {
	if chunk <= 0 {
		cb(nil, newOpError(OpRead, ErrInvalidChunk))
		return
	}
	if err := e.Init(); err != nil {
		cb(nil, newOpError(OpRead, err))
		return
	}

	op, err := newReadOp(fd, chunk, align, cb)
	if err != nil {
		cb(nil, newOpError(OpRead, err))
		return
	}
	e.start(op)
}

// Write writes buf at offset 0 and then cuts the file down to n bytes. buf is the
// padded payload, n <= len(buf) the length the caller asked for.
func (e *Engine) Write(fd int, buf []byte, n int, cb WriteFunc) {
	if len(buf) == 0 {
		cb(newOpError(OpWrite, ErrEmptyWrite))
		return
	}
	if n < 0 || n > len(buf) {
		cb(newOpError(OpWrite, fmt.Errorf("iomgr: write length %d outside buffer of %d", n, len(buf))))
		return
	}
	if err := e.Init(); err != nil {
		cb(newOpError(OpWrite, err))
		return
	}

	e.start(newWriteOp(fd, buf, n, cb))
}

func (e *Engine) start(op *Op) {
	ready, err := e.reg.admit(op)
	if err != nil {
		op.fail(newOpError(op.Opcode, err))
		return
	}
	if !ready {
		e.log.Debug("Parked", "opcode", op.Opcode, "fd", op.fd)
		return
	}
	e.dispatch(op, op.buf)
}

// Close waits for every admitted operation to call back, then stops the workers and
// tears the queue down. Operations started after Close fail with ErrClosed.
// Must not be called from inside a callback.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		// never initialized: poison the gate instead of spinning workers up just to stop them
		e.once.Do(func() { e.initErr = ErrClosed })

		e.reg.shutdown()
		if e.port == nil {
			return
		}

		if err := e.port.Wake(e.nworkers); err != nil {
			e.closeErr = err
			e.log.Error("Wake", "err", err)
			return
		}
		e.workers.Wait()
		e.closeErr = e.port.Close()
		e.log.Debug("Completion port closed")
	})
	return e.closeErr
}

// Each worker sits on the queue for good. The only ways out are a shutdown key or
// a queue failure, which takes the process down.
func (e *Engine) worker(id int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.workers.Done()

	for {
		cmp, err := e.port.Wait()
		if err != nil {
			e.fatal(fmt.Errorf("iomgr: completion queue wait (worker %d): %w", id, err))
			return
		}

		switch cmp.Key {
		case SHUTDOWN_KEY:
			return
		case SKIP_KEY:
			continue
		}

		op, ok := e.reg.take(cmp.Key)
		if !ok {
			e.fatal(fmt.Errorf("iomgr: completion for unknown key 0x%x", cmp.Key))
			return
		}

		if cmp.Err != nil {
			op.fail(newOpError(op.Opcode, cmp.Err))
			e.finalize(op)
			continue
		}

		n := int(cmp.Bytes)
		if cmp.EOF { n = 0 }
		e.proceed(op, n)
	}
}

func (e *Engine) fatal(err error) {
	if e.cfg.OnFatal != nil {
		e.cfg.OnFatal(err)
		return
	}
	e.log.Error("Fatal completion queue error", "err", err)
	panic(err)
}
