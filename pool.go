package tex2pdf

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent TeX processes; each pass can use
	// hundreds of MB for large documents.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the compiler's own I/O.
	cpuDivisor = 2
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("compiler pool closed")

// CompilerPool bounds how many compilations run at once. Each slot holds its
// own Compiler so workspace tracking and cleanup stay per worker.
// Compilers are created lazily on first acquire.
type CompilerPool struct {
	size      int
	opts      []Option
	compilers []*Compiler
	sem       chan *Compiler
	mu        sync.Mutex
	created   int
	closed    bool
	done      chan struct{}
}

// NewCompilerPool creates a pool with capacity for n Compiler instances,
// each built with opts. Compilers are created when acquired, not here.
func NewCompilerPool(n int, opts ...Option) *CompilerPool {
	if n < 1 {
		n = 1
	}

	return &CompilerPool{
		size:      n,
		opts:      opts,
		compilers: make([]*Compiler, 0, n),
		sem:       make(chan *Compiler, n),
		done:      make(chan struct{}),
	}
}

// Acquire gets a compiler from the pool, creating one if needed.
// Blocks until a compiler is free, ctx is done, or the pool is closed.
func (p *CompilerPool) Acquire(ctx context.Context) (*Compiler, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	// Try to get an existing compiler (non-blocking)
	select {
	case c := <-p.sem:
		p.mu.Unlock()
		return c, nil
	default:
	}

	if p.created < p.size {
		p.created++
		c := NewCompiler(p.opts...)
		p.compilers = append(p.compilers, c)
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	// All compilers created, wait for one to be released
	select {
	case c := <-p.sem:
		return c, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a compiler to the pool.
func (p *CompilerPool) Release(c *Compiler) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// Never blocks: at most size compilers exist.
	p.sem <- c
}

// Close removes leftover workspaces of every compiler the pool created.
// Returns an aggregated error if several cleanups fail.
func (p *CompilerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	compilers := p.compilers
	p.mu.Unlock()

	var errs []error
	for _, c := range compilers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *CompilerPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
