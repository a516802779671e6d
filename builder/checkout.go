package builder

import "sync"

// Checkout represents exclusive possession of one repo's WIP build scope:
// while held, no other build may run against the same repopath, since a
// concurrent build-write-index run would race on the same manifest and
// index entries. Registry obtains one via Registry.Checkout, which blocks
// until the scope is free, and must release it with a deferred Release
// the moment it is acquired, so a panicking build still frees the scope
// for the next caller.
type Checkout struct {
	registry *Registry
	repoPath string
	once     sync.Once
}

// Release returns the checkout to its Registry. Safe to call more than
// once; only the first call has an effect.
func (c *Checkout) Release() {
	c.once.Do(func() { c.registry.release(c.repoPath) })
}

// Registry serializes build access per repopath. One Registry is shared
// by every build entry point in a process (CLI, a long-running builder
// service); it holds no knowledge of build semantics, only of which
// repopaths are currently checked out.
type Registry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	checked  map[string]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{checked: make(map[string]bool)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Checkout blocks until repoPath is free, then returns a Checkout
// representing exclusive possession of it. Callers must arrange
// `defer checkout.Release()` immediately upon return, per the package's
// scoped-acquisition convention.
func (r *Registry) Checkout(repoPath string) *Checkout {
	r.mu.Lock()
	for r.checked[repoPath] {
		r.cond.Wait()
	}
	r.checked[repoPath] = true
	r.mu.Unlock()
	return &Checkout{registry: r, repoPath: repoPath}
}

func (r *Registry) release(repoPath string) {
	r.mu.Lock()
	delete(r.checked, repoPath)
	r.mu.Unlock()
	r.cond.Broadcast()
}
