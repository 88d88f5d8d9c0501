// Package driver runs the compile pipeline: parse once, hash the tree,
// then fan the requested backends out over the shared tree, consulting
// the artifact store before doing any work.
package driver

import (
	"context"
	"errors"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/arith/compiler"
	"github.com/chazu/arith/compiler/hash"
	"github.com/chazu/arith/compiler/wire"
	"github.com/chazu/arith/store"
)

// Driver compiles expressions. It is safe for concurrent use.
type Driver struct {
	store *store.Store
	log   commonlog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithStore enables the artifact cache.
func WithStore(s *store.Store) Option {
	return func(d *Driver) { d.store = s }
}

// WithLogger replaces the default "arith.driver" logger.
func WithLogger(l commonlog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// New creates a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{log: commonlog.GetLogger("arith.driver")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Artifact is one backend's output. Err is set when the backend itself
// failed (evaluation overflow); Output is then empty.
type Artifact struct {
	Backend string
	Output  string
	Cached  bool
	Err     error
}

// Result is a compiled program.
type Result struct {
	Key       string
	Source    string
	Tree      *compiler.Node
	Artifacts []Artifact
}

// Artifact returns the output of the named backend, if it was requested.
func (r *Result) Artifact(name string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Backend == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Compile parses source and runs the named backends over it. Artifacts
// come back in the order the backends were named. A syntax error aborts
// before any backend runs and is returned as a *compiler.SyntaxError.
func (d *Driver) Compile(ctx context.Context, source string, backendNames []string) (*Result, error) {
	if len(backendNames) == 0 {
		backendNames = compiler.DefaultBackendNames()
	}
	backends := make([]compiler.Backend, len(backendNames))
	for i, name := range backendNames {
		b, err := compiler.LookupBackend(name)
		if err != nil {
			return nil, err
		}
		backends[i] = b
	}

	root, err := compiler.Parse(source)
	if err != nil {
		d.log.Debugf("parse failed: %v", err)
		return nil, err
	}

	res := &Result{
		Key:       hash.Key(root),
		Source:    source,
		Tree:      root,
		Artifacts: make([]Artifact, len(backends)),
	}
	d.log.Debugf("compiling %s with %v", shortKey(res.Key), backendNames)
	d.recordTree(ctx, res)

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(i int, b compiler.Backend) {
			defer wg.Done()
			res.Artifacts[i] = d.run(ctx, res.Key, root, b)
		}(i, b)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Driver) run(ctx context.Context, key string, root *compiler.Node, b compiler.Backend) Artifact {
	name := b.Name()
	cache := d.store != nil && compiler.Cacheable(name)
	if cache {
		out, err := d.store.Artifact(ctx, key, name)
		switch {
		case err == nil:
			return Artifact{Backend: name, Output: out, Cached: true}
		case !errors.Is(err, store.ErrNotFound):
			d.log.Warningf("cache lookup %s: %v", name, err)
		}
	}

	out, err := b.Emit(root)
	if err != nil {
		d.log.Infof("%s backend: %v", name, err)
		return Artifact{Backend: name, Err: err}
	}
	if cache {
		if err := d.store.PutArtifact(ctx, key, name, out); err != nil {
			d.log.Warningf("cache store %s: %v", name, err)
		}
	}
	return Artifact{Backend: name, Output: out}
}

func (d *Driver) recordTree(ctx context.Context, res *Result) {
	if d.store == nil {
		return
	}
	data, err := wire.MarshalTree(res.Tree)
	if err != nil {
		d.log.Warningf("encode tree: %v", err)
		return
	}
	if err := d.store.PutTree(ctx, res.Key, res.Source, data); err != nil {
		d.log.Warningf("cache tree: %v", err)
	}
}

// Lookup loads a previously compiled tree from the store by key.
func (d *Driver) Lookup(ctx context.Context, key string) (*compiler.Node, string, error) {
	if d.store == nil {
		return nil, "", store.ErrNotFound
	}
	source, data, err := d.store.Tree(ctx, key)
	if err != nil {
		return nil, "", err
	}
	root, err := wire.UnmarshalTree(data)
	if err != nil {
		return nil, "", err
	}
	return root, source, nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
