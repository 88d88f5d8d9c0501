package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Backends: read-only traversals producing one artifact each
// ---------------------------------------------------------------------------

// Backend renders a parsed program into one output artifact. Backends never
// modify the tree and keep no state between calls.
type Backend interface {
	Name() string
	Emit(root *Node) (string, error)
}

// Backend names.
const (
	BackendEval  = "eval"
	BackendSExpr = "sexpr"
	BackendC     = "c"
	BackendCIL   = "cil"
	BackendTree  = "tree"
)

type backendFunc struct {
	name string
	emit func(*Node) (string, error)
}

func (b backendFunc) Name() string                    { return b.name }
func (b backendFunc) Emit(root *Node) (string, error) { return b.emit(root) }

var backends = []Backend{
	backendFunc{BackendEval, func(root *Node) (string, error) {
		v, err := Evaluate(root)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(v), 10), nil
	}},
	backendFunc{BackendSExpr, func(root *Node) (string, error) { return SExpr(root), nil }},
	backendFunc{BackendC, checked(TranslateC)},
	backendFunc{BackendCIL, checked(EmitCIL)},
}

// checked wraps a target renderer so out-of-range literals are rejected
// instead of becoming constants the target reads differently.
func checked(render func(*Node) string) func(*Node) (string, error) {
	return func(root *Node) (string, error) {
		if err := CheckLiterals(root); err != nil {
			return "", err
		}
		return render(root), nil
	}
}

var treeBackend = backendFunc{BackendTree, func(root *Node) (string, error) { return root.StringTree(), nil }}

// Backends returns the four standard backends in output order.
func Backends() []Backend {
	out := make([]Backend, len(backends))
	copy(out, backends)
	return out
}

// DefaultBackendNames lists the standard backends by name.
func DefaultBackendNames() []string {
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	return names
}

// LookupBackend resolves a backend by name, including the tree dump.
func LookupBackend(name string) (Backend, error) {
	for _, b := range backends {
		if b.Name() == name {
			return b, nil
		}
	}
	if name == BackendTree {
		return treeBackend, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// Cacheable reports whether a backend's output is fully determined by the
// tree's content hash. The tree dump shows literals as written, so two
// programs with the same key can still dump differently.
func Cacheable(name string) bool {
	return name != BackendTree
}

// badKind reports a node kind a backend does not know. Trees built by the
// parser or NewNode never trigger it.
func badKind(backend string, n *Node) string {
	return fmt.Sprintf("%s: unexpected node kind %s", backend, n.Kind)
}
