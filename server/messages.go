package server

// Request and response messages for arith.v1.CompileService. They travel
// as JSON through jsonCodec.

// CompileRequest asks for one expression to be compiled.
type CompileRequest struct {
	Source   string   `json:"source"`
	Backends []string `json:"backends,omitempty"` // empty means eval, sexpr, c, cil
}

// CompileResponse carries the artifacts of a successful compile, or the
// diagnostics of a failed one.
type CompileResponse struct {
	RequestID   string           `json:"requestId"`
	Success     bool             `json:"success"`
	Key         string           `json:"key,omitempty"`
	Artifacts   []ArtifactResult `json:"artifacts,omitempty"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
}

// ArtifactResult is one backend's output.
type ArtifactResult struct {
	Backend string `json:"backend"`
	Output  string `json:"output,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Severity of a diagnostic.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic points at a problem in the source. Column is 1-based.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Offset   int    `json:"offset"`
	Column   int    `json:"column"`
	Length   int    `json:"length"`
}

// CheckSyntaxRequest asks whether source parses.
type CheckSyntaxRequest struct {
	Source string `json:"source"`
}

// CheckSyntaxResponse reports the parse outcome. Tree is the
// S-expression of a valid program.
type CheckSyntaxResponse struct {
	Valid       bool         `json:"valid"`
	Tree        string       `json:"tree,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
