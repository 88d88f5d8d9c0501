// Package manifest handles arith.toml project configuration.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// FileName is the project file looked up by FindAndLoad.
const FileName = "arith.toml"

//go:embed schema.cue
var schemaSource string

// Manifest represents an arith.toml project configuration.
type Manifest struct {
	Project Project `toml:"project" json:"project"`
	Output  Output  `toml:"output" json:"output"`
	Server  Server  `toml:"server" json:"server"`
	Cache   Cache   `toml:"cache" json:"cache"`
	Log     Log     `toml:"log" json:"log"`

	// Dir is the directory containing the arith.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Output selects backends and where their artifacts go. An empty CFile
// means the C program is printed to stdout.
type Output struct {
	Backends []string `toml:"backends" json:"backends"`
	Dir      string   `toml:"dir" json:"dir"`
	CFile    string   `toml:"c-file" json:"c-file"`
	ILFile   string   `toml:"il-file" json:"il-file"`
}

// Server configures the compile service.
type Server struct {
	Addr string `toml:"addr" json:"addr"`
}

// Cache configures the artifact cache.
type Cache struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Log configures commonlog. Verbosity follows commonlog: 0 is errors and
// warnings only, each step up adds notice, info and debug.
type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// Default returns the configuration used when no arith.toml exists.
func Default() *Manifest {
	m := &Manifest{Cache: Cache{Enabled: true}}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Output.Backends) == 0 {
		m.Output.Backends = []string{"eval", "sexpr", "c", "cil"}
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "."
	}
	if m.Output.ILFile == "" {
		m.Output.ILFile = "output.il"
	}
	if m.Server.Addr == "" {
		m.Server.Addr = ":4567"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".arith", "cache.db")
	}
}

// Load parses an arith.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	// The cache is on unless the file says otherwise.
	m := Manifest{Cache: Cache{Enabled: true}}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an arith.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ErrSchema is wrapped by every schema validation failure.
var ErrSchema = errors.New("schema violation")

// Validate checks the manifest against the embedded CUE schema.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))

	v := ctx.Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// resolve makes a configured path absolute relative to the manifest
// directory. Absolute paths are returned unchanged.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// OutputDir returns the directory artifacts are written to.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output.Dir)
}

// ILPath returns the path of the CIL listing.
func (m *Manifest) ILPath() string {
	if filepath.IsAbs(m.Output.ILFile) {
		return m.Output.ILFile
	}
	return filepath.Join(m.OutputDir(), m.Output.ILFile)
}

// CPath returns the path of the C program, or "" when it goes to stdout.
func (m *Manifest) CPath() string {
	if m.Output.CFile == "" || filepath.IsAbs(m.Output.CFile) {
		return m.Output.CFile
	}
	return filepath.Join(m.OutputDir(), m.Output.CFile)
}

// CachePath returns the path of the SQLite artifact cache.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// LogFile returns the log file path, or "" for stderr.
func (m *Manifest) LogFile() string {
	return m.resolve(m.Log.File)
}
