package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/arith/compiler"
	"github.com/chazu/arith/compiler/wire"
	"github.com/chazu/arith/driver"
	"github.com/chazu/arith/manifest"
)

// artifactWriter sends each artifact where the manifest says it goes.
type artifactWriter struct {
	manifest *manifest.Manifest
	stdout   io.Writer
	log      commonlog.Logger
}

func (w *artifactWriter) write(a driver.Artifact) error {
	if a.Err != nil {
		return a.Err
	}
	switch a.Backend {
	case compiler.BackendCIL:
		return w.writeFile(w.manifest.ILPath(), a)
	case compiler.BackendC:
		if path := w.manifest.CPath(); path != "" {
			return w.writeFile(path, a)
		}
		_, err := io.WriteString(w.stdout, a.Output)
		return err
	case compiler.BackendTree:
		_, err := io.WriteString(w.stdout, a.Output)
		return err
	default:
		_, err := fmt.Fprintln(w.stdout, a.Output)
		return err
	}
}

func (w *artifactWriter) writeFile(path string, a driver.Artifact) error {
	if err := writeFile(path, []byte(a.Output)); err != nil {
		return err
	}
	if a.Cached {
		w.log.Infof("wrote %s (cached)", path)
	} else {
		w.log.Infof("wrote %s", path)
	}
	return nil
}

func writeAST(path string, root *compiler.Node) error {
	data, err := wire.MarshalTree(root)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
