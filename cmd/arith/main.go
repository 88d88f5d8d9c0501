// arith compiles a one-line arithmetic expression with every backend:
// it prints the value, the S-expression and a C program, and writes a
// CIL listing to output.il.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/arith/compiler"
	"github.com/chazu/arith/driver"
	"github.com/chazu/arith/manifest"
	"github.com/chazu/arith/server"
	"github.com/chazu/arith/store"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	expr      string
	backends  string
	configDir string
	noCache   bool
	tree      bool
	astFile   string
	serve     bool
	port      int
	lsp       bool
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("arith", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.expr, "e", "", "Expression to compile (default: prompt on stdin)")
	fs.StringVar(&o.backends, "b", "", "Comma-separated backends: eval, sexpr, c, cil, tree")
	fs.StringVar(&o.configDir, "config", ".", "Directory to search upward for arith.toml")
	fs.BoolVar(&o.noCache, "no-cache", false, "Do not read or write the artifact cache")
	fs.BoolVar(&o.tree, "tree", false, "Also print the syntax tree")
	fs.StringVar(&o.astFile, "ast", "", "Write the syntax tree as CBOR to this file")
	fs.BoolVar(&o.serve, "serve", false, "Start the compile service (Connect HTTP/JSON)")
	fs.IntVar(&o.port, "port", 0, "Compile service port (used with -serve; default from arith.toml)")
	fs.BoolVar(&o.lsp, "lsp", false, "Run the language server on stdio")
	fs.BoolVar(&o.verbose, "v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: arith [options]\n\n")
		fmt.Fprintf(stderr, "Reads one expression of integers, +, *, ^ and parentheses and compiles it.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  arith                       # Prompt for an expression\n")
		fmt.Fprintf(stderr, "  arith -e '2^3^2'            # Compile an expression directly\n")
		fmt.Fprintf(stderr, "  arith -e '1+2' -b eval,tree # Selected backends only\n")
		fmt.Fprintf(stderr, "  arith -serve -port 8080     # Serve compile requests on :8080\n")
		fmt.Fprintf(stderr, "  arith -lsp                  # Language server for editors\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return &o, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	m, err := manifest.FindAndLoad(o.configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if m == nil {
		m = manifest.Default()
	}
	configureLogging(m, o.verbose)
	log := commonlog.GetLogger("arith")

	ctx := context.Background()
	var opts []driver.Option
	if m.Cache.Enabled && !o.noCache {
		s, err := store.Open(ctx, m.CachePath())
		if err != nil {
			log.Warningf("cache disabled: %v", err)
		} else {
			defer s.Close()
			opts = append(opts, driver.WithStore(s))
		}
	}
	d := driver.New(opts...)

	switch {
	case o.lsp:
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return 1
		}
		return 0

	case o.serve:
		addr := m.Server.Addr
		if o.port != 0 {
			addr = fmt.Sprintf(":%d", o.port)
		}
		if err := server.New(d).ListenAndServe(addr); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	source := o.expr
	if source == "" {
		fmt.Fprint(stdout, "> ")
		source, err = readLine(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading input: %v\n", err)
			return 1
		}
	}

	backends := m.Output.Backends
	if o.backends != "" {
		backends = splitList(o.backends)
	}
	if o.tree && !contains(backends, compiler.BackendTree) {
		backends = append(backends, compiler.BackendTree)
	}

	res, err := d.Compile(ctx, source, backends)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	w := &artifactWriter{manifest: m, stdout: stdout, log: log}
	code := 0
	for _, a := range res.Artifacts {
		if err := w.write(a); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", a.Backend, err)
			code = 1
		}
	}
	if o.astFile != "" {
		if err := writeAST(o.astFile, res.Tree); err != nil {
			fmt.Fprintf(stderr, "Error writing %s: %v\n", o.astFile, err)
			code = 1
		}
	}
	return code
}

// configureLogging routes commonlog to the configured file. -v raises
// the verbosity to at least info.
func configureLogging(m *manifest.Manifest, verbose bool) {
	verbosity := m.Log.Verbosity
	if verbose && verbosity < 2 {
		verbosity = 2
	}
	var path *string
	if f := m.LogFile(); f != "" {
		path = &f
	}
	commonlog.Configure(verbosity, path)
}

// readLine returns the first line of r without its line terminator. An
// empty input is an empty line.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
