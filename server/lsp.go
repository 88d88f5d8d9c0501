package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/arith/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "arith-lsp"

// LspServer publishes syntax diagnostics and hover values for arithmetic
// documents. The first line of a document is the expression. Positions are
// exchanged in UTF-16 code units, the LSP 3.16 default.
type LspServer struct {
	log commonlog.Logger

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		log:     commonlog.GetLogger("arith.lsp"),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("arith LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok || params.Position.Line != 0 {
		return nil, nil
	}
	value, ok := hover(firstLine(text), int(params.Position.Character))
	if !ok {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}, nil
}

// hover describes the subexpression whose operator or literal sits under
// character, then the whole program. It only reads the document.
func hover(line string, character int) (string, bool) {
	root, err := compiler.Parse(line)
	if err != nil {
		return "", false
	}

	var b strings.Builder
	if tok, ok := tokenAt(line, character); ok {
		if n := nodeAnchoredAt(root, tok.Pos.Offset); n != nil {
			fmt.Fprintf(&b, "**%s** `%s`\n\n", n.Kind, compiler.SExpr(n))
			v, err := compiler.Evaluate(n)
			writeValue(&b, v, err)
			b.WriteString("\n---\n\n")
		}
	}

	fmt.Fprintf(&b, "**Program** `%s`\n\n", compiler.SExpr(root))
	v, err := compiler.Evaluate(root)
	writeValue(&b, v, err)
	return b.String(), true
}

func writeValue(b *strings.Builder, v int32, err error) {
	if err != nil {
		fmt.Fprintf(b, "error: %v\n", err)
		return
	}
	fmt.Fprintf(b, "= %d\n", v)
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnose(firstLine(text))
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose parses line and reports a syntax error, or an evaluation
// overflow as a warning.
func (s *LspServer) diagnose(line string) []protocol.Diagnostic {
	source := lspName
	root, err := compiler.Parse(line)
	if err != nil {
		var se *compiler.SyntaxError
		if !errors.As(err, &se) {
			s.log.Errorf("parse: %v", err)
			return nil
		}
		severity := protocol.DiagnosticSeverityError
		return []protocol.Diagnostic{{
			Range:    spanRange(line, se.Pos.Offset, len(se.Found.Text)),
			Severity: &severity,
			Source:   &source,
			Message:  se.Error(),
		}}
	}

	if _, err := compiler.Evaluate(root); err != nil {
		var ee *compiler.EvalError
		offset, width := 0, 1
		if errors.As(err, &ee) {
			offset = ee.Pos.Offset
			if tok, ok := tokenAtOffset(line, offset); ok {
				width = len(tok.Text)
			}
		}
		severity := protocol.DiagnosticSeverityWarning
		return []protocol.Diagnostic{{
			Range:    spanRange(line, offset, width),
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		}}
	}
	return []protocol.Diagnostic{}
}

// --- Text helpers ---

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSuffix(text[:i], "\r")
	}
	return text
}

// utf16Len counts the UTF-16 code units in s.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// spanRange converts a byte span of line to a range on the first line. An
// empty span is widened to one code unit so editors still show it.
func spanRange(line string, offset, length int) protocol.Range {
	offset = min(offset, len(line))
	end := min(offset+length, len(line))
	start := utf16Len(line[:offset])
	width := max(utf16Len(line[offset:end]), 1)
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: protocol.UInteger(start)},
		End:   protocol.Position{Line: 0, Character: protocol.UInteger(start + width)},
	}
}

// tokenAt returns the token covering the zero-based UTF-16 character on
// line.
func tokenAt(line string, character int) (compiler.Token, bool) {
	for _, tok := range compiler.Tokenize(line) {
		if tok.Kind == compiler.TokenEnd {
			break
		}
		start := utf16Len(line[:tok.Pos.Offset])
		if character >= start && character < start+utf16Len(tok.Text) {
			return tok, true
		}
	}
	return compiler.Token{}, false
}

// tokenAtOffset returns the token starting at a byte offset.
func tokenAtOffset(line string, offset int) (compiler.Token, bool) {
	for _, tok := range compiler.Tokenize(line) {
		if tok.Kind != compiler.TokenEnd && tok.Pos.Offset == offset {
			return tok, true
		}
	}
	return compiler.Token{}, false
}

// nodeAnchoredAt finds the node whose anchor token starts at offset.
func nodeAnchoredAt(n *compiler.Node, offset int) *compiler.Node {
	if n.Kind != compiler.KindProgram && n.Anchor.Pos.Offset == offset {
		return n
	}
	for i := 0; i < n.Len(); i++ {
		if found := nodeAnchoredAt(n.Child(i), offset); found != nil {
			return found
		}
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
