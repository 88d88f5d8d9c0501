package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/arith/compiler"
	"github.com/chazu/arith/driver"
)

// Procedure paths for arith.v1.CompileService.
const (
	CompileServiceName        = "arith.v1.CompileService"
	CompileServiceCompile     = "/" + CompileServiceName + "/Compile"
	CompileServiceCheckSyntax = "/" + CompileServiceName + "/CheckSyntax"
	requestIDHeader           = "X-Request-Id"
)

// CompileService implements the Connect compile handlers.
type CompileService struct {
	driver *driver.Driver
	log    commonlog.Logger
}

// NewCompileService creates a CompileService compiling through d.
func NewCompileService(d *driver.Driver) *CompileService {
	return &CompileService{
		driver: d,
		log:    commonlog.GetLogger("arith.server"),
	}
}

// NewCompileServiceHandler mounts svc's procedures under one path prefix.
func NewCompileServiceHandler(svc *CompileService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	compile := connect.NewUnaryHandler(CompileServiceCompile, svc.Compile, opts...)
	check := connect.NewUnaryHandler(CompileServiceCheckSyntax, svc.CheckSyntax, opts...)
	return "/" + CompileServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CompileServiceCompile:
			compile.ServeHTTP(w, r)
		case CompileServiceCheckSyntax:
			check.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// Compile parses and compiles an expression.
func (s *CompileService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	source := req.Msg.Source
	if strings.TrimSpace(source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	for _, name := range req.Msg.Backends {
		if _, err := compiler.LookupBackend(name); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
	}

	id := uuid.NewString()
	res, err := s.driver.Compile(ctx, source, req.Msg.Backends)

	var syntaxErr *compiler.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		s.log.Debugf("request %s: %v", id, err)
		return newResponse(id, &CompileResponse{
			RequestID:   id,
			Diagnostics: []Diagnostic{syntaxDiagnostic(syntaxErr)},
		}), nil
	case err != nil:
		s.log.Errorf("request %s: %v", id, err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := &CompileResponse{RequestID: id, Success: true, Key: res.Key}
	for _, a := range res.Artifacts {
		ar := ArtifactResult{Backend: a.Backend, Output: a.Output, Cached: a.Cached}
		if a.Err != nil {
			ar.Error = a.Err.Error()
			out.Diagnostics = append(out.Diagnostics, evalDiagnostic(a.Err))
		}
		out.Artifacts = append(out.Artifacts, ar)
	}
	s.log.Infof("request %s: compiled %s (%d artifacts)", id, res.Key[:12], len(out.Artifacts))
	return newResponse(id, out), nil
}

// CheckSyntax validates source without running any backend.
func (s *CompileService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[CheckSyntaxRequest],
) (*connect.Response[CheckSyntaxResponse], error) {
	source := req.Msg.Source
	if strings.TrimSpace(source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	root, err := compiler.Parse(source)
	if err != nil {
		var syntaxErr *compiler.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return connect.NewResponse(&CheckSyntaxResponse{
			Diagnostics: []Diagnostic{syntaxDiagnostic(syntaxErr)},
		}), nil
	}
	return connect.NewResponse(&CheckSyntaxResponse{Valid: true, Tree: compiler.SExpr(root)}), nil
}

func newResponse(id string, msg *CompileResponse) *connect.Response[CompileResponse] {
	resp := connect.NewResponse(msg)
	resp.Header().Set(requestIDHeader, id)
	return resp
}

func syntaxDiagnostic(err *compiler.SyntaxError) Diagnostic {
	length := len(err.Found.Text)
	if length == 0 {
		length = 1
	}
	return Diagnostic{
		Severity: SeverityError,
		Message:  err.Error(),
		Offset:   err.Pos.Offset,
		Column:   err.Pos.Column,
		Length:   length,
	}
}

func evalDiagnostic(err error) Diagnostic {
	d := Diagnostic{Severity: SeverityWarning, Message: err.Error()}
	var ee *compiler.EvalError
	if errors.As(err, &ee) {
		d.Offset = ee.Pos.Offset
		d.Column = ee.Pos.Column
		d.Length = 1
	}
	return d
}

// CompileServiceClient calls a remote CompileService.
type CompileServiceClient struct {
	compile *connect.Client[CompileRequest, CompileResponse]
	check   *connect.Client[CheckSyntaxRequest, CheckSyntaxResponse]
}

// NewCompileServiceClient creates a client for the service at baseURL.
func NewCompileServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CompileServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &CompileServiceClient{
		compile: connect.NewClient[CompileRequest, CompileResponse](httpClient, baseURL+CompileServiceCompile, opts...),
		check:   connect.NewClient[CheckSyntaxRequest, CheckSyntaxResponse](httpClient, baseURL+CompileServiceCheckSyntax, opts...),
	}
}

// Compile calls CompileService.Compile.
func (c *CompileServiceClient) Compile(ctx context.Context, req *CompileRequest) (*connect.Response[CompileResponse], error) {
	return c.compile.CallUnary(ctx, connect.NewRequest(req))
}

// CheckSyntax calls CompileService.CheckSyntax.
func (c *CompileServiceClient) CheckSyntax(ctx context.Context, req *CheckSyntaxRequest) (*connect.Response[CheckSyntaxResponse], error) {
	return c.check.CallUnary(ctx, connect.NewRequest(req))
}
