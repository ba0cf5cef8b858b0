// Package lsp exposes an Engine over the Language Server Protocol. It
// handles full-text document sync, completion and configuration changes,
// and publishes diagnostics for every user-loaded file after each
// re-index.
package lsp

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/veriscope"
	"github.com/jward/veriscope/internal/complete"
	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/index"
	"github.com/jward/veriscope/internal/source"
)

// Name is reported to the client in the initialize result.
const Name = "veriscope"

// TriggerCharacters start completion without an explicit request.
var TriggerCharacters = []string{"$", "."}

// Server adapts an Engine to glsp handlers.
type Server struct {
	engine  *veriscope.Engine
	logger  *log.Logger
	version string
	onExit  func()
	ctx     context.Context

	handler protocol.Handler

	mu     sync.Mutex
	notify glsp.NotifyFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. It must not write to stdout.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithVersion sets the version reported to the client.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithExit sets the function run on the exit notification.
func WithExit(fn func()) Option {
	return func(s *Server) {
		s.onExit = fn
	}
}

// WithContext sets the context passed to every re-index.
func WithContext(ctx context.Context) Option {
	return func(s *Server) {
		s.ctx = ctx
	}
}

// New returns a Server for engine.
func New(engine *veriscope.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		logger:  log.New(os.Stderr, "[veriscope:lsp] ", log.Ltime),
		version: "dev",
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	s.handler = protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		Exit:                            s.exit,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.didOpen,
		TextDocumentDidChange:           s.didChange,
		TextDocumentDidClose:            s.didClose,
		TextDocumentCompletion:          s.completion,
		WorkspaceDidChangeConfiguration: s.didChangeConfiguration,
	}
	return s
}

// Handler returns the glsp handler to serve.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// Watch re-indexes on file system changes and publishes the results to
// the last client seen. It blocks until ctx is done.
func (s *Server) Watch(ctx context.Context, delay time.Duration) error {
	return s.engine.Watch(ctx, delay, func(r *veriscope.Report) {
		s.publish(s.lastNotify(), r)
	})
}

func (s *Server) remember(ctx *glsp.Context) glsp.NotifyFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx != nil && ctx.Notify != nil {
		s.notify = ctx.Notify
	}
	return s.notify
}

func (s *Server) lastNotify() glsp.NotifyFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.remember(ctx)
	if root := rootOf(params); root != "" {
		s.logger.Printf("workspace root %s", root)
		s.engine.SetRoot(root)
	}
	if m, ok := params.InitializationOptions.(map[string]any); ok {
		if err := s.configure(ctx, m); err != nil {
			s.logger.Printf("initialization options: %v", err)
		}
	}
	if params.Trace != nil {
		protocol.SetTraceValue(*params.Trace)
	}

	openClose := true
	change := protocol.TextDocumentSyncKindFull
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: &openClose,
				Change:    &change,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: TriggerCharacters,
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

// rootOf picks the workspace root: rootUri, then rootPath, then the first
// workspace folder.
func rootOf(params *protocol.InitializeParams) string {
	if params.RootURI != nil && *params.RootURI != "" {
		if p, err := uriToPath(*params.RootURI); err == nil {
			return p
		}
	}
	if params.RootPath != nil && *params.RootPath != "" {
		return *params.RootPath
	}
	for _, f := range params.WorkspaceFolders {
		if p, err := uriToPath(f.URI); err == nil {
			return p
		}
	}
	return ""
}

func (s *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	s.remember(ctx)
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) exit(ctx *glsp.Context) error {
	if s.onExit != nil {
		s.onExit()
	}
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	notify := s.remember(ctx)
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("lsp: didOpen: %w", err)
	}
	report, err := s.engine.Open(s.ctx, path, params.TextDocument.Text)
	if err != nil {
		return fmt.Errorf("lsp: didOpen: %w", err)
	}
	s.publish(notify, report)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	notify := s.remember(ctx)
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("lsp: didChange: %w", err)
	}
	text, ok := fullText(params.ContentChanges)
	if !ok {
		s.logger.Printf("didChange %s: no full-text change", path)
		return nil
	}
	report, err := s.engine.Change(s.ctx, path, text)
	if err != nil {
		return fmt.Errorf("lsp: didChange: %w", err)
	}
	s.publish(notify, report)
	return nil
}

// fullText returns the last whole-document change. Range edits are not
// expected since the server asks for full sync.
func fullText(changes []any) (string, bool) {
	text, ok := "", false
	for _, c := range changes {
		switch c := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text, ok = c.Text, true
			}
		case *protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text, ok = c.Text, true
			}
		}
	}
	return text, ok
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	notify := s.remember(ctx)
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("lsp: didClose: %w", err)
	}
	report, err := s.engine.Close(s.ctx, path)
	if err != nil {
		return fmt.Errorf("lsp: didClose: %w", err)
	}
	s.publish(notify, report)
	return nil
}

func (s *Server) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	s.remember(ctx)
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, fmt.Errorf("lsp: completion: %w", err)
	}
	res := s.engine.Complete(path, int(params.Position.Line), int(params.Position.Character))
	items := make([]protocol.CompletionItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, completionItem(it))
	}
	return &protocol.CompletionList{Items: items}, nil
}

func completionItem(it complete.Item) protocol.CompletionItem {
	kind := completionKind(it.Kind)
	out := protocol.CompletionItem{
		Label: it.Label,
		Kind:  &kind,
	}
	if it.InsertText != "" {
		insert := it.InsertText
		out.InsertText = &insert
	}
	if it.Detail != "" {
		detail := it.Detail
		out.Detail = &detail
	}
	if it.Documentation != "" {
		out.Documentation = it.Documentation
	}
	return out
}

func completionKind(k index.Kind) protocol.CompletionItemKind {
	switch k {
	case index.KindVariable:
		return protocol.CompletionItemKindVariable
	case index.KindField:
		return protocol.CompletionItemKindField
	case index.KindEnum:
		return protocol.CompletionItemKindEnum
	case index.KindClass:
		return protocol.CompletionItemKindClass
	case index.KindStruct:
		return protocol.CompletionItemKindStruct
	case index.KindInterface:
		return protocol.CompletionItemKindInterface
	case index.KindKeyword:
		return protocol.CompletionItemKindKeyword
	case index.KindFunction:
		return protocol.CompletionItemKindFunction
	}
	return protocol.CompletionItemKindText
}

func (s *Server) didChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	s.remember(ctx)
	m, ok := params.Settings.(map[string]any)
	if !ok {
		return nil
	}
	return s.configure(ctx, m)
}

func (s *Server) configure(ctx *glsp.Context, m map[string]any) error {
	st, err := source.FromMap(m)
	if err != nil {
		return fmt.Errorf("lsp: configure: %w", err)
	}
	if st.Empty() {
		return nil
	}
	report, err := s.engine.Configure(s.ctx, st)
	if err != nil {
		return fmt.Errorf("lsp: configure: %w", err)
	}
	s.publish(s.remember(ctx), report)
	return nil
}

// publish sends one publishDiagnostics notification per file of report.
// A nil report or a nil notify sends nothing.
func (s *Server) publish(notify glsp.NotifyFunc, report *veriscope.Report) {
	if report == nil || notify == nil {
		return
	}
	paths := make([]string, 0, len(report.Diagnostics))
	for path := range report.Diagnostics {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		list := report.Diagnostics[path]
		out := make([]protocol.Diagnostic, 0, len(list))
		for _, d := range list {
			out = append(out, diagnostic(d))
		}
		notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         pathToURI(path),
			Diagnostics: out,
		})
	}
}

func diagnostic(d diag.Diagnostic) protocol.Diagnostic {
	sev := severity(d.Severity)
	src := Name
	out := protocol.Diagnostic{
		Range: protocol.Range{
			Start: position(d.Start),
			End:   position(d.End),
		},
		Severity: &sev,
		Source:   &src,
		Message:  d.Message,
	}
	if d.Code != "" {
		out.Code = &protocol.IntegerOrString{Value: d.Code}
	}
	return out
}

func position(p diag.Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(max(p.Line, 0)),
		Character: protocol.UInteger(max(p.Character, 0)),
	}
}

func severity(s diag.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diag.SeverityError:
		return protocol.DiagnosticSeverityError
	case diag.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diag.SeverityHint:
		return protocol.DiagnosticSeverityHint
	}
	return protocol.DiagnosticSeverityInformation
}

// uriToPath converts a file URI to a local path. Other schemes are
// returned unchanged.
func uriToPath(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "file" {
		return filepath.FromSlash(parsed.Path), nil
	}
	return uri, nil
}

// pathToURI converts a local path to a file URI.
func pathToURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
