// Package lsp serves a sitter language over the Language Server Protocol.
// Documents are kept in memory and reparsed incrementally on every change;
// syntax errors are published as diagnostics.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dhamidi/sitter/diag"
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "sitter"

var log = commonlog.GetLogger("sitter.lsp")

type document struct {
	text []byte
	tree *syntax.Tree
}

type Server struct {
	parser  *parser.Parser
	handler protocol.Handler
	server  *server.Server
	version string

	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document
}

func NewServer(version string, lang *grammar.Descriptor, opts ...parser.Option) *Server {
	ls := &Server{
		parser:  parser.New(lang, opts...),
		version: version,
		docs:    make(map[protocol.DocumentUri]*document),
	}

	ls.handler = protocol.Handler{
		Initialize:               ls.initialize,
		Initialized:              ls.initialized,
		Shutdown:                 ls.shutdown,
		SetTrace:                 ls.setTrace,
		TextDocumentDidOpen:      ls.textDocumentDidOpen,
		TextDocumentDidChange:    ls.textDocumentDidChange,
		TextDocumentDidClose:     ls.textDocumentDidClose,
		TextDocumentFoldingRange: ls.textDocumentFoldingRange,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	kind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &kind,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Infof("serving %s", ls.parser.Language().Name())
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diags, err := ls.open(params.TextDocument.URI, params.TextDocument.Text)
	if err != nil {
		return err
	}
	publish(ctx, params.TextDocument.URI, diags)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	diags, err := ls.change(params.TextDocument.URI, params.ContentChanges)
	if err != nil {
		return err
	}
	publish(ctx, params.TextDocument.URI, diags)
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.close(params.TextDocument.URI)
	publish(ctx, params.TextDocument.URI, nil)
	return nil
}

func (ls *Server) textDocumentFoldingRange(ctx *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	ls.mu.Lock()
	doc, ok := ls.docs[params.TextDocument.URI]
	ls.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown document %s", params.TextDocument.URI)
	}
	return foldingRanges(doc.tree), nil
}

func publish(ctx *glsp.Context, uri protocol.DocumentUri, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func (ls *Server) open(uri protocol.DocumentUri, text string) ([]protocol.Diagnostic, error) {
	doc := &document{text: []byte(text)}
	if err := ls.reparse(doc, nil); err != nil {
		return nil, err
	}

	ls.mu.Lock()
	ls.docs[uri] = doc
	ls.mu.Unlock()

	log.Debugf("opened %s", uri)
	return diagnostics(doc), nil
}

// change applies content changes in order. Ranged changes are turned into
// edits against the previous tree; a whole-document change starts over.
func (ls *Server) change(uri protocol.DocumentUri, changes []any) ([]protocol.Diagnostic, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	doc, ok := ls.docs[uri]
	if !ok {
		return nil, fmt.Errorf("unknown document %s", uri)
	}

	next := &document{text: doc.text, tree: doc.tree}
	var edits []source.Edit
	for _, c := range changes {
		switch c := c.(type) {
		case protocol.TextDocumentContentChangeEvent:
			start := offsetAt(next.text, c.Range.Start)
			end := offsetAt(next.text, c.Range.End)
			if end < start {
				return nil, fmt.Errorf("%s: change ends before it starts", uri)
			}
			var e source.Edit
			next.text, e = source.Replace(next.text, start, end, []byte(c.Text))
			edits = append(edits, e)
		case protocol.TextDocumentContentChangeEventWhole:
			next.text = []byte(c.Text)
			next.tree = nil
			edits = nil
		default:
			return nil, fmt.Errorf("%s: unsupported change %T", uri, c)
		}
	}

	if err := ls.reparse(next, edits); err != nil {
		return nil, err
	}
	ls.docs[uri] = next
	return diagnostics(next), nil
}

func (ls *Server) close(uri protocol.DocumentUri) {
	ls.mu.Lock()
	delete(ls.docs, uri)
	ls.mu.Unlock()
}

// reparse replaces doc.tree with a parse of doc.text. A parse that runs out
// of time still leaves its partial tree in place.
func (ls *Server) reparse(doc *document, edits []source.Edit) error {
	tree, stats, err := ls.parser.ParseWithStats(context.Background(), source.Bytes(doc.text), doc.tree, edits...)
	if err != nil && !errors.Is(err, parser.ErrTimeout) {
		return err
	}
	if err != nil {
		log.Warningf("parse timed out after %d tokens", stats.TokensLexed)
	}
	doc.tree = tree
	return nil
}

func diagnostics(doc *document) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	severity := protocol.DiagnosticSeverityError
	name := lsName
	for _, d := range diag.Collect(doc.tree, doc.text) {
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: positionAt(doc.text, d.Range.StartByte),
				End:   positionAt(doc.text, d.Range.EndByte),
			},
			Severity: &severity,
			Source:   &name,
			Message:  d.Message,
		})
	}
	return out
}

// foldingRanges returns one range per line on which a multi-line named node
// starts, spanning the outermost such node.
func foldingRanges(tree *syntax.Tree) []protocol.FoldingRange {
	var out []protocol.FoldingRange
	seen := make(map[int]bool)
	root := tree.Root()
	for _, top := range root.Children() {
		top.Walk(func(n syntax.Node) bool {
			if !n.IsNamed() || n.IsError() {
				return true
			}
			start, end := n.StartPoint(), n.EndPoint()
			last := end.Row
			if end.Column == 0 {
				last--
			}
			if last <= start.Row || seen[start.Row] {
				return true
			}
			seen[start.Row] = true
			out = append(out, protocol.FoldingRange{
				StartLine: protocol.UInteger(start.Row),
				EndLine:   protocol.UInteger(last),
			})
			return true
		})
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
