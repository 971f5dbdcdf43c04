package pyparse

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// File is one parsed Python source file. The tree holds byte ranges into
// Source; Source is never modified, all rewriting happens through edits.
type File struct {
	Path   string
	Module string // dotted module path, derived from the file location
	Source []byte

	tree *sitter.Tree
}

func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Text returns the source bytes covered by node.
func (f *File) Text(node *sitter.Node) string {
	return string(f.Source[node.StartByte():node.EndByte()])
}

// Line returns the 1-based line of the node start.
func (f *File) Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// Parser parses Python files with a recycled pool of tree-sitter parsers,
// so concurrent per-file passes do not pay the parser allocation cost.
type Parser struct {
	lang *sitter.Language
	pool sync.Pool
}

func NewParser() *Parser {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	p := &Parser{lang: lang}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

// ParseFile parses source into a File. A tree whose root contains syntax
// errors is rejected: a file we cannot parse is a file we must not rewrite.
func (p *Parser) ParseFile(path string, source []byte) (*File, error) {
	sp := p.pool.Get().(*sitter.Parser)
	defer func() {
		sp.Reset()
		p.pool.Put(sp)
	}()
	sp.SetLanguage(p.lang)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree produced", path)
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("parse %s: syntax errors in source", path)
	}

	return &File{
		Path:   path,
		Module: ModulePath(path),
		Source: source,
		tree:   tree,
	}, nil
}
