package sites

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/chadrik/typewriter/internal/pyparse"
)

// Param describes one entry of a function's parameter list, with the byte
// offsets the synthesizer needs to place annotations around it.
type Param struct {
	Name       string
	Star       bool
	DoubleStar bool
	HasDefault bool

	// Kind and text of the default value literal, when one is present.
	DefaultKind string
	DefaultText string

	NameEnd   uint // insertion point for an inline annotation
	EqPos     uint // offset of '=', 0 when no default
	ElemStart uint
	ElemEnd   uint // end of the whole element, default included
}

// Receiverish reports whether the parameter is conventionally named as an
// implicit receiver.
func (p Param) Receiverish() bool {
	return !p.Star && !p.DoubleStar && (p.Name == "self" || p.Name == "cls")
}

// FunctionSite is one annotatable function definition. It is extracted once
// per pass and never mutated; rewrites are expressed as byte edits instead.
type FunctionSite struct {
	QualName   string
	Name       string
	Line       int
	Params     []Param
	Decorators []string
	IsMethod   bool

	// Annotated is set when the site already carries any type annotation,
	// inline or comment style. Such sites are never touched again.
	Annotated bool

	HasReturnExpr  bool
	HasYield       bool
	Docstring      string
	ClassDocstring string

	DefIndent  string
	ColonPos   uint // ':' introducing the body
	RParPos    uint // ')' closing the parameter list
	BodyStart  uint
	BodyInline bool // body begins on the header line
	ParamsSpan [2]uint
}

// HasDecorator reports whether name appears among the plain decorators.
func (s *FunctionSite) HasDecorator(name string) bool {
	for _, d := range s.Decorators {
		if d == name {
			return true
		}
	}
	return false
}

// BareName returns the unqualified function name.
func (s *FunctionSite) BareName() string {
	return s.Name
}

// Extract walks the tree outer-to-inner and returns every function
// definition site. The walk is structural: only function_definition nodes
// produce sites, regardless of surrounding text.
func Extract(f *pyparse.File) []*FunctionSite {
	var out []*FunctionSite
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Kind() == "function_definition" {
			if site := extractSite(f, node); site != nil {
				out = append(out, site)
			}
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}
	walk(f.Root())
	return out
}

func extractSite(f *pyparse.File, node *sitter.Node) *FunctionSite {
	nameNode := node.ChildByFieldName("name")
	paramsNode := node.ChildByFieldName("parameters")
	bodyNode := node.ChildByFieldName("body")
	if nameNode == nil || paramsNode == nil || bodyNode == nil {
		return nil
	}

	site := &FunctionSite{
		Name:       f.Text(nameNode),
		Line:       f.Line(node),
		IsMethod:   isMethod(node),
		Decorators: plainDecorators(f, node),
		DefIndent:  pyparse.Indentation(f.Source, node.StartByte()),
		BodyStart:  bodyNode.StartByte(),
		ParamsSpan: [2]uint{paramsNode.StartByte(), paramsNode.EndByte()},
	}
	site.QualName = qualifiedName(f, node)
	site.BodyInline = bodyNode.StartPosition().Row == paramsNode.EndPosition().Row

	// Locate the ')' and the body ':' among the definition's own tokens.
	for i := uint(0); i < node.ChildCount(); i++ {
		ch := node.Child(i)
		switch ch.Kind() {
		case ":":
			site.ColonPos = ch.StartByte()
		}
	}
	for i := paramsNode.ChildCount(); i > 0; i-- {
		ch := paramsNode.Child(i - 1)
		if ch.Kind() == ")" {
			site.RParPos = ch.StartByte()
			break
		}
	}

	if node.ChildByFieldName("return_type") != nil {
		site.Annotated = true
	}
	site.Params = extractParams(f, paramsNode, site)

	// A '# type:' comment inside the parameter list, on the header line, or
	// as the first body line counts as an existing annotation.
	if !site.Annotated {
		header := f.Source[site.ParamsSpan[0]:pyparse.LineEnd(f.Source, site.ColonPos)]
		firstBodyLine := f.Source[site.BodyStart:pyparse.LineEnd(f.Source, site.BodyStart)]
		between := f.Source[site.ColonPos:site.BodyStart]
		if hasTypeComment(header) || hasTypeComment(firstBodyLine) || hasTypeComment(between) {
			site.Annotated = true
		}
	}

	site.HasReturnExpr = hasReturnExpr(bodyNode)
	site.HasYield = hasYield(bodyNode)
	site.Docstring = docstring(f, bodyNode)
	if site.IsMethod {
		if classBody := enclosingClassBody(node); classBody != nil {
			site.ClassDocstring = docstring(f, classBody)
		}
	}
	return site
}

func hasTypeComment(text []byte) bool {
	s := string(text)
	for {
		i := strings.Index(s, "#")
		if i < 0 {
			return false
		}
		rest := strings.TrimLeft(s[i+1:], " \t")
		if strings.HasPrefix(rest, "type:") {
			return true
		}
		s = s[i+1:]
	}
}

func extractParams(f *pyparse.File, paramsNode *sitter.Node, site *FunctionSite) []Param {
	var params []Param
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		elem := paramsNode.NamedChild(i)
		switch elem.Kind() {
		case "identifier":
			params = append(params, Param{
				Name:      f.Text(elem),
				NameEnd:   elem.EndByte(),
				ElemStart: elem.StartByte(),
				ElemEnd:   elem.EndByte(),
			})
		case "default_parameter":
			nameNode := elem.ChildByFieldName("name")
			valueNode := elem.ChildByFieldName("value")
			if nameNode == nil || nameNode.Kind() != "identifier" {
				// pattern defaults (py2 tuple args) are not annotatable
				site.Annotated = true
				continue
			}
			p := Param{
				Name:       f.Text(nameNode),
				HasDefault: true,
				NameEnd:    nameNode.EndByte(),
				ElemStart:  elem.StartByte(),
				ElemEnd:    elem.EndByte(),
			}
			if valueNode != nil {
				p.DefaultKind = valueNode.Kind()
				p.DefaultText = f.Text(valueNode)
			}
			for j := uint(0); j < elem.ChildCount(); j++ {
				if elem.Child(j).Kind() == "=" {
					p.EqPos = elem.Child(j).StartByte()
					break
				}
			}
			params = append(params, p)
		case "list_splat_pattern", "dictionary_splat_pattern":
			p := Param{
				Star:       elem.Kind() == "list_splat_pattern",
				DoubleStar: elem.Kind() == "dictionary_splat_pattern",
				ElemStart:  elem.StartByte(),
				ElemEnd:    elem.EndByte(),
			}
			for j := uint(0); j < elem.NamedChildCount(); j++ {
				if inner := elem.NamedChild(j); inner.Kind() == "identifier" {
					p.Name = f.Text(inner)
					p.NameEnd = inner.EndByte()
					break
				}
			}
			params = append(params, p)
		case "typed_parameter", "typed_default_parameter":
			site.Annotated = true
		case "keyword_separator", "positional_separator":
			// bare '*' and '/' take no annotation and are not counted
		}
	}
	return params
}

// plainDecorators returns the names of simple, unparameterized decorators.
// Parameterized or attribute decorators are left out, so classmethod and
// staticmethod applied through indirection are not recognized.
func plainDecorators(f *pyparse.File, node *sitter.Node) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var decs []string
	for i := uint(0); i < parent.ChildCount(); i++ {
		ch := parent.Child(i)
		if ch.Kind() != "decorator" {
			continue
		}
		for j := uint(0); j < ch.NamedChildCount(); j++ {
			if expr := ch.NamedChild(j); expr.Kind() == "identifier" {
				decs = append(decs, f.Text(expr))
			}
		}
	}
	return decs
}

func qualifiedName(f *pyparse.File, node *sitter.Node) string {
	var parts []string
	for n := node; n != nil; n = n.Parent() {
		kind := n.Kind()
		if kind == "function_definition" || kind == "class_definition" {
			if name := n.ChildByFieldName("name"); name != nil {
				parts = append(parts, f.Text(name))
			}
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func isMethod(node *sitter.Node) bool {
	for n := node.Parent(); n != nil; n = n.Parent() {
		switch n.Kind() {
		case "class_definition":
			return true
		case "function_definition":
			return false
		}
	}
	return false
}

func enclosingClassBody(node *sitter.Node) *sitter.Node {
	for n := node.Parent(); n != nil; n = n.Parent() {
		if n.Kind() == "class_definition" {
			return n.ChildByFieldName("body")
		}
	}
	return nil
}

// hasReturnExpr looks for 'return <expr>' below node without descending
// into nested function or class definitions.
func hasReturnExpr(node *sitter.Node) bool {
	if node.Kind() == "return_statement" && node.NamedChildCount() > 0 {
		return true
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		ch := node.Child(i)
		switch ch.Kind() {
		case "function_definition", "class_definition":
			continue
		}
		if hasReturnExpr(ch) {
			return true
		}
	}
	return false
}

func hasYield(node *sitter.Node) bool {
	if node.Kind() == "yield" {
		return true
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		ch := node.Child(i)
		switch ch.Kind() {
		case "function_definition", "class_definition":
			continue
		}
		if hasYield(ch) {
			return true
		}
	}
	return false
}

// docstring returns the unquoted leading string of a block, or "".
func docstring(f *pyparse.File, body *sitter.Node) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Kind() == "comment" {
		// skip leading comments
		for i := uint(1); i < body.NamedChildCount(); i++ {
			if body.NamedChild(i).Kind() != "comment" {
				first = body.NamedChild(i)
				break
			}
		}
	}
	if first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return ""
	}
	var content strings.Builder
	for i := uint(0); i < str.NamedChildCount(); i++ {
		if ch := str.NamedChild(i); ch.Kind() == "string_content" {
			content.WriteString(f.Text(ch))
		}
	}
	return content.String()
}
