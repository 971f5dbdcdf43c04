// Package imports tracks the import statements of one Python file and
// accumulates the imports required by inserted annotations. New imports for
// modules the file does not already import unconditionally are placed in an
// `if TYPE_CHECKING:` block so a rewrite can never introduce an import cycle
// at run time.
package imports

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/chadrik/typewriter/internal/edit"
	"github.com/chadrik/typewriter/internal/observability"
	"github.com/chadrik/typewriter/internal/pyparse"
)

// Requirement is one import a rewrite needs: `from Module import Entry`,
// either at top level or deferred into the TYPE_CHECKING block.
type Requirement struct {
	Module   string
	Entry    string
	Deferred bool
}

type bindingKey struct {
	module string
	entry  string
}

// FileImports is the per-file import table. Bindings are computed once from
// the unmodified tree and are immutable for the duration of the rewrite;
// requirements accumulate until Flush.
type FileImports struct {
	file *pyparse.File

	// (module, entry) -> local binding name; plain `import mod [as m]`
	// statements are recorded under ("", mod).
	bindings map[bindingKey]string

	// modules with an unconditional top-level import
	topLevel map[string]bool

	safeModules map[string]bool

	insertPos uint // bottom of the leading import block
	tcFound   bool
	tcInsert  uint // append position inside an existing TYPE_CHECKING block
	tcIndent  string

	reqs map[bindingKey]Requirement
}

// SafeModules are always imported at top level; importing them can never
// introduce a project-internal cycle.
var defaultSafeModules = map[string]bool{"typing": true}

// Scan builds the import table for a parsed file.
func Scan(f *pyparse.File) *FileImports {
	fi := &FileImports{
		file:        f,
		bindings:    make(map[bindingKey]string),
		topLevel:    make(map[string]bool),
		safeModules: defaultSafeModules,
		reqs:        make(map[bindingKey]Requirement),
	}
	fi.scanTopLevel()
	return fi
}

func (fi *FileImports) scanTopLevel() {
	root := fi.file.Root()
	src := fi.file.Source

	firstImportSeen := false
	blockDone := false
	var docEnd uint

	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "import_statement", "import_from_statement", "future_import_statement":
			fi.recordImport(stmt, false)
			if !blockDone {
				firstImportSeen = true
				fi.insertPos = lineAfter(src, stmt.EndByte())
			}
		case "expression_statement":
			if !firstImportSeen && docEnd == 0 && stmt.NamedChildCount() > 0 && stmt.NamedChild(0).Kind() == "string" {
				docEnd = lineAfter(src, stmt.EndByte())
			}
			if firstImportSeen {
				blockDone = true
			}
		case "comment":
			// comments do not end the import block
		case "if_statement":
			if fi.scanTypeCheckingBlock(stmt) {
				continue
			}
			if firstImportSeen {
				blockDone = true
			}
		default:
			if firstImportSeen {
				blockDone = true
			}
		}
	}

	if !firstImportSeen {
		fi.insertPos = docEnd
	}
}

// scanTypeCheckingBlock recognizes a top-level `if TYPE_CHECKING:` guard,
// remembering where to append and which names it already imports.
func (fi *FileImports) scanTypeCheckingBlock(stmt *sitter.Node) bool {
	cond := stmt.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	condText := strings.TrimSpace(fi.file.Text(cond))
	if condText != "TYPE_CHECKING" && condText != "typing.TYPE_CHECKING" {
		return false
	}
	body := stmt.ChildByFieldName("consequence")
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	fi.tcFound = true
	first := body.NamedChild(0)
	fi.tcIndent = pyparse.Indentation(fi.file.Source, first.StartByte())
	last := body.NamedChild(body.NamedChildCount() - 1)
	fi.tcInsert = lineAfter(fi.file.Source, last.EndByte())

	// Names imported under the guard are in scope for annotations, so they
	// count as bindings for dedup purposes (but not as unconditional).
	for i := uint(0); i < body.NamedChildCount(); i++ {
		ch := body.NamedChild(i)
		switch ch.Kind() {
		case "import_statement", "import_from_statement":
			fi.recordImport(ch, true)
		}
	}
	return true
}

func (fi *FileImports) recordImport(stmt *sitter.Node, deferred bool) {
	f := fi.file
	switch stmt.Kind() {
	case "import_statement":
		for i := uint(0); i < stmt.NamedChildCount(); i++ {
			ch := stmt.NamedChild(i)
			switch ch.Kind() {
			case "dotted_name":
				mod := f.Text(ch)
				fi.addModuleBinding(mod, mod, deferred)
			case "aliased_import":
				name := ch.ChildByFieldName("name")
				alias := ch.ChildByFieldName("alias")
				if name != nil && alias != nil {
					fi.addModuleBinding(f.Text(name), f.Text(alias), deferred)
				}
			}
		}
	case "import_from_statement", "future_import_statement":
		modNode := stmt.ChildByFieldName("module_name")
		if modNode == nil {
			return
		}
		mod := strings.TrimSpace(f.Text(modNode))
		if !deferred {
			fi.topLevel[mod] = true
		}
		for i := uint(0); i < stmt.NamedChildCount(); i++ {
			ch := stmt.NamedChild(i)
			if ch.StartByte() <= modNode.StartByte() {
				continue
			}
			switch ch.Kind() {
			case "dotted_name", "identifier":
				entry := f.Text(ch)
				fi.bindings[bindingKey{mod, entry}] = entry
			case "aliased_import":
				name := ch.ChildByFieldName("name")
				alias := ch.ChildByFieldName("alias")
				if name != nil && alias != nil {
					fi.bindings[bindingKey{mod, f.Text(name)}] = f.Text(alias)
				}
			}
		}
	}
}

func (fi *FileImports) addModuleBinding(module, binding string, deferred bool) {
	fi.bindings[bindingKey{"", module}] = binding
	if pkg, last, ok := rsplitDot(module); ok {
		fi.bindings[bindingKey{pkg, last}] = binding
	}
	if !deferred {
		fi.topLevel[module] = true
	}
}

func rsplitDot(s string) (string, string, bool) {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return "", s, false
	}
	return s[:i], s[i+1:], true
}

// ResolveBinding returns the local name under which (module, entry) is
// already reachable, or "" when a new import would be needed. An aliased
// import resolves to its alias; `import pkg.mod` makes entry reachable as
// `pkg.mod.entry`.
func (fi *FileImports) ResolveBinding(module, entry string) string {
	if b, ok := fi.bindings[bindingKey{module, entry}]; ok {
		return b
	}
	if b, ok := fi.bindings[bindingKey{"", module}]; ok {
		return b + "." + entry
	}
	if pkg, last, ok := rsplitDot(module); ok {
		if b, ok := fi.bindings[bindingKey{pkg, last}]; ok {
			return b + "." + entry
		}
	}
	return ""
}

// Request records that the rewrite needs (module, entry). Requests for the
// file's own module are dropped; duplicates collapse. A request against a
// module the file does not already import unconditionally is deferred.
func (fi *FileImports) Request(module, entry string) {
	if module == fi.file.Module {
		return
	}
	deferred := !fi.safeModules[module] && !fi.topLevel[module]
	key := bindingKey{module, entry}
	if existing, ok := fi.reqs[key]; ok {
		// a safe request wins over a deferred one for the same name
		if existing.Deferred && !deferred {
			fi.reqs[key] = Requirement{module, entry, false}
		}
		return
	}
	fi.reqs[key] = Requirement{module, entry, deferred}
}

// Checkpoint snapshots the accumulated requirements. The returned function
// restores the snapshot, discarding anything requested since; it is used to
// roll back when an annotation is resolved but cannot be placed.
func (fi *FileImports) Checkpoint() func() {
	saved := make(map[bindingKey]Requirement, len(fi.reqs))
	for k, v := range fi.reqs {
		saved[k] = v
	}
	return func() { fi.reqs = saved }
}

var typeNameToken = regexp.MustCompile(`[\w.:]+`)

// RewriteTypeString maps every dotted type name inside a type expression to
// its local binding, shortening `pkg.mod.Cls` to `Cls` and recording the
// import requirement for it. Bare names known from typing are requested
// from the typing module when not already bound.
func (fi *FileImports) RewriteTypeString(typeStr string) string {
	return typeNameToken.ReplaceAllStringFunc(typeStr, fi.rewriteToken)
}

func (fi *FileImports) rewriteToken(word string) string {
	if word == "..." || strings.Trim(word, ".") == "" {
		return word
	}
	if !strings.ContainsAny(word, ".:") {
		if typingNames[word] && fi.ResolveBinding("typing", word) == "" {
			fi.Request("typing", word)
		}
		return word
	}

	// With a ':' the module is explicit; otherwise everything up to the
	// last dot is the module.
	var mod, name, toImport string
	if i := strings.IndexByte(word, ':'); i >= 0 {
		mod, name = word[:i], word[i+1:]
		toImport = strings.SplitN(name, ".", 2)[0]
	} else {
		var ok bool
		mod, name, ok = rsplitDot(word)
		if !ok {
			return word
		}
		toImport = name
	}

	if binding := fi.ResolveBinding(mod, toImport); binding != "" {
		return binding + strings.TrimPrefix(name, toImport)
	}
	fi.Request(mod, toImport)
	return name
}

// Flush renders the accumulated requirements as deterministic, sorted
// edits and clears them. Calling Flush with no requirements yields nothing,
// so the operation is idempotent per rewrite pass.
func (fi *FileImports) Flush() []edit.Edit {
	if len(fi.reqs) == 0 {
		return nil
	}

	var safe, deferred []Requirement
	for _, r := range fi.reqs {
		if r.Deferred {
			deferred = append(deferred, r)
		} else {
			safe = append(safe, r)
		}
	}
	sortReqs(safe)
	sortReqs(deferred)

	var edits []edit.Edit
	pos, prefix := fi.insertAnchor()

	var top strings.Builder
	top.WriteString(prefix)
	for _, r := range safe {
		top.WriteString(importLine(r))
	}
	if len(deferred) > 0 {
		if fi.tcFound {
			var block strings.Builder
			for _, r := range deferred {
				block.WriteString(fi.tcIndent)
				block.WriteString(importLine(r))
			}
			edits = append(edits, edit.Insert(fi.tcInsert, block.String()))
		} else {
			if fi.ResolveBinding("typing", "TYPE_CHECKING") == "" {
				top.WriteString("from typing import TYPE_CHECKING\n")
			}
			top.WriteString("if TYPE_CHECKING:\n")
			for _, r := range deferred {
				top.WriteString("    ")
				top.WriteString(importLine(r))
			}
		}
	}
	if s := top.String(); s != prefix {
		edits = append(edits, edit.Insert(pos, s))
	}
	observability.ImportsAdded.WithLabelValues("top_level").Add(float64(len(safe)))
	observability.ImportsAdded.WithLabelValues("deferred").Add(float64(len(deferred)))

	fi.reqs = make(map[bindingKey]Requirement)
	return edits
}

// insertAnchor returns where new top-level imports go, with a leading
// newline when the anchor sits at an unterminated final line.
func (fi *FileImports) insertAnchor() (uint, string) {
	pos := fi.insertPos
	src := fi.file.Source
	if pos > 0 && pos >= uint(len(src)) && len(src) > 0 && src[len(src)-1] != '\n' {
		return uint(len(src)), "\n"
	}
	return pos, ""
}

func importLine(r Requirement) string {
	if r.Module == "" {
		return fmt.Sprintf("import %s\n", r.Entry)
	}
	return fmt.Sprintf("from %s import %s\n", r.Module, r.Entry)
}

func sortReqs(reqs []Requirement) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].Module != reqs[j].Module {
			return reqs[i].Module < reqs[j].Module
		}
		return reqs[i].Entry < reqs[j].Entry
	})
}

func lineAfter(src []byte, pos uint) uint {
	end := pyparse.LineEnd(src, pos)
	if end < uint(len(src)) {
		return end + 1
	}
	return end
}
