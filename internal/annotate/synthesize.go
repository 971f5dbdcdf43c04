package annotate

import (
	"errors"
	"strings"

	"github.com/chadrik/typewriter/internal/edit"
	"github.com/chadrik/typewriter/internal/pyparse"
	"github.com/chadrik/typewriter/internal/sites"
)

// Annotation styles and type-comment layouts accepted in configuration.
const (
	StyleInline  = "py3"
	StyleComment = "py2"

	CommentAuto   = "auto"
	CommentSingle = "single"
	CommentMulti  = "multi"
)

// ErrLayout means the function's source layout leaves no room for a type
// comment. The site is skipped with a diagnostic.
var ErrLayout = errors.New("existing layout leaves no room for a type comment")

// Inline produces the edits for annotating a site with function annotations.
// args may be one shorter than the declared parameter list, in which case
// the leading receiver stays untyped.
func Inline(f *pyparse.File, site *sites.FunctionSite, args []string, ret string) []edit.Edit {
	var edits []edit.Edit
	pad := len(site.Params) - len(args)
	for i, p := range site.Params {
		if i < pad {
			continue
		}
		typ := strings.TrimLeft(args[i-pad], "*")
		edits = append(edits, edit.Insert(p.NameEnd, ": "+typ))
		if p.EqPos > 0 {
			// PEP 8 wants spaces around '=' once the parameter is annotated.
			if f.Source[p.EqPos-1] != ' ' {
				edits = append(edits, edit.Insert(p.EqPos, " "))
			}
			if int(p.EqPos)+1 < len(f.Source) && f.Source[p.EqPos+1] != ' ' {
				edits = append(edits, edit.Insert(p.EqPos+1, " "))
			}
		}
	}
	edits = append(edits, edit.Insert(site.RParPos+1, " -> "+ret))
	return edits
}

// Comment produces the edits for annotating a site with a type comment.
// Argument sigils are kept verbatim. The long layout spreads per-argument
// comments over the parameter list and degrades the summary to '(...)';
// it is chosen when style forces it or, under CommentAuto, when the single
// line would grow unwieldy.
func Comment(f *pyparse.File, site *sites.FunctionSite, args []string, ret, style string) ([]edit.Edit, error) {
	short := "(" + strings.Join(args, ", ") + ") -> " + ret
	degen := "(...) -> " + ret

	long := false
	switch style {
	case CommentMulti:
		long = len(args) > 0
	case CommentAuto:
		long = (len(short) > 64 || len(args) > 5) && len(short) > len(degen)
	}
	annot := short
	if long {
		annot = degen
	}

	var edits []edit.Edit
	if site.BodyInline {
		// One-line bodies move to the next line to make room.
		span := f.Source[site.ColonPos+1 : site.BodyStart]
		if strings.TrimSpace(string(span)) != "" {
			return nil, ErrLayout
		}
		indent := site.DefIndent + "    "
		edits = append(edits, edit.Replace(site.ColonPos+1, site.BodyStart,
			"\n"+indent+"# type: "+annot+"\n"+indent))
	} else {
		at := pyparse.NextLineStart(f.Source, site.ColonPos)
		indent := pyparse.Indentation(f.Source, site.BodyStart)
		edits = append(edits, edit.Insert(at, indent+"# type: "+annot+"\n"))
	}

	if long {
		le, err := longForm(f, site, args)
		if err != nil {
			return nil, err
		}
		edits = append(edits, le...)
	}
	return edits, nil
}

// longForm attaches one '# type:' comment per declared parameter, each on
// its own line, aligned to the column of the first parameter. Existing
// trailing comments in the list are kept after the new ones. An untyped
// receiver slot still gets its own line, just without a comment.
func longForm(f *pyparse.File, site *sites.FunctionSite, args []string) ([]edit.Edit, error) {
	params := site.Params
	if len(params) == 0 {
		return nil, nil
	}
	src := f.Source
	pad := len(params) - len(args)
	col := params[0].ElemStart - pyparse.LineStart(src, params[0].ElemStart)
	indent := strings.Repeat(" ", int(col))

	var edits []edit.Edit
	for i, p := range params {
		typ := ""
		if i >= pad {
			typ = args[i-pad]
		}
		stop := site.RParPos
		if i+1 < len(params) {
			stop = params[i+1].ElemStart
		}

		spanStart := p.ElemEnd
		prefix := ""
		if commaPos, ok := commaAfter(src, p.ElemEnd, stop); ok {
			spanStart = commaPos + 1
		} else if i+1 < len(params) {
			return nil, ErrLayout
		} else if !p.Star && !p.DoubleStar {
			// a trailing comma after *args or **kwargs is a syntax error
			prefix = ","
		}

		spanEnd, old := nextToken(src, spanStart, stop)
		if i+1 == len(params) {
			spanEnd = site.RParPos
		}

		comment := ""
		if typ != "" {
			comment = "  # type: " + typ
		}
		if old != "" {
			comment += "  " + old
		}
		edits = append(edits, edit.Replace(spanStart, spanEnd, prefix+comment+"\n"+indent))
	}
	return edits, nil
}

func commaAfter(src []byte, from, to uint) (uint, bool) {
	for i := from; i < to; i++ {
		if src[i] == ',' {
			return i, true
		}
	}
	return 0, false
}

// nextToken skips whitespace, line continuations and '#' comments in
// src[from:to], returning where the next real token starts together with
// the comment text it passed over.
func nextToken(src []byte, from, to uint) (uint, string) {
	var comments []string
	i := from
	for i < to {
		switch src[i] {
		case ' ', '\t', '\r', '\n', '\\':
			i++
		case '#':
			j := i
			for j < to && src[j] != '\n' {
				j++
			}
			comments = append(comments, strings.TrimRight(string(src[i:j]), " \t"))
			i = j
		default:
			return i, strings.Join(comments, "  ")
		}
	}
	return to, strings.Join(comments, "  ")
}
