package resolve

import (
	"context"
	"strings"

	"github.com/chadrik/typewriter/internal/docs"
	"github.com/chadrik/typewriter/internal/sites"
)

// specialMethodReturn pins the return type of methods whose contract fixes
// it regardless of what the docstring says.
var specialMethodReturn = map[string]string{
	"__init__": "None",
}

// DocResolver derives signatures from documented parameter types. For an
// undocumented __init__ it falls back to the enclosing class docstring.
type DocResolver struct {
	Format            string
	DefaultReturnType string
}

func NewDocResolver(format, defaultReturnType string) *DocResolver {
	if defaultReturnType == "" {
		defaultReturnType = "Any"
	}
	return &DocResolver{Format: format, DefaultReturnType: defaultReturnType}
}

func (d *DocResolver) Name() string { return "docstring" }

func (d *DocResolver) Resolve(_ context.Context, site *sites.FunctionSite, _ string) (*Signature, error) {
	doc := site.Docstring
	if doc == "" && site.Name == "__init__" {
		doc = site.ClassDocstring
	}
	if doc == "" {
		return nil, nil
	}

	parsed, err := docs.Parse(doc, d.Format)
	if err != nil {
		return nil, err
	}
	if parsed.Empty() {
		return nil, nil
	}

	ret := parsed.Return
	if ret == "" {
		if site.IsMethod && specialMethodReturn[site.Name] != "" {
			ret = specialMethodReturn[site.Name]
		} else {
			ret = d.DefaultReturnType
		}
	}

	var args []string
	for i, p := range site.Params {
		typ := parsed.Params[p.Name]
		if typ == "" && i == 0 && site.IsMethod && p.Receiverish() {
			// pep484 allows omitting the receiver
			continue
		}
		if typ == "" {
			typ = "Any"
		}
		args = append(args, sigil(p)+strings.TrimLeft(typ, "*"))
	}
	return &Signature{ArgTypes: args, ReturnType: ret}, nil
}

func sigil(p sites.Param) string {
	switch {
	case p.DoubleStar:
		return "**"
	case p.Star:
		return "*"
	}
	return ""
}
