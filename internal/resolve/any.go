package resolve

import (
	"context"
	"strings"

	"github.com/chadrik/typewriter/internal/sites"
)

// AnyResolver is the blanket fallback: every slot gets Any, refined by the
// type of a literal default value when one is present in the source.
type AnyResolver struct{}

func (AnyResolver) Name() string { return "any" }

func (AnyResolver) Resolve(_ context.Context, site *sites.FunctionSite, _ string) (*Signature, error) {
	ret := "Any"
	if site.Name == "__init__" || !site.HasReturnExpr {
		ret = "None"
	}

	var args []string
	for i, p := range site.Params {
		if i == 0 && site.IsMethod && !site.HasDecorator("staticmethod") {
			// Skip the first argument when it is named 'self', and always
			// skip the first argument of a classmethod.
			if p.Name == "self" || site.HasDecorator("classmethod") {
				continue
			}
		}
		args = append(args, sigil(p)+literalType(p))
	}
	return &Signature{ArgTypes: args, ReturnType: ret}, nil
}

// literalType sniffs the type of a default value literal. Complex and
// bytes literals are deliberately not special-cased.
func literalType(p sites.Param) string {
	if !p.HasDefault {
		return "Any"
	}
	switch p.DefaultKind {
	case "integer":
		return "int"
	case "float":
		return "float"
	case "string":
		if strings.HasPrefix(p.DefaultText, "u") || strings.HasPrefix(p.DefaultText, "U") {
			return "unicode"
		}
		return "str"
	case "true", "false":
		return "bool"
	}
	return "Any"
}
