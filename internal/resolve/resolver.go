// Package resolve answers "what is the signature of this function?" from
// external sources of type information. Providers implement one uniform
// interface and are consulted in a fixed priority order; no provider ever
// infers types from the code itself.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chadrik/typewriter/internal/sites"
)

// Signature is the externally recorded shape of one function: ordered
// argument type strings (a leading '*' or '**' marks variadic slots) and a
// return type. Types are opaque strings here.
type Signature struct {
	ArgTypes   []string `json:"arg_types"`
	ReturnType string   `json:"return_type"`
}

// Resolver is one source of signatures. A (nil, nil) return means "no
// suggestion for this site"; errors are degraded to no-match by the chain
// and never abort a file.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, site *sites.FunctionSite, path string) (*Signature, error)
}

// Chain tries each resolver in order and returns the first signature
// produced, together with the name of the provider that produced it.
type Chain struct {
	resolvers []Resolver
	log       *slog.Logger
}

func NewChain(log *slog.Logger, resolvers ...Resolver) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{resolvers: resolvers, log: log}
}

func (c *Chain) Empty() bool {
	return len(c.resolvers) == 0
}

func (c *Chain) Resolve(ctx context.Context, site *sites.FunctionSite, path string) (*Signature, string) {
	for _, r := range c.resolvers {
		sig, err := r.Resolve(ctx, site, path)
		if err != nil {
			c.log.Warn("resolver failed, treating as no match",
				"provider", r.Name(), "path", path, "line", site.Line, "func", site.QualName, "error", err)
			continue
		}
		if sig != nil {
			return sig, r.Name()
		}
	}
	return nil, ""
}

// parseTypeComment converts a legacy combined type comment of the form
// "(int, str) -> bool" into a Signature.
func parseTypeComment(comment string) (*Signature, bool) {
	s := strings.TrimSpace(comment)
	arrow := strings.LastIndex(s, "->")
	if !strings.HasPrefix(s, "(") || arrow < 0 {
		return nil, false
	}
	argPart := strings.TrimSpace(s[:arrow])
	ret := strings.TrimSpace(s[arrow+2:])
	argPart = strings.TrimPrefix(argPart, "(")
	argPart = strings.TrimSuffix(argPart, ")")
	return &Signature{ArgTypes: splitTopLevel(argPart), ReturnType: ret}, true
}

// splitTopLevel splits a comma separated list, ignoring commas nested in
// brackets, so "Dict[str, int], List[int]" yields two entries.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}
