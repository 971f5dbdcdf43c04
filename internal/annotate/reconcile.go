package annotate

import (
	"fmt"
	"strings"

	"github.com/chadrik/typewriter/internal/resolve"
	"github.com/chadrik/typewriter/internal/sites"
)

// ArityError means the resolved signature cannot be made to agree with the
// declared parameter list. The site is skipped, never the file.
type ArityError struct {
	Declared int
	Resolved int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("source has %d args, annotation has %d -- skipping", e.Declared, e.Resolved)
}

// Reconcile aligns a resolved signature against the site's actual
// parameter list. Trace collectors don't always record *args/**kwargs or
// the implicit receiver, so those slots are synthesized here; after
// adjustment the counts must agree exactly. The returned list may omit the
// receiver of a method, in which case it is one shorter than the declared
// list and the synthesizer aligns it from the right.
func Reconcile(site *sites.FunctionSite, sig *resolve.Signature) ([]string, string, error) {
	args := make([]string, len(sig.ArgTypes))
	copy(args, sig.ArgTypes)
	ret := sig.ReturnType

	count := len(site.Params)
	star, doubleStar := false, false
	for _, p := range site.Params {
		if p.Star {
			star = true
		}
		if p.DoubleStar {
			doubleStar = true
		}
	}
	for _, a := range args {
		if strings.HasPrefix(a, "**") {
			doubleStar = false
		} else if strings.HasPrefix(a, "*") {
			star = false
		}
	}
	if star {
		args = append(args, "*Any")
	}
	if doubleStar {
		args = append(args, "**Any")
	}

	// Some providers omit the first arg iff it's named 'self' or 'cls',
	// even when the function is not a method.
	if count > 0 && site.Params[0].Receiverish() && len(args) == count-1 {
		if site.IsMethod {
			count-- // leave the receiver untyped
		} else {
			args = append([]string{"Any"}, args...)
		}
	}

	if len(args) != count {
		return nil, "", &ArityError{Declared: count, Resolved: len(args)}
	}

	// A recorded None return is unreliable when the body visibly returns a
	// value; widen instead of asserting something mypy would reject.
	if ret == "None" && site.HasReturnExpr {
		ret = "Optional[Any]"
	}
	if site.HasYield && ret != "Iterator" && !strings.HasPrefix(ret, "Iterator[") {
		if strings.HasPrefix(ret, "Optional[") && strings.HasSuffix(ret, "]") {
			ret = ret[len("Optional[") : len(ret)-1]
		}
		ret = "Iterator[" + ret + "]"
	}

	return args, ret, nil
}
