package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/chadrik/typewriter/internal/observability"
	"github.com/chadrik/typewriter/internal/sites"
	"github.com/chadrik/typewriter/internal/util"
)

// NoSuggestionExit is the exit status by which the external command signals
// "no suggestion for this site". dmypy suggest uses 2.
const NoSuggestionExit = 2

var typeVarArtifact = regexp.MustCompile("`-?\\d+")

// CommandResolver obtains signatures by running an external command per
// site. The command template may reference {filename}, {lineno} and
// {funcname}, and is expected to print a JSON array of trace records.
type CommandResolver struct {
	template string
	limiter  *util.Limiter
	log      *slog.Logger
}

func NewCommandResolver(template string, limiter *util.Limiter, log *slog.Logger) *CommandResolver {
	if log == nil {
		log = slog.Default()
	}
	return &CommandResolver{template: template, limiter: limiter, log: log}
}

func (c *CommandResolver) Name() string { return "command" }

func (c *CommandResolver) Resolve(ctx context.Context, site *sites.FunctionSite, path string) (*Signature, error) {
	argv, err := splitCommand(c.buildCommand(site, path))
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command template")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, 1); err != nil {
			return nil, err
		}
	}

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == NoSuggestionExit {
				return nil, nil
			}
			observability.SubprocessFailures.Inc()
			return nil, fmt.Errorf("line %d: %q exited %d: %s",
				site.Line, argv, exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		}
		observability.SubprocessFailures.Inc()
		return nil, fmt.Errorf("line %d: failed calling %q: %w", site.Line, argv, err)
	}

	var records []TraceRecord
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("line %d: bad output from %q: %w", site.Line, argv, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	sig := records[0].Sig
	for i, arg := range sig.ArgTypes {
		sig.ArgTypes[i] = cleanSuggestion(arg)
	}
	sig.ReturnType = cleanSuggestion(sig.ReturnType)
	return &sig, nil
}

func (c *CommandResolver) buildCommand(site *sites.FunctionSite, path string) string {
	return strings.NewReplacer(
		"{filename}", path,
		"{lineno}", strconv.Itoa(site.Line),
		"{funcname}", site.QualName,
	).Replace(c.template)
}

// cleanSuggestion strips type-variable artifacts like "T`1" from suggested
// types and widens the degenerate "Tuple[]" produced for `return ()`.
func cleanSuggestion(s string) string {
	if s == "Tuple[]" {
		return "Tuple[Any, ...]"
	}
	return typeVarArtifact.ReplaceAllString(s, "")
}

// splitCommand splits a command line into argv, honoring single and double
// quotes but no other shell syntax.
func splitCommand(line string) ([]string, error) {
	var argv []string
	var cur strings.Builder
	var quote byte
	inWord := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inWord = true
		case ch == ' ' || ch == '\t':
			if inWord {
				argv = append(argv, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(ch)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unbalanced quote in command %q", line)
	}
	if inWord {
		argv = append(argv, cur.String())
	}
	return argv, nil
}
