// Package docs extracts parameter and return types from Python docstrings.
// Three conventions are understood: reST field lists, Google-style sections,
// and numpy-style sections. Types are treated as opaque strings.
package docs

import (
	"fmt"
	"regexp"
	"strings"
)

// ParsedDoc is the name→type mapping recovered from one docstring, plus an
// optional return type. Missing entries stay absent rather than defaulted;
// defaults are the caller's policy.
type ParsedDoc struct {
	Params map[string]string
	Return string
}

// Empty reports whether the docstring documented no types at all.
func (d ParsedDoc) Empty() bool {
	return len(d.Params) == 0 && d.Return == ""
}

const (
	FormatRest   = "rest"
	FormatGoogle = "google"
	FormatNumpy  = "numpy"
	FormatAuto   = "auto"
	FormatOff    = "off"
)

// Formats lists the accepted --doc-format values.
func Formats() []string {
	return []string{FormatAuto, FormatGoogle, FormatNumpy, FormatOff, FormatRest}
}

// Parse extracts types from a docstring using the named format. With
// FormatAuto the format is sniffed per docstring.
func Parse(doc, format string) (ParsedDoc, error) {
	switch format {
	case FormatRest:
		return parseRest(doc), nil
	case FormatGoogle:
		return parseGoogle(doc), nil
	case FormatNumpy:
		return parseNumpy(doc), nil
	case FormatAuto:
		return Parse(doc, sniffFormat(doc))
	case FormatOff, "":
		return ParsedDoc{}, nil
	default:
		return ParsedDoc{}, fmt.Errorf("unknown docstring format %q", format)
	}
}

func sniffFormat(doc string) string {
	switch {
	case restField.MatchString(doc):
		return FormatRest
	case numpyHeading.MatchString(doc):
		return FormatNumpy
	default:
		return FormatGoogle
	}
}

var (
	restField    = regexp.MustCompile(`(?m)^\s*:(param|type|rtype|returns?)\b`)
	restParam    = regexp.MustCompile(`^:param\s+(?:([^\s:]+)\s+)?([A-Za-z_][\w]*)\s*:`)
	restType     = regexp.MustCompile(`^:type\s+([A-Za-z_][\w]*)\s*:\s*(.+?)\s*$`)
	restRtype    = regexp.MustCompile(`^:rtype\s*:\s*(.+?)\s*$`)
	numpyHeading = regexp.MustCompile(`(?m)^\s*(Parameters|Returns|Yields)\s*\n\s*-{3,}\s*$`)
	googleArg    = regexp.MustCompile(`^([*]{0,2}[A-Za-z_][\w]*)\s*(?:\(([^)]+)\))?\s*:`)
	numpyParam   = regexp.MustCompile(`^([*]{0,2}[A-Za-z_][\w]*)\s*:\s*(.*?)\s*$`)
)

func parseRest(doc string) ParsedDoc {
	out := ParsedDoc{Params: map[string]string{}}
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if m := restType.FindStringSubmatch(line); m != nil {
			out.Params[m[1]] = cleanType(m[2])
		} else if m := restParam.FindStringSubmatch(line); m != nil && m[1] != "" {
			// ':param int x: ...' embeds the type before the name
			if _, seen := out.Params[m[2]]; !seen {
				out.Params[m[2]] = cleanType(m[1])
			}
		} else if m := restRtype.FindStringSubmatch(line); m != nil {
			out.Return = cleanType(m[1])
		}
	}
	return out
}

func parseGoogle(doc string) ParsedDoc {
	out := ParsedDoc{Params: map[string]string{}}
	section := ""
	sectionIndent := -1
	for _, raw := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(raw)
		switch trimmed {
		case "Args:", "Arguments:", "Parameters:":
			section = "args"
			sectionIndent = -1
			continue
		case "Returns:", "Yields:":
			section = "returns"
			sectionIndent = -1
			continue
		case "Raises:", "Examples:", "Example:", "Attributes:", "Note:", "Notes:":
			section = ""
			continue
		}
		if section == "" || trimmed == "" {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		if sectionIndent == -1 {
			sectionIndent = indent
		}
		if indent > sectionIndent {
			continue // continuation of the previous entry
		}
		switch section {
		case "args":
			if m := googleArg.FindStringSubmatch(trimmed); m != nil && m[2] != "" {
				out.Params[strings.TrimLeft(m[1], "*")] = cleanType(m[2])
			}
		case "returns":
			if out.Return == "" {
				if i := strings.Index(trimmed, ":"); i > 0 {
					out.Return = cleanType(trimmed[:i])
				} else {
					out.Return = cleanType(trimmed)
				}
			}
		}
	}
	return out
}

func parseNumpy(doc string) ParsedDoc {
	out := ParsedDoc{Params: map[string]string{}}
	lines := strings.Split(doc, "\n")
	section := ""
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if i+1 < len(lines) && isDashRule(lines[i+1]) {
			switch trimmed {
			case "Parameters", "Other Parameters":
				section = "params"
			case "Returns", "Yields":
				section = "returns"
			default:
				section = ""
			}
			i++ // skip the rule
			continue
		}
		if section == "" || trimmed == "" {
			continue
		}
		switch section {
		case "params":
			if m := numpyParam.FindStringSubmatch(trimmed); m != nil && m[2] != "" {
				out.Params[strings.TrimLeft(m[1], "*")] = cleanType(m[2])
			}
		case "returns":
			// 'name : type' or a bare type on its own line
			if out.Return == "" {
				if m := numpyParam.FindStringSubmatch(trimmed); m != nil && m[2] != "" {
					out.Return = cleanType(m[2])
				} else if !strings.HasPrefix(trimmed, " ") {
					out.Return = cleanType(trimmed)
				}
			}
		}
	}
	return out
}

func isDashRule(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= 3 && strings.Trim(t, "-") == ""
}

// cleanType strips decorations commonly attached to documented types,
// such as ', optional' qualifiers and surrounding backticks.
func cleanType(t string) string {
	t = strings.TrimSpace(t)
	t = strings.Trim(t, "`")
	if i := strings.Index(t, ", optional"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
