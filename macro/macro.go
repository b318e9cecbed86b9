// Package macro implements the VM assembler's textual macro preprocessor.
// It runs over raw source lines before lexing, collecting .macro/.endm
// definitions and substituting invocations with their expanded bodies.
// Substitution is purely textual: it does not re-lex its output, so an
// argument such as "[r1+4]" is spliced into the body literally. No hygiene
// is provided, matching the semantics the rest of the toolchain assumes.
package macro

import (
	"fmt"
	"strconv"
	"strings"
)

var errMacro = fmt.Errorf("macro error")

// definition holds one .macro/.endm block: a name, its required argument
// count, and its body lines stored verbatim (with $1..$N placeholders).
type definition struct {
	name  string
	arity int
	body  []string
}

// Expand runs the macro preprocessor over src and returns the expanded
// source text. Definitions are matched in the order encountered; a macro
// is only usable after its closing .endm.
func Expand(src string) (string, error) {
	lines := strings.Split(src, "\n")
	defs := map[string]*definition{}
	out := make([]string, 0, len(lines))

	i := 0
	for i < len(lines) {
		line := lines[i]
		word, rest := firstWord(line)

		switch strings.ToLower(word) {
		case ".macro":
			def, next, err := parseDefinition(lines, i, rest)
			if err != nil {
				return "", err
			}
			defs[def.name] = def
			i = next
			continue

		case ".endm":
			return "", fmt.Errorf("%w: .endm without matching .macro at line %d", errMacro, i+1)
		}

		if def, args, ok := matchInvocation(line, defs); ok {
			if len(args) != def.arity {
				return "", fmt.Errorf("%w: macro %q expects %d argument(s), got %d at line %d",
					errMacro, def.name, def.arity, len(args), i+1)
			}
			for _, bodyLine := range def.body {
				out = append(out, substitute(bodyLine, args))
			}
			i++
			continue
		}

		out = append(out, line)
		i++
	}

	return strings.Join(out, "\n"), nil
}

// parseDefinition consumes a .macro header at lines[start] plus its body,
// returning the parsed definition and the index of the line after .endm.
func parseDefinition(lines []string, start int, headerRest string) (*definition, int, error) {
	fields := strings.Fields(headerRest)
	if len(fields) != 2 {
		return nil, 0, fmt.Errorf("%w: .macro requires a name and arity at line %d", errMacro, start+1)
	}
	name := fields[0]
	arity, err := strconv.Atoi(fields[1])
	if err != nil || arity < 0 {
		return nil, 0, fmt.Errorf("%w: invalid macro arity %q for %q at line %d", errMacro, fields[1], name, start+1)
	}

	var body []string
	i := start + 1
	for {
		if i >= len(lines) {
			return nil, 0, fmt.Errorf("%w: unterminated .macro %q starting at line %d", errMacro, name, start+1)
		}
		word, _ := firstWord(lines[i])
		switch strings.ToLower(word) {
		case ".endm":
			return &definition{name: name, arity: arity, body: body}, i + 1, nil
		case ".macro":
			return nil, 0, fmt.Errorf("%w: nested .macro %q inside %q at line %d", errMacro, word, name, i+1)
		}
		body = append(body, lines[i])
		i++
	}
}

// firstWord returns the first whitespace-delimited token on line (after
// trimming leading whitespace) and everything that follows it, trimmed.
func firstWord(line string) (word, rest string) {
	trimmed := strings.TrimLeft(line, " \t")
	sp := strings.IndexAny(trimmed, " \t")
	if sp < 0 {
		return trimmed, ""
	}
	return trimmed[:sp], strings.TrimLeft(trimmed[sp:], " \t")
}

// matchInvocation checks whether line invokes one of the known macros,
// returning the matched definition and its split, trimmed argument list.
func matchInvocation(line string, defs map[string]*definition) (*definition, []string, bool) {
	trimmed := strings.TrimSpace(line)
	for name, def := range defs {
		switch {
		case trimmed == name:
			return def, nil, true
		case strings.HasPrefix(trimmed, name+" "), strings.HasPrefix(trimmed, name+"\t"):
			argText := strings.TrimSpace(trimmed[len(name):])
			return def, splitArgs(argText), true
		}
	}
	return nil, nil, false
}

// splitArgs splits s on top-level commas (commas nested inside [...] do
// not split) and trims each resulting argument.
func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(s[start:]))
	return args
}

// substitute replaces every $k placeholder (1-based) in body with the
// corresponding argument's literal text, scanning with an advancing
// cursor so substituted text is never re-scanned for further placeholders.
func substitute(body string, args []string) string {
	var out strings.Builder
	i := 0
	for i < len(body) {
		if body[i] == '$' && i+1 < len(body) && isDigit(body[i+1]) {
			j := i + 1
			for j < len(body) && isDigit(body[j]) {
				j++
			}
			n, _ := strconv.Atoi(body[i+1 : j])
			if n >= 1 && n <= len(args) {
				out.WriteString(args[n-1])
				i = j
				continue
			}
		}
		out.WriteByte(body[i])
		i++
	}
	return out.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
