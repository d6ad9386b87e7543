// Package rules lints Firestore security rules files against a small policy:
// version pragma, default deny, balanced braces, few unconditional allows and
// no direct writes to protected collections.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	RuleVersion         = "version"
	RuleDefaultDeny     = "default-deny"
	RuleBraces          = "braces"
	RuleUnconditional   = "unconditional-allow"
	RuleProtectedWrites = "protected-write"
)

// Finding is one problem found in a rules file. Line is 1-based.
type Finding struct {
	Line     int      `json:"line"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%d: %s [%s] %s", f.Line, f.Severity, f.Rule, f.Message)
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	versionRe     = regexp.MustCompile(`rules_version\s*=\s*['"]2['"]\s*;`)
	defaultDenyRe = regexp.MustCompile(`match\s+/\{document=\*\*\}\s*\{`)
	denyAllRe     = regexp.MustCompile(`allow\s+(?:read\s*,\s*write|write\s*,\s*read)\s*:\s*if\s+false\s*;`)
	allowRe       = regexp.MustCompile(`\ballow\s+([a-z]+(?:\s*,\s*[a-z]+)*)\s*(?::\s*if\s+([^;]*?))?\s*;`)
	collectionRe  = regexp.MustCompile(`match\s+/([A-Za-z0-9_-]+)/\{[^}]*\}\s*\{`)
)

// writeMethods are the rule methods that modify documents.
var writeMethods = map[string]bool{"write": true, "create": true, "update": true, "delete": true}

// Lint checks src against policy and returns the findings ordered by line.
func Lint(src []byte, policy Policy) []Finding {
	text := string(src)
	noComments := blank(text, false)
	code := blank(text, true)
	lines := newLineIndex(text)

	var findings []Finding

	if !versionRe.MatchString(noComments) {
		findings = append(findings, Finding{
			Line: 1, Rule: RuleVersion, Severity: SeverityError,
			Message: "missing rules_version = '2';",
		})
	}

	findings = append(findings, checkBraces(code, lines)...)
	findings = append(findings, checkDefaultDeny(code, lines)...)
	findings = append(findings, checkUnconditional(code, lines, policy.MaxUnconditionalAllows)...)
	findings = append(findings, checkProtected(code, lines, policy.ProtectedCollections)...)

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings
}

func checkBraces(code string, lines lineIndex) []Finding {
	var findings []Finding
	var open []int
	for i, r := range code {
		switch r {
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				findings = append(findings, Finding{
					Line: lines.line(i), Rule: RuleBraces, Severity: SeverityError,
					Message: "unexpected '}'",
				})
				continue
			}
			open = open[:len(open)-1]
		}
	}
	for _, i := range open {
		findings = append(findings, Finding{
			Line: lines.line(i), Rule: RuleBraces, Severity: SeverityError,
			Message: "'{' is never closed",
		})
	}
	return findings
}

func checkDefaultDeny(code string, lines lineIndex) []Finding {
	for _, loc := range defaultDenyRe.FindAllStringIndex(code, -1) {
		body, ok := blockBody(code, loc[1]-1)
		if ok && denyAllRe.MatchString(body) {
			return nil
		}
	}
	line := 1
	if loc := defaultDenyRe.FindStringIndex(code); loc != nil {
		line = lines.line(loc[0])
	}
	return []Finding{{
		Line: line, Rule: RuleDefaultDeny, Severity: SeverityError,
		Message: "missing default deny: match /{document=**} { allow read, write: if false; }",
	}}
}

func checkUnconditional(code string, lines lineIndex, max int) []Finding {
	var findings []Finding
	count := 0
	for _, m := range allowRe.FindAllStringSubmatchIndex(code, -1) {
		hasCondition := m[4] >= 0
		if hasCondition && strings.TrimSpace(code[m[4]:m[5]]) != "true" {
			continue
		}
		count++
		f := Finding{
			Line: lines.line(m[0]), Rule: RuleUnconditional, Severity: SeverityWarning,
			Message: fmt.Sprintf("unconditional allow %s", strings.TrimSpace(code[m[2]:m[3]])),
		}
		if count > max {
			f.Severity = SeverityError
			f.Message += fmt.Sprintf(" (more than %d unconditional allows)", max)
		}
		findings = append(findings, f)
	}
	return findings
}

func checkProtected(code string, lines lineIndex, protected []string) []Finding {
	isProtected := make(map[string]bool, len(protected))
	for _, p := range protected {
		isProtected[p] = true
	}

	var findings []Finding
	for _, m := range collectionRe.FindAllStringSubmatchIndex(code, -1) {
		collection := code[m[2]:m[3]]
		if !isProtected[collection] {
			continue
		}
		bodyStart := m[1]
		body, ok := blockBody(code, m[1]-1)
		if !ok {
			continue
		}
		for _, a := range allowRe.FindAllStringSubmatchIndex(body, -1) {
			if a[4] >= 0 && strings.TrimSpace(body[a[4]:a[5]]) == "false" {
				continue
			}
			for _, method := range strings.Split(body[a[2]:a[3]], ",") {
				if writeMethods[strings.TrimSpace(method)] {
					findings = append(findings, Finding{
						Line: lines.line(bodyStart + a[0]), Rule: RuleProtectedWrites, Severity: SeverityError,
						Message: fmt.Sprintf("protected collection %q allows direct %s", collection, strings.TrimSpace(method)),
					})
					break
				}
			}
		}
	}
	return findings
}

// blockBody returns the text between the '{' at openIdx and its matching '}'.
func blockBody(code string, openIdx int) (string, bool) {
	depth := 0
	for i := openIdx; i < len(code); i++ {
		switch code[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return code[openIdx+1 : i], true
			}
		}
	}
	return "", false
}

// blank replaces comments, and string literals when stripStrings is set,
// with spaces. Newlines are kept so offsets and line numbers still match src.
func blank(src string, stripStrings bool) string {
	out := []byte(src)
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for ; i < len(out); i++ {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
		case out[i] == '\'' || out[i] == '"':
			quote := out[i]
			for i++; i < len(out) && out[i] != quote && out[i] != '\n'; i++ {
				if out[i] == '\\' && i+1 < len(out) {
					if stripStrings {
						out[i] = ' '
					}
					i++
				}
				if stripStrings {
					out[i] = ' '
				}
			}
		}
	}
	return string(out)
}

type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{0}
	for i, r := range src {
		if r == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// line returns the 1-based line containing byte offset off.
func (l lineIndex) line(off int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > off })
}
