package graph

import (
	"context"
	"fmt"
	"regexp"
)

// UsageStatus classifies one symbol reference found in a source file
// against the property graph.
type UsageStatus string

const (
	StatusValid     UsageStatus = "valid"
	StatusUncertain UsageStatus = "uncertain"
	StatusInvalid   UsageStatus = "invalid"
)

// SymbolUsage is one class/function reference found while scanning a
// source file, paired with its validation verdict.
type SymbolUsage struct {
	Name   string
	Kind   string // "class", "function", or "unknown"
	Line   int
	Status UsageStatus
	Reason string
}

// ValidationReport is the hallucination validator's result for one file.
type ValidationReport struct {
	RepoName         string
	Path             string
	Usages           []SymbolUsage
	OverallConfidence float64
}

// symbolRef matches an identifier immediately followed by `(` or `.`, a
// cheap language-agnostic heuristic for "this looks like a type, method,
// or function reference" — good enough for a confidence signal, not a
// full parser. Lowercase-leading identifiers are included so unexported
// methods and attribute accesses are scanned too, not just exported
// capitalized names; isLikelyBuiltin absorbs the resulting keyword and
// stdlib-conversion noise.
var symbolRef = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*[(.]`)

// Validator checks whether the symbols a source file references actually
// exist in the property graph, surfacing likely LLM-hallucinated API
// usage.
type Validator struct {
	Store *Store
}

// NewValidator builds a Validator over an already-populated graph Store.
func NewValidator(store *Store) *Validator {
	return &Validator{Store: store}
}

// ValidateSource scans source for symbol references and classifies each
// against repoName's graph. overall_confidence is 1 - invalid/total,
// clamped to [0,1], and is 1.0 when no symbols are referenced at all.
func (v *Validator) ValidateSource(ctx context.Context, repoName, path, source string) (ValidationReport, error) {
	lines := splitLines(source)
	seen := map[string]bool{}
	var usages []SymbolUsage

	for lineNo, line := range lines {
		for _, m := range symbolRef.FindAllStringSubmatch(line, -1) {
			name := m[1]
			key := fmt.Sprintf("%d:%s", lineNo, name)
			if seen[key] {
				continue
			}
			seen[key] = true

			usage, err := v.classify(ctx, repoName, name, lineNo+1)
			if err != nil {
				return ValidationReport{}, err
			}
			usages = append(usages, usage)
		}
	}

	report := ValidationReport{RepoName: repoName, Path: path, Usages: usages}
	report.OverallConfidence = confidence(usages)
	return report, nil
}

func (v *Validator) classify(ctx context.Context, repoName, name string, line int) (SymbolUsage, error) {
	if class, err := v.Store.ClassByName(ctx, repoName, name); err != nil {
		return SymbolUsage{}, err
	} else if class != nil {
		return SymbolUsage{Name: name, Kind: "class", Line: line, Status: StatusValid}, nil
	}

	if fn, err := v.Store.FunctionByName(ctx, repoName, name); err != nil {
		return SymbolUsage{}, err
	} else if fn != nil {
		return SymbolUsage{Name: name, Kind: "function", Line: line, Status: StatusValid}, nil
	}

	// Common-word/builtin false positives (e.g. "String(", "Error(") are
	// genuinely ambiguous without full type resolution — uncertain, not
	// invalid, avoids over-penalizing confidence on a heuristic scan.
	if isLikelyBuiltin(name) {
		return SymbolUsage{Name: name, Kind: "unknown", Line: line, Status: StatusUncertain,
			Reason: "not found in graph but resembles a builtin/stdlib identifier"}, nil
	}

	return SymbolUsage{Name: name, Kind: "unknown", Line: line, Status: StatusInvalid,
		Reason: "no class or function with this name in the repository graph"}, nil
}

func confidence(usages []SymbolUsage) float64 {
	if len(usages) == 0 {
		return 1.0
	}
	invalid := 0
	for _, u := range usages {
		if u.Status == StatusInvalid {
			invalid++
		}
	}
	c := 1 - float64(invalid)/float64(len(usages))
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

var builtinNames = map[string]bool{
	"String": true, "Error": true, "New": true, "Sprintf": true, "Printf": true,
	"Println": true, "Errorf": true, "Marshal": true, "Unmarshal": true,
	// Go keywords and builtins that the broadened lowercase match now
	// also catches; these are never symbols worth resolving against the
	// graph.
	"if": true, "for": true, "switch": true, "select": true, "range": true,
	"return": true, "go": true, "defer": true, "func": true,
	"len": true, "cap": true, "make": true, "append": true, "copy": true,
	"delete": true, "panic": true, "recover": true, "close": true,
	"string": true, "int": true, "int64": true, "float64": true, "bool": true,
	"byte": true, "rune": true, "error": true, "nil": true,
}

func isLikelyBuiltin(name string) bool {
	return builtinNames[name]
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
