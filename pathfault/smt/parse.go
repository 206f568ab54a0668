package smt

import (
	"regexp"
	"strings"
)

// defineFunString matches `(define-fun NAME () String "BODY")` entries
// in a z3 model response. z3 doubles embedded quotes, so the body
// group is greedy up to a closing quote not itself followed by another
// quote.
var defineFunString = regexp.MustCompile(`\(define-fun\s+(\S+)\s+\(\)\s+String\s+"((?:[^"]|"")*)"\s*\)`)

func parseResponse(out string) (Result, error) {
	lines := strings.SplitN(strings.TrimSpace(out), "\n", 2)
	status := StatusUnknown
	rest := out
	if len(lines) > 0 {
		switch strings.TrimSpace(lines[0]) {
		case "sat":
			status = StatusSat
		case "unsat":
			status = StatusUnsat
		default:
			status = StatusUnknown
		}
		if len(lines) > 1 {
			rest = lines[1]
		}
	}

	model := Model{}
	if status == StatusSat {
		for _, m := range defineFunString.FindAllStringSubmatch(rest, -1) {
			name, body := m[1], m[2]
			model[name] = UnescapeStringLiteral(body)
		}
	}

	return Result{Status: status, Model: model, Raw: out}, nil
}
