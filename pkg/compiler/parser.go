// midimap/pkg/compiler/parser.go

package compiler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/midi"
)

var (
	ErrSides  = errors.New("expected input|output")
	ErrTokens = errors.New("expected 3 comma separated tokens")
	ErrToken  = errors.New("token is not a hex byte")
	ErrDomain = errors.New("value outside field domain")
)

// maxLineLength bounds a single rule line; longer lines end parsing with a CONFIG error.
const maxLineLength = 64 * 1024

// ParseRule parses one rule line of the form "i1,i2,i3|o1,o2,o3". A token that is empty or "*"
// is a wildcard.
func ParseRule(line string) (Rule, error) {
	sides := strings.Split(line, "|")
	if len(sides) != 2 {
		return Rule{}, fmt.Errorf("%w: found %d side(s)", ErrSides, len(sides))
	}

	input, err := parsePattern(sides[0])
	if err != nil {
		return Rule{}, fmt.Errorf("input: %w", err)
	}
	output, err := parsePattern(sides[1])
	if err != nil {
		return Rule{}, fmt.Errorf("output: %w", err)
	}

	return Rule{Raw: line, Input: input, Output: output}, nil
}

func parsePattern(side string) (Pattern, error) {
	var p Pattern
	tokens := strings.Split(side, ",")
	if len(tokens) != len(p) {
		return p, fmt.Errorf("%w: found %d", ErrTokens, len(tokens))
	}
	for i, raw := range tokens {
		tok, err := parseToken(raw, midi.Field(i))
		if err != nil {
			return p, err
		}
		p[i] = tok
	}
	return p, nil
}

func parseToken(raw string, field midi.Field) (Token, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "*" {
		return Wildcard(), nil
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if errors.Is(err, strconv.ErrRange) {
		return Token{}, fmt.Errorf("%w: %s 0x%s", ErrDomain, field, strings.ToUpper(s))
	}
	if err != nil {
		return Token{}, fmt.Errorf("%w: %s %q", ErrToken, field, s)
	}
	if !field.Valid(int(v)) {
		return Token{}, fmt.Errorf("%w: %s 0x%X", ErrDomain, field, v)
	}
	return Concrete(uint8(v)), nil
}

// ParseRules reads a rule set one line at a time. Blank lines and lines starting with '#' are
// skipped. A malformed line never stops parsing: it is reported as a PARSE error carrying the
// 1-based line number and the raw text, and the next line is parsed.
func ParseRules(r io.Reader) ([]Rule, []*logging.MapError) {
	var (
		rules []Rule
		diags []*logging.MapError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := ParseRule(line)
		if err != nil {
			diags = append(diags, logging.NewError(logging.ErrorTypeParse, "cannot create mapping", err,
				map[string]interface{}{"line": lineNo, "raw": raw}))
			continue
		}
		rule.Line = lineNo
		rule.Raw = raw
		rules = append(rules, rule)
	}

	if err := scanner.Err(); err != nil {
		diags = append(diags, logging.NewError(logging.ErrorTypeConfig, "failed to read rule set", err,
			map[string]interface{}{"line": lineNo + 1}))
	}

	logging.Logger.Debug().Int("rules", len(rules)).Int("rejected", len(diags)).Msg("Parsed rule set")
	return rules, diags
}
