// midimap/pkg/validator/validator.go

package validator

import (
	"fmt"

	"rgehrsitz/midimap/pkg/compiler"
	"rgehrsitz/midimap/pkg/midi"
)

type Severity string

const (
	SeverityShadowed Severity = "shadowed"
	SeverityPartial  Severity = "partially_shadowed"
)

// Finding describes a rule that loses some or all of its inputs to earlier rules.
type Finding struct {
	Rule     compiler.Rule
	Severity Severity
	Covered  int
	Claimed  int
	// ClaimedBy lists the lines of the earlier rules that took the inputs, in source order.
	ClaimedBy []int
}

func (f Finding) String() string {
	if f.Severity == SeverityShadowed {
		return fmt.Sprintf("line %d: rule %q never applies, all %d inputs are mapped by earlier rules (lines %v)",
			f.Rule.Line, f.Rule.String(), f.Covered, f.ClaimedBy)
	}
	return fmt.Sprintf("line %d: rule %q applies to %d of %d inputs, the rest are mapped by earlier rules (lines %v)",
		f.Rule.Line, f.Rule.String(), f.Covered-f.Claimed, f.Covered, f.ClaimedBy)
}

// ValidateRule checks a single rule for the mistakes a parser cannot catch.
func ValidateRule(rule *compiler.Rule) error {
	if identity(rule) {
		return fmt.Errorf("rule %q maps every input onto itself", rule.String())
	}
	return nil
}

func identity(rule *compiler.Rule) bool {
	for i := range rule.Input {
		in, out := rule.Input[i], rule.Output[i]
		if out.IsWildcard() {
			continue
		}
		iv, iok := in.Value()
		ov, _ := out.Value()
		if !iok || iv != ov {
			return false
		}
	}
	return true
}

// ValidateRuleset reports rules whose inputs are partly or entirely taken by earlier rules.
// Rules are considered in the order given, matching how the compiler builds its table.
func ValidateRuleset(rules []compiler.Rule) []Finding {
	// owner holds 1 + the index of the rule that claimed each triple.
	owner := make([]int32, midi.TripleSpace)
	var findings []Finding

	for i, rule := range rules {
		claimed := 0
		by := map[int32]bool{}
		rule.Expand(func(in, _ midi.Triple) bool {
			idx, _ := in.Index()
			if prev := owner[idx]; prev != 0 {
				claimed++
				by[prev-1] = true
				return true
			}
			owner[idx] = int32(i) + 1
			return true
		})

		if claimed == 0 {
			continue
		}

		f := Finding{Rule: rule, Covered: rule.Input.Size(), Claimed: claimed, Severity: SeverityPartial}
		if claimed == f.Covered {
			f.Severity = SeverityShadowed
		}
		for j := 0; j < i; j++ {
			if by[int32(j)] {
				f.ClaimedBy = append(f.ClaimedBy, rules[j].Line)
			}
		}
		findings = append(findings, f)
	}

	return findings
}
