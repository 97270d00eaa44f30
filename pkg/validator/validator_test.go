// midimap/pkg/validator/validator_test.go

package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/midimap/pkg/compiler"
)

func parse(t *testing.T, lines ...string) []compiler.Rule {
	t.Helper()
	rules, diags := compiler.ParseRules(strings.NewReader(strings.Join(lines, "\n")))
	require.Empty(t, diags)
	return rules
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		line    string
		wantErr bool
	}{
		{"90,3C,7F|90,3C,7F", true},
		{"90,*,*|*,*,*", true},
		{"*,*,*|*,*,*", true},
		{"90,*,7F|91,*,00", false},
		{"*,10,*|90,10,*", false},
	}

	for _, tt := range tests {
		rules := parse(t, tt.line)
		err := ValidateRule(&rules[0])
		if tt.wantErr {
			assert.Error(t, err, tt.line)
		} else {
			assert.NoError(t, err, tt.line)
		}
	}
}

func TestValidateRulesetNoOverlap(t *testing.T) {
	rules := parse(t, "90,3C,7F|91,3D,00", "B0,07,*|B0,0B,*")
	assert.Empty(t, ValidateRuleset(rules))
}

func TestValidateRulesetShadowed(t *testing.T) {
	rules := parse(t,
		"90,*,*|80,*,*",
		"# comment",
		"90,3C,7F|91,00,00",
	)

	findings := ValidateRuleset(rules)

	require.Len(t, findings, 1)
	assert.Equal(t, SeverityShadowed, findings[0].Severity)
	assert.Equal(t, 3, findings[0].Rule.Line)
	assert.Equal(t, 1, findings[0].Covered)
	assert.Equal(t, []int{1}, findings[0].ClaimedBy)
	assert.Contains(t, findings[0].String(), "never applies")
}

func TestValidateRulesetPartial(t *testing.T) {
	rules := parse(t,
		"90,3C,7F|91,00,00",
		"B0,3C,7F|B1,00,00",
		"*,3C,7F|A0,01,01",
	)

	findings := ValidateRuleset(rules)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, SeverityPartial, f.Severity)
	assert.Equal(t, 113, f.Covered)
	assert.Equal(t, 2, f.Claimed)
	assert.Equal(t, []int{1, 2}, f.ClaimedBy)
	assert.Contains(t, f.String(), "applies to 111 of 113 inputs")
}
