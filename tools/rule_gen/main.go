// midimap/tools/rule_gen/main.go

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Rule is one generated line; an empty token is written as "*".
type Rule struct {
	Input  [3]string
	Output [3]string
}

func (r Rule) String() string {
	return fmt.Sprintf("%s,%s,%s|%s,%s,%s",
		r.Input[0], r.Input[1], r.Input[2], r.Output[0], r.Output[1], r.Output[2])
}

var statusKinds = []uint8{0x80, 0x90, 0xA0, 0xB0, 0xC0, 0xD0, 0xE0}

func parseFlags(args []string) (int, string, float64) {
	fs := flag.NewFlagSet("rule_gen", flag.ExitOnError)
	numRules := fs.Int("rules", 1000, "Number of rules to generate")
	outputFile := fs.String("output", "generated_rules.map", "Output file name")
	wildcardRate := fs.Float64("wildcards", 0.3, "Probability that a token is a wildcard")
	fs.Parse(args)
	return *numRules, *outputFile, *wildcardRate
}

func generateStatus() string {
	if gofakeit.Number(0, 20) == 0 {
		return "F2"
	}
	kind := statusKinds[gofakeit.Number(0, len(statusKinds)-1)]
	return fmt.Sprintf("%02X", kind|uint8(gofakeit.Number(0, 15)))
}

func generateData() string {
	return fmt.Sprintf("%02X", gofakeit.Number(0, 0x7F))
}

func generateToken(concrete func() string, wildcardRate float64) string {
	if gofakeit.Float64Range(0, 1) < wildcardRate {
		return "*"
	}
	return concrete()
}

func generateRule(wildcardRate float64) Rule {
	return Rule{
		Input: [3]string{
			generateToken(generateStatus, wildcardRate),
			generateToken(generateData, wildcardRate),
			generateToken(generateData, wildcardRate),
		},
		Output: [3]string{
			generateToken(generateStatus, wildcardRate),
			generateToken(generateData, wildcardRate),
			generateToken(generateData, wildcardRate),
		},
	}
}

func generateRuleset(numRules int, wildcardRate float64) []Rule {
	rules := make([]Rule, numRules)
	for i := range rules {
		rules[i] = generateRule(wildcardRate)
	}
	return rules
}

func writeRulesetToFile(rules []Rule, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "# generated %s, %d rules\n", time.Now().Format(time.RFC3339), len(rules))
	for _, r := range rules {
		fmt.Fprintln(w, r.String())
	}
	return w.Flush()
}

func main() {
	numRules, outputFile, wildcardRate := parseFlags(os.Args[1:])

	gofakeit.Seed(time.Now().UnixNano())

	rules := generateRuleset(numRules, wildcardRate)
	if err := writeRulesetToFile(rules, outputFile); err != nil {
		fmt.Printf("Error writing rule set: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated rule set with %d rules. Saved to %s\n", numRules, outputFile)
}
