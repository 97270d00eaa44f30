// midimap/pkg/compiler/compiler.go

package compiler

import (
	"fmt"
	"io"
	"os"

	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/midi"
)

// Build expands rules, in order, into a Table. When two rules cover the same input triple the
// earlier rule keeps it.
func Build(rules []Rule) *Table {
	table := &Table{}
	for _, rule := range rules {
		added := 0
		rule.Expand(func(in, out midi.Triple) bool {
			if table.insert(in, out) {
				added++
			}
			return true
		})
		logging.Logger.Debug().
			Int("line", rule.Line).
			Str("rule", rule.String()).
			Int("covered", rule.Input.Size()).
			Int("added", added).
			Msg("Expanded rule")
	}
	return table
}

// CompileReader parses and expands a rule set. The returned diagnostics describe every rejected
// line; they never prevent the table from being built.
func CompileReader(r io.Reader) (*Table, []*logging.MapError) {
	rules, diags := ParseRules(r)
	return Build(rules), diags
}

// CompileFile compiles the rule set at path. An empty path or a path that is not a readable
// regular file yields an empty table and a CONFIG diagnostic.
func CompileFile(path string) (*Table, []*logging.MapError) {
	if path == "" {
		return &Table{}, []*logging.MapError{
			logging.NewError(logging.ErrorTypeConfig, "no rule set supplied, passing all messages through", nil, nil),
		}
	}

	info, err := os.Stat(path)
	if err == nil && !info.Mode().IsRegular() {
		err = fmt.Errorf("%s is not a regular file", path)
	}
	var f *os.File
	if err == nil {
		f, err = os.Open(path)
	}
	if err != nil {
		return &Table{}, []*logging.MapError{
			logging.NewError(logging.ErrorTypeConfig, "there is something wrong with the provided rule set", err,
				map[string]interface{}{"path": path}),
		}
	}
	defer f.Close()

	return CompileReader(f)
}

// Compile is CompileFile with every diagnostic logged as a warning.
func Compile(path string) *Table {
	table, diags := CompileFile(path)
	for _, d := range diags {
		logging.LogWarning(logging.Logger, d)
	}
	logging.Logger.Info().Str("path", path).Int("entries", table.Len()).Int("rejected", len(diags)).Msg("Compiled rule set")
	return table
}
