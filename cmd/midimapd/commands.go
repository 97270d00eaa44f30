// midimap/cmd/midimapd/commands.go

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rgehrsitz/midimap/pkg/compiler"
	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/validator"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <rules-file>",
		Short: "Report malformed and shadowed rules without starting the translator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return logging.NewError(logging.ErrorTypeConfig, "cannot read rule set", err,
					map[string]interface{}{"path": args[0]})
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			rules, diags := compiler.ParseRules(f)
			for _, d := range diags {
				fmt.Fprintf(out, "line %v: %s: %v: %q\n", d.Fields["line"], d.Message, d.Err, d.Fields["raw"])
			}
			for i := range rules {
				if err := validator.ValidateRule(&rules[i]); err != nil {
					fmt.Fprintf(out, "line %d: %v\n", rules[i].Line, err)
				}
			}
			for _, finding := range validator.ValidateRuleset(rules) {
				fmt.Fprintln(out, finding.String())
			}

			table := compiler.Build(rules)
			fmt.Fprintf(out, "%d rules, %d rejected, %d table entries\n", len(rules), len(diags), table.Len())
			return nil
		},
	}
}

func newCompileCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile <rules-file>",
		Short: "Compile a rule set into a table file the translator can load directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, diags := compiler.CompileFile(args[0])
			for _, d := range diags {
				if d.Type == logging.ErrorTypeConfig {
					return d
				}
				logging.LogWarning(logging.Logger, d)
			}
			if err := compiler.WriteTableToFile(output, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", table.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "midimap.mtab", "Table file to write")
	return cmd
}
