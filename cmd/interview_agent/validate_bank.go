package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jonathan/interview-engine/internal/questionbank"
	"github.com/jonathan/interview-engine/internal/schemas"
	"github.com/spf13/cobra"
)

var validateBankSchema string

var validateBankCmd = &cobra.Command{
	Use:   "validate-bank <file>",
	Short: "Validate a question bank file",
	Long: "Checks a JSON or YAML question bank against its schema, item calibration and ID uniqueness. " +
		"With --schema a JSON bank is also checked against an extra schema, such as a stricter house policy.",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateBank,
}

func init() {
	validateBankCmd.Flags().StringVar(&validateBankSchema, "schema", "", "Additional JSON Schema file for JSON banks (optional)")
	rootCmd.AddCommand(validateBankCmd)
}

func runValidateBank(cmd *cobra.Command, args []string) error {
	bank, err := questionbank.LoadFile(args[0])
	if err != nil {
		return reportValidation(cmd, err)
	}

	if validateBankSchema != "" {
		if questionbank.FormatFromPath(args[0]) != questionbank.FormatJSON {
			return fmt.Errorf("--schema applies to JSON banks only: %s", args[0])
		}
		schemaPath := schemas.ResolveSchemaPath(validateBankSchema)
		if schemaPath == "" {
			return fmt.Errorf("schema file not found: %s", validateBankSchema)
		}
		if err := schemas.ValidateJSON(schemaPath, args[0]); err != nil {
			return reportValidation(cmd, err)
		}
	}

	categories := map[string]int{}
	for _, item := range bank.Items() {
		categories[item.Category]++
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validation passed: %d question(s)", bank.Len())
	if bank.Version() != "" {
		fmt.Fprintf(out, ", version %s", bank.Version())
	}
	fmt.Fprintln(out)
	for _, c := range slices.Sorted(maps.Keys(categories)) {
		fmt.Fprintf(out, "  %-24s %d\n", c, categories[c])
	}
	return nil
}

func reportValidation(cmd *cobra.Command, err error) error {
	var ve *schemas.ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s: %s\n", fe.Field, fe.Message)
		}
	}
	return fmt.Errorf("validation failed: %w", err)
}
