package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/diag"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	rootCmd := newRootCmd()
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirpath",
		Short: "FHIRPath expression evaluator",
		Long: `fhirpath evaluates FHIRPath expressions against FHIR resources.

It provides:
  - Expression evaluation against raw JSON resources
  - Static analysis of expressions without a resource in hand
  - Metadata-aware evaluation reporting the canonical path of every result

For more information on FHIRPath itself, see https://hl7.org/fhirpath/`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newAnalyzeCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fhirpath version %s\n", version)
		},
	}
}

func newEvalCmd() *cobra.Command {
	var outputFormat string
	var withMetadata bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "eval [expression] [file]",
		Short: "Evaluate a FHIRPath expression against a FHIR resource",
		Long: `Evaluate a FHIRPath expression against a FHIR resource.

Examples:
  fhirpath eval "Patient.name.given" patient.json
  fhirpath eval "Observation.value.ofType(Quantity).value" observation.json
  fhirpath eval "Bundle.entry.resource.ofType(Patient)" bundle.json --output json
  fhirpath eval "Patient.name.given" patient.json --metadata`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			expression := args[0]
			filePath := args[1]

			resourceData, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", filePath, err)
			}

			if withMetadata {
				results, bag := fhirpath.EvaluateWithMetadata(expression, resourceData)
				logDiagnostics(bag)
				if bag.HasErrors() {
					return fmt.Errorf("evaluation failed: %s", firstError(bag))
				}
				return outputWrapped(results, outputFormat)
			}

			opts := []fhirpath.EvalOption{fhirpath.WithTimeout(timeout)}
			result, bag := fhirpath.EvaluateWithDiagnostics(expression, resourceData, opts...)
			logDiagnostics(bag)
			if bag.HasErrors() {
				return fmt.Errorf("evaluation failed: %s", firstError(bag))
			}

			switch outputFormat {
			case "json":
				return outputJSON(result)
			default:
				return outputText(result)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&withMetadata, "metadata", false, "Report the canonical path of each result")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Evaluation timeout")

	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var contextType string

	cmd := &cobra.Command{
		Use:   "analyze [expression]",
		Short: "Statically analyze a FHIRPath expression",
		Long: `Parse and analyze a FHIRPath expression without evaluating it against
a resource, reporting every function it invokes and any diagnostics the
parser accumulated.

Examples:
  fhirpath analyze "Patient.name.where(use = 'official').given"
  fhirpath analyze "Observation.value.ofType(Quantity)" --context Observation`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			report, bag := fhirpath.Analyze(args[0], contextType)
			logDiagnostics(bag)

			fmt.Printf("valid: %t\n", report.Valid)
			if len(report.FunctionsUsed) > 0 {
				fmt.Printf("functions used: %s\n", strings.Join(report.FunctionsUsed, ", "))
			}
			if bag.Len() > 0 {
				fmt.Printf("diagnostics: %d\n", bag.Len())
				for _, d := range bag.All() {
					fmt.Printf("  %s\n", d.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contextType, "context", "", "Root resource type to validate against (e.g. Patient)")

	return cmd
}

func logDiagnostics(bag *diag.Bag) {
	if bag == nil {
		return
	}
	diag.Default().Bag(bag)
}

func firstError(bag *diag.Bag) string {
	all := bag.All()
	if len(all) == 0 {
		return "unknown error"
	}
	return all[0].Error()
}

func outputText(result fhirpath.Collection) error {
	if result.Empty() {
		fmt.Println("(empty)")
		return nil
	}

	for i, value := range result {
		if len(result) > 1 {
			fmt.Printf("[%d] ", i)
		}
		fmt.Println(value.String())
	}
	return nil
}

func outputJSON(result fhirpath.Collection) error {
	if result.Empty() {
		fmt.Println("[]")
		return nil
	}

	output := make([]interface{}, len(result))
	for i, value := range result {
		output[i] = valueToInterface(value)
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	fmt.Println(string(jsonBytes))
	return nil
}

func outputWrapped(result []fhirpath.WrappedValue, format string) error {
	if len(result) == 0 {
		fmt.Println("(empty)")
		return nil
	}

	if format == "json" {
		output := make([]map[string]interface{}, len(result))
		for i, w := range result {
			output[i] = map[string]interface{}{
				"path":  w.Path.String(),
				"value": valueToInterface(w.Unwrap()),
			}
		}
		jsonBytes, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	for _, w := range result {
		fmt.Printf("%s = %s\n", w.Path.String(), w.Unwrap().String())
	}
	return nil
}

func valueToInterface(v fhirpath.Value) interface{} {
	switch val := v.(type) {
	case interface{ Bool() bool }:
		return val.Bool()
	case interface{ Value() int64 }:
		return val.Value()
	case interface{ Value() string }:
		return val.Value()
	default:
		return v.String()
	}
}
