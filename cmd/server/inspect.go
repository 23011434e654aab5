package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"promotion-prediction-service/internal/config"
	"promotion-prediction-service/internal/pipeline"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the steps, columns and categories of a model artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadWithFlags(cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return inspect(cmd.OutOrStdout(), cfg.Model.Path, asJSON)
	},
}

func init() {
	inspectCmd.Flags().Bool("json", false, "print the description as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func inspect(w io.Writer, path string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	p, err := pipeline.Parse(data)
	if err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"name":       p.Name,
			"version":    p.Version,
			"columns":    p.InputColumns(),
			"categories": p.Categories(),
			"steps":      p.Describe(),
		})
	}

	fmt.Fprintf(w, "Model: %s (version %s)\n", p.Name, p.Version)
	fmt.Fprintf(w, "Input columns: %s\n\n", strings.Join(p.InputColumns(), ", "))

	for i, step := range p.Describe() {
		fmt.Fprintf(w, "Step %d: %s (%s)\n", i, step.Name, step.Type)
		for _, t := range step.Transformers {
			fmt.Fprintf(w, "  Transformer: %s\n", t.Name)
			fmt.Fprintf(w, "    Columns: %s\n", strings.Join(t.Columns, ", "))
			if len(t.Operators) > 0 {
				fmt.Fprintf(w, "    Operators: %s\n", strings.Join(t.Operators, " -> "))
			}
		}
		if len(step.Classes) > 0 {
			fmt.Fprintf(w, "  Classes: %v, features: %d\n", step.Classes, step.NumFeatures)
		}
	}

	cats := p.Categories()
	if len(cats) == 0 {
		fmt.Fprintln(w, "\nNo categorical encoder found.")
		return nil
	}

	columns := make([]string, 0, len(cats))
	for col := range cats {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	fmt.Fprintln(w, "\nCategories:")
	for _, col := range columns {
		fmt.Fprintf(w, "  %s: %s\n", col, strings.Join(cats[col], ", "))
	}
	return nil
}
