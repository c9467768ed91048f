package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <source>",
	Short: "Print headline counts for a table",
	Long:  "Normalizes a table and prints its KPIs, disposition breakdown and discovery-year histogram.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("normalize"); err != nil {
			return err
		}
		snap, err := loadSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		sum := dataset.Summarize(snap.Rows)
		years := dataset.YearHistogram(snap.Rows)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(map[string]any{
				"summary": sum,
				"years":   years,
			}), "encode summary")
		}
		formatSummary(os.Stdout, snap, sum, years)
		return nil
	},
}

var correlateCmd = &cobra.Command{
	Use:   "correlate <source>",
	Short: "Print Pearson correlations between canonical fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("normalize"); err != nil {
			return err
		}
		snap, err := loadSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		names, _ := cmd.Flags().GetStringSlice("fields")
		fields := make([]model.FieldID, len(names))
		for i, n := range names {
			fields[i] = model.FieldID(n)
		}

		var ms []dataset.Matrix
		if byMethod, _ := cmd.Flags().GetBool("by-method"); byMethod {
			ms, err = dataset.CorrelationByMethod(snap.Rows, fields)
		} else {
			var m dataset.Matrix
			m, err = dataset.Correlation(snap.Rows, fields)
			ms = []dataset.Matrix{m}
		}
		if err != nil {
			return err
		}
		for _, m := range ms {
			formatMatrix(os.Stdout, m)
		}
		return nil
	},
}

func formatSummary(w io.Writer, snap *model.Snapshot, sum dataset.Summary, years []dataset.YearCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", snap.Source)
	fmt.Fprintf(tw, "Dialect:\t%s\n", snap.Dialect)
	fmt.Fprintf(tw, "Rows:\t%d\n", sum.Total)
	fmt.Fprintf(tw, "Named:\t%d\n", sum.Named)
	fmt.Fprintf(tw, "With year:\t%d\n", sum.WithYear)
	fmt.Fprintf(tw, "Small (<= %.1f Re):\t%d\n", dataset.SmallPlanetRadius, sum.Small)
	fmt.Fprintf(tw, "Earth-like:\t%d\n", sum.EarthLike)
	fmt.Fprintf(tw, "Derived a:\t%d\n", sum.DerivedSemiMajorAxis)
	fmt.Fprintf(tw, "Derived Teq:\t%d\n", sum.DerivedEquilibriumTemp)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DISPOSITION\tCOUNT")
	for _, d := range dataset.Dispositions {
		fmt.Fprintf(tw, "%s\t%d\n", d, sum.Dispositions[d])
	}
	if len(years) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "YEAR\tCOUNT")
		for _, y := range years {
			fmt.Fprintf(tw, "%d\t%d\n", y.Year, y.Count)
		}
	}
	tw.Flush() //nolint:errcheck
}

func formatMatrix(w io.Writer, m dataset.Matrix) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if m.Method != "" {
		fmt.Fprintf(w, "# %s\n", m.Method)
	}
	fmt.Fprint(tw, "\t")
	for _, f := range m.Fields {
		fmt.Fprintf(tw, "%s\t", f)
	}
	fmt.Fprintln(tw)
	for i, f := range m.Fields {
		fmt.Fprintf(tw, "%s\t", f)
		for _, v := range m.Values[i] {
			fmt.Fprintf(tw, "%.3f\t", v)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	summaryCmd.Flags().StringVar(&dialectOverride, "dialect", "", "column dialect (default from config)")
	summaryCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(summaryCmd)

	correlateCmd.Flags().StringVar(&dialectOverride, "dialect", "", "column dialect (default from config)")
	correlateCmd.Flags().StringSlice("fields", []string{"period", "semiMajorAxis", "radius", "equilibriumTemp", "stellarTemp", "stellarRadius"}, "numeric fields to correlate")
	correlateCmd.Flags().Bool("by-method", false, "one matrix per discovery method")
	rootCmd.AddCommand(correlateCmd)
}
