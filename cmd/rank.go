package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank <source>",
	Short: "Rank numeric features by ANOVA F-score",
	Long:  "Scores how well each numeric feature separates the classes of a target column. Raw mode reads source columns by name; canonical mode reads normalized fields.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req := rankingRequest()
		if v, _ := cmd.Flags().GetString("mode"); v != "" {
			req.Mode = ranking.Mode(v)
		}
		if v, _ := cmd.Flags().GetString("target"); v != "" {
			req.Target = v
		}
		if v, _ := cmd.Flags().GetStringSlice("features"); len(v) > 0 {
			req.Features = v
		}
		if cmd.Flags().Changed("min-samples") {
			req.MinSamples, _ = cmd.Flags().GetInt("min-samples")
		}
		// Flag overrides are checked by Run.
		if err := cfg.Validate("rank"); err != nil {
			return err
		}

		snap, err := loadSource(ctx, args[0])
		if err != nil {
			return err
		}
		scores, err := req.Run(snap.Raw, snap.Rows)
		if err != nil {
			return eris.Wrap(err, "rank")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(scores)
		}
		if len(scores) == 0 {
			fmt.Fprintln(os.Stderr, "No feature had enough samples to score.")
			return nil
		}
		formatScores(os.Stdout, scores)
		return nil
	},
}

func formatScores(w io.Writer, scores []model.FeatureScore) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tFEATURE\tF\tP-VALUE\tN\tGROUPS")
	for i, s := range scores {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.3g\t%d\t%d\n", i+1, s.Feature, s.FScore, s.PValue, s.SampleSize, s.Groups)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rankCmd.Flags().StringVar(&dialectOverride, "dialect", "", "column dialect (default from config)")
	rankCmd.Flags().String("mode", "", "raw or canonical (default from config)")
	rankCmd.Flags().String("target", "", "target column (default from config)")
	rankCmd.Flags().StringSlice("features", nil, "feature columns, comma separated")
	rankCmd.Flags().Int("min-samples", ranking.DefaultMinSamples, "minimum valid samples per feature")
	rankCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(rankCmd)
}
