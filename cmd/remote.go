package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/model"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Pull prediction records from the remote API and normalize them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("normalize"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		settings, err := resolveSettings(ctx, st)
		if err != nil {
			return err
		}
		recs, err := newAPIClient(settings).FetchRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch records")
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		source := api.JoinURL(settings.BaseURL, settings.DataPath)
		snap, err := sess.Load(ctx, source, recs)
		if err != nil {
			return err
		}
		if err := st.RecordLoad(ctx, dataset.Event(snap)); err != nil {
			zap.L().Warn("record load failed", zap.Error(err))
		}

		rows, err := selectRows(cmd.Flags(), snap.Rows)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return writeRows(os.Stdout, format, rows)
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Ask the remote model to classify one planet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		req := predictRequestFromFlags(cmd.Flags())

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		settings, err := resolveSettings(ctx, st)
		if err != nil {
			return err
		}
		resp, err := newAPIClient(settings).Predict(ctx, req)
		if err != nil {
			return eris.Wrap(err, "predict")
		}
		formatPrediction(os.Stdout, resp)
		return nil
	},
}

// predictRequestFromFlags leaves unset flags absent so the remote side sees
// null rather than zero.
func predictRequestFromFlags(flags *pflag.FlagSet) model.PredictRequest {
	var req model.PredictRequest
	if flags.Changed("period") {
		v, _ := flags.GetFloat64("period")
		req.Period = &v
	}
	if flags.Changed("radius") {
		v, _ := flags.GetFloat64("radius")
		req.Radius = &v
	}
	if flags.Changed("year") {
		v, _ := flags.GetInt("year")
		req.DiscoveryYear = &v
	}
	if flags.Changed("method") {
		v, _ := flags.GetString("method")
		req.DiscoveryMethod = &v
	}
	return req
}

func formatPrediction(w io.Writer, resp *model.PredictResponse) {
	switch {
	case resp.Label != nil && resp.Prob != nil:
		fmt.Fprintf(w, "%s (p=%.3f)\n", *resp.Label, *resp.Prob)
	case resp.Label != nil:
		fmt.Fprintln(w, *resp.Label)
	default:
		raw, _ := json.Marshal(resp.Raw)
		fmt.Fprintln(w, string(raw))
	}
}

func addPredictFlags(flags *pflag.FlagSet) {
	flags.Float64("period", 0, "orbital period in days")
	flags.Float64("radius", 0, "planet radius in Earth radii")
	flags.Int("year", 0, "discovery year")
	flags.String("method", "", "discovery method")
}

func init() {
	fetchCmd.Flags().StringVar(&dialectOverride, "dialect", "", "column dialect (default from config)")
	fetchCmd.Flags().String("format", "json", "output format: json or csv")
	addFilterFlags(fetchCmd.Flags())
	rootCmd.AddCommand(fetchCmd)

	addPredictFlags(predictCmd.Flags())
	rootCmd.AddCommand(predictCmd)
}
