package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the remote API endpoint",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective API settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		s, err := resolveSettings(ctx, st)
		if err != nil {
			return err
		}
		formatSettings(os.Stdout, s)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save API settings",
	Long:  "Saves the base URL and endpoint paths. Unset flags keep their current value; blank paths reset to the defaults.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cur, err := resolveSettings(ctx, st)
		if err != nil {
			return err
		}
		next := applySettingsFlags(cmd.Flags(), cur)
		if err := st.SaveSettings(ctx, next); err != nil {
			return eris.Wrap(err, "save settings")
		}
		formatSettings(os.Stdout, next)
		return nil
	},
}

var loadsCmd = &cobra.Command{
	Use:   "loads",
	Short: "List recent dataset loads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		loads, err := st.ListLoads(ctx, store.LoadFilter{Source: source, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "list loads")
		}
		if len(loads) == 0 {
			fmt.Fprintln(os.Stderr, "No loads recorded.")
			return nil
		}
		formatLoads(os.Stdout, loads)
		return nil
	},
}

func applySettingsFlags(flags *pflag.FlagSet, cur model.APISettings) model.APISettings {
	if flags.Changed("base-url") {
		cur.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("data-path") {
		cur.DataPath, _ = flags.GetString("data-path")
	}
	if flags.Changed("predict-path") {
		cur.PredictPath, _ = flags.GetString("predict-path")
	}
	return api.WithDefaults(cur)
}

func formatSettings(w io.Writer, s model.APISettings) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	base := s.BaseURL
	if base == "" {
		base = "(same origin)"
	}
	fmt.Fprintf(tw, "Base URL:\t%s\n", base)
	fmt.Fprintf(tw, "Data:\t%s\n", api.JoinURL(s.BaseURL, s.DataPath))
	fmt.Fprintf(tw, "Predict:\t%s\n", api.JoinURL(s.BaseURL, s.PredictPath))
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "Updated:\t%s\n", s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush() //nolint:errcheck
}

func formatLoads(w io.Writer, loads []model.LoadEvent) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOADED\tDIALECT\tROWS\tSOURCE")
	for _, l := range loads {
		id := l.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", id, l.LoadedAt.Format("2006-01-02 15:04"), l.Dialect, l.Rows, l.Source)
	}
	tw.Flush() //nolint:errcheck
}

func addSettingsFlags(flags *pflag.FlagSet) {
	flags.String("base-url", "", "API base URL, empty for same origin")
	flags.String("data-path", "", "path of the records endpoint")
	flags.String("predict-path", "", "path of the prediction endpoint")
}

func init() {
	addSettingsFlags(settingsSetCmd.Flags())
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)

	loadsCmd.Flags().String("source", "", "only loads from this source")
	loadsCmd.Flags().Int("limit", store.DefaultLoadLimit, "max loads to list")
	rootCmd.AddCommand(loadsCmd)
}
