package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/model"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <source>",
	Short: "Map a table onto the canonical exoplanet schema",
	Long:  "Loads a CSV, JSON, XLSX, VOTable or ZIP table from a path, http(s) or ftp URL, normalizes every row and writes the canonical rows as JSON or CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("normalize"); err != nil {
			return err
		}

		saveRaw, _ := cmd.Flags().GetString("save-raw")
		snap, err := loadSourceSaving(ctx, args[0], saveRaw)
		if err != nil {
			return err
		}
		if record, _ := cmd.Flags().GetBool("record"); record {
			recordLoad(ctx, snap)
		}

		rows, err := selectRows(cmd.Flags(), snap.Rows)
		if err != nil {
			return err
		}

		out := io.Writer(os.Stdout)
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrapf(err, "create %s", path)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		format, _ := cmd.Flags().GetString("format")
		if err := writeRows(out, format, rows); err != nil {
			return err
		}

		zap.L().Info("normalize complete",
			zap.String("source", snap.Source),
			zap.String("dialect", snap.Dialect),
			zap.Int("rows", len(snap.Rows)),
			zap.Int("written", len(rows)),
		)
		return nil
	},
}

// selectRows applies the filter, earth-like and sort flags.
func selectRows(flags *pflag.FlagSet, rows []model.CanonicalRow) ([]model.CanonicalRow, error) {
	var f dataset.Filter
	f.Name, _ = flags.GetString("name")
	var err error
	if f.MinRadius, err = finiteFlag(flags, "min-radius"); err != nil {
		return nil, err
	}
	if f.MaxRadius, err = finiteFlag(flags, "max-radius"); err != nil {
		return nil, err
	}
	if flags.Changed("min-year") {
		v, _ := flags.GetInt("min-year")
		f.MinYear = &v
	}
	if flags.Changed("max-year") {
		v, _ := flags.GetInt("max-year")
		f.MaxYear = &v
	}
	rows = f.Apply(rows)

	if earth, _ := flags.GetBool("earth-like"); earth {
		rows = dataset.EarthLike(rows)
	}

	if key, _ := flags.GetString("sort"); key != "" {
		desc, _ := flags.GetBool("desc")
		if err := dataset.SortBy(rows, model.FieldID(key), desc); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func finiteFlag(flags *pflag.FlagSet, name string) (*float64, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, _ := flags.GetFloat64(name)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, eris.Errorf("--%s must be a finite number", name)
	}
	return &v, nil
}

func writeRows(w io.Writer, format string, rows []model.CanonicalRow) error {
	switch format {
	case "csv":
		return dataset.WriteCSV(w, rows)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rows), "encode rows")
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", format)
	}
}

func addFilterFlags(flags *pflag.FlagSet) {
	flags.String("name", "", "keep rows whose name contains this text")
	flags.Float64("min-radius", 0, "minimum radius in Earth radii")
	flags.Float64("max-radius", 0, "maximum radius in Earth radii")
	flags.Int("min-year", 0, "earliest discovery year")
	flags.Int("max-year", 0, "latest discovery year")
	flags.Bool("earth-like", false, "keep only Earth-like planets")
	flags.String("sort", "", "canonical field to sort by")
	flags.Bool("desc", false, "sort descending")
}

func init() {
	normalizeCmd.Flags().StringVar(&dialectOverride, "dialect", "", "column dialect (default from config)")
	normalizeCmd.Flags().String("format", "json", "output format: json or csv")
	normalizeCmd.Flags().String("out", "", "write to file instead of stdout")
	normalizeCmd.Flags().Bool("record", false, "append the load to the history store")
	normalizeCmd.Flags().String("save-raw", "", "keep a copy of the fetched source at this path")
	addFilterFlags(normalizeCmd.Flags())
	rootCmd.AddCommand(normalizeCmd)
}
