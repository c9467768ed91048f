package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long:  "Serves the loaded table, its charts, feature ranking and the prediction proxy over HTTP. Pass --load to start with a dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sess, err := newSession()
		if err != nil {
			return err
		}
		loader := newLoader()

		if source, _ := cmd.Flags().GetString("load"); source != "" {
			recs, err := loader.Load(ctx, source)
			if err != nil {
				return err
			}
			snap, err := sess.Load(ctx, source, recs)
			if err != nil {
				return err
			}
			if err := st.RecordLoad(ctx, dataset.Event(snap)); err != nil {
				zap.L().Warn("record load failed", zap.Error(err))
			}
		}

		srv := server.New(server.Deps{
			Session:        sess,
			Store:          st,
			Loader:         loader,
			APIDefaults:    apiDefaults(),
			NewClient:      func(s model.APISettings) api.Client { return newAPIClient(s) },
			Ranking:        rankingRequest(),
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().String("load", "", "dataset to load at startup")
	serveCmd.Flags().StringVar(&dialectOverride, "dialect", "", "column dialect (default from config)")
	rootCmd.AddCommand(serveCmd)
}
