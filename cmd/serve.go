package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"rfm-segments/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve segmentation over HTTP",
		Long: `Start an HTTP service. POST a CSV of invoice lines to /v1/segmentation
and receive the scored and segmented customers as JSON.

Examples:
  rfm-segments serve --addr :9090
  curl --data-binary @online_retail.csv 'localhost:9090/v1/segmentation?segment=champions'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			return server.New(a.cfg, a.logger).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	return cmd
}
