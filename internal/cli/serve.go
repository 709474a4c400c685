package cli

import (
	"github.com/fpawel/gasflow/internal/app"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/fpawel/gasflow/internal/pkg/logfile"
	"github.com/spf13/cobra"
)

func serveCmd(g *globals) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculation API and static files over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := g.cfg
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if cfg.HTTP.LogFile {
				f, err := logfile.New("")
				if err != nil {
					return err
				}
				defer log.ErrIfFail(f.Close)
				pkg.TeeLog(f)
				log.Debug("log file", "file", f.Name())
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return app.Run(ctx, cfg)
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address; overrides http.addr of the config")
	return c
}
