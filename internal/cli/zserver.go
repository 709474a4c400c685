package cli

import (
	"github.com/fpawel/gasflow/internal/evaluator/leekesler"
	"github.com/fpawel/gasflow/internal/evaluator/thrifteval"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/spf13/cobra"
)

func zserverCmd(g *globals) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "zserver",
		Short: "Serve the configured Z evaluator over thrift",
		Long: `Serve the configured Z evaluator over thrift binary protocol.
Lee-Kesler is served when no evaluator is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := g.cfg.Evaluator.New()
			if err != nil {
				return err
			}
			if ev == nil {
				ev = leekesler.New()
			}
			if closer, ok := ev.(interface{ Close() error }); ok {
				defer log.ErrIfFail(closer.Close)
			}
			return serveThrift(cmd, addr, ev)
		},
	}
	c.Flags().StringVar(&addr, "addr", "127.0.0.1:9090", "listen address")
	return c
}

func serveThrift(cmd *cobra.Command, addr string, ev zfactor.Evaluator) error {
	srv, err := thrifteval.Listen(addr, ev)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	go func() {
		<-ctx.Done()
		log.ErrIfFail(srv.Stop)
	}()
	log.Info("serve thrift", "addr", srv.Addr())
	return srv.Serve()
}
