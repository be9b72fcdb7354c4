package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/internal/server"
	"github.com/toucan4life/gamemap/pkg/metrics"
	"github.com/toucan4life/gamemap/pkg/store"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve neighborhoods and live viewer sessions over HTTP",
		Long: `Serve the HTTP API.

Browser clients create viewer sessions, poll their GeoJSON sources, forward
clicks and selections, and save layout snapshots. Prometheus metrics are
exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	logger := loggerFromContext(ctx)
	cfg := c.settings()

	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := store.Open(ctx, store.Options{
		Backend:    cfg.Store.Backend,
		MongoURI:   cfg.Store.MongoURI,
		Database:   cfg.Store.Database,
		Collection: cfg.Store.Collection,
	})
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer st.Close(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	m.Install()

	serverCfg := cfg.Server
	if addr != "" {
		serverCfg.Addr = addr
	}
	srv := server.New(server.Options{
		Builder:  e.builder,
		Store:    st,
		Metrics:  m,
		Gatherer: reg,
		Server:   serverCfg,
		Viewer:   cfg.Viewer,
		Layout:   cfg.Layout,
		Style:    cfg.Style,
		Depth:    cfg.Fetch.Depth,
		Logger:   logger,
	})
	defer srv.Close()

	printSuccess("Listening on %s", StyleLink.Render(serverCfg.Addr))
	printKeyValue("Snapshots", backendName(cfg.Store.Backend))
	printKeyValue("Cache", backendName(cfg.Cache.Backend))
	printKeyValue("Metrics", "/metrics")
	return srv.ListenAndServe(ctx)
}

func backendName(b string) string {
	if b == "" {
		return "default"
	}
	return b
}
