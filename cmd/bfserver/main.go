// Command bfserver serves the translator over HTTP.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bfasm/api"
	"github.com/sarchlab/bfasm/config"
	"github.com/sarchlab/bfasm/server"
	"github.com/sarchlab/bfasm/store"
)

func main() {
	var (
		cfgPath string
		addr    string
	)

	cmd := &cobra.Command{
		Use:           "bfserver",
		Short:         "Serve the Brainfuck translator over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger := cfg.Log.NewLogger(os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			recorder, err := store.New(ctx, cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer recorder.Close()

			driver := api.DriverBuilder{}.
				WithLogger(logger).
				WithExtensions(cfg.InputExt, cfg.OutputExt).
				Build()

			srv := server.Builder{}.
				WithCompiler(driver).
				WithRecorder(recorder).
				WithLogger(logger).
				WithMaxBody(cfg.Server.MaxBody).
				WithReadTimeout(cfg.Server.ReadTimeout).
				Build()

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}

			fmt.Printf("Connect to %s\n", ln.Addr())
			logger.Info("listening",
				"addr", ln.Addr().String(),
				"store", cfg.Store.Driver,
			)

			return srv.Serve(ctx, ln, cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "bfserver:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
