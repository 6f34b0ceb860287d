package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/ddssec-engine/client"
	"github.com/ruteri/ddssec-engine/cmd/flags"
	"github.com/ruteri/ddssec-engine/common"
	"github.com/ruteri/ddssec-engine/httpserver"
	"github.com/ruteri/ddssec-engine/metrics"
	"github.com/ruteri/ddssec-engine/ta"
	"github.com/urfave/cli/v2"
)

var flagSelfTest = &cli.BoolFlag{
	Name:  "self-test",
	Value: true,
	Usage: "run a handshake between two sessions on the engine before serving",
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run an engine with the ops HTTP server and metrics",
	Flags: append(append([]cli.Flag{flagSelfTest}, flags.ServerFlags...), flags.EngineFlags...),
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)

		eng, err := flags.NewEngine(cCtx, logger)
		if err != nil {
			logger.Error("Failed to create engine", "err", err)
			return err
		}
		defer eng.Close()

		server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), httpserver.NewHandler(eng, logger))
		if err != nil {
			logger.Error("Failed to create server", "err", err)
			return err
		}
		commandMetrics, err := metrics.NewCommandMetrics(common.PackageName, server.Metrics().Registry)
		if err != nil {
			logger.Error("Failed to register command metrics", "err", err)
			return err
		}

		if cCtx.Bool(flagSelfTest.Name) {
			ctx := context.Background()
			initiator := client.New(ta.NewSession(eng, logger, commandMetrics))
			responder := client.New(ta.NewSession(eng, logger, commandMetrics))
			ki, kr, err := client.Handshake(ctx, initiator, responder, 32)
			if err != nil {
				logger.Error("Self-test handshake failed", "err", err)
				return err
			}
			initiator.DeleteKeyMaterial(ctx, ki)
			responder.DeleteKeyMaterial(ctx, kr)
			logger.Info("Self-test handshake passed")
		}

		server.RunInBackground()

		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

		logger.Info("Server is running, press Ctrl+C to stop")
		<-exit
		logger.Info("Shutdown signal received")

		server.Shutdown()
		logger.Info("Server shutdown complete")
		return nil
	},
}
