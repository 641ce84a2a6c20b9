package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/card-issuing-backend/cmd/flags"
	"github.com/ruteri/card-issuing-backend/httpserver"
	"github.com/ruteri/card-issuing-backend/provisioner"
	"github.com/ruteri/card-issuing-backend/storage"
)

var cliFlags = append(append([]cli.Flag{
	flags.ListenAddrFlag,
}, flags.CommonFlags...), flags.IssuerFlags...)

func main() {
	app := &cli.App{
		Name:  "card-issuing-server",
		Usage: "Serve the card issuing API",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			client := flags.NewIssuerClient(cCtx, logger)

			storeFactory := storage.NewStoreFactory(logger)
			store, err := storeFactory.CreateMultiStore(cCtx.StringSlice(flags.CardStoreFlag.Name))
			if err != nil {
				logger.Error("Failed to create card store", "err", err)
				return err
			}
			logger.Info("Card store ready", "store", store.Name())

			prov, err := provisioner.New(provisioner.Config{
				Client: client,
				Store:  store,
				Log:    logger,
			})
			if err != nil {
				logger.Error("Failed to create provisioner", "err", err)
				return err
			}

			handler := httpserver.NewHandler(prov, client, flags.ChainID(cCtx), logger)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
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

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
