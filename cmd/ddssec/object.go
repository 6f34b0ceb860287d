package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ruteri/ddssec-engine/cmd/flags"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/urfave/cli/v2"
)

var (
	flagStore = &cli.StringFlag{
		Name:     "store",
		Required: true,
		Usage:    "object store URI",
	}
	flagOut = &cli.StringFlag{
		Name:  "out",
		Usage: "write the object to this file instead of stdout",
	}
)

func openStore(cCtx *cli.Context) (interfaces.ObjectStore, error) {
	logger := flags.SetupLogger(cCtx)
	factory, _, err := flags.StorageFactory(cCtx, logger)
	if err != nil {
		return nil, err
	}
	return factory.StoreForURI(cCtx.String(flagStore.Name))
}

func objectName(cCtx *cli.Context) (string, error) {
	name := cCtx.Args().First()
	if err := interfaces.ValidateObjectName(name); err != nil {
		return "", err
	}
	return name, nil
}

var objectCommand = &cli.Command{
	Name:  "object",
	Usage: "Read and write identity objects in an object store",
	Subcommands: []*cli.Command{
		{
			Name:      "put",
			Usage:     "Store a file as an object",
			ArgsUsage: "<name> <file>",
			Flags:     []cli.Flag{flagStore, flags.SealPassphraseFlag},
			Action: func(cCtx *cli.Context) error {
				name, err := objectName(cCtx)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(cCtx.Args().Get(1))
				if err != nil {
					return err
				}
				store, err := openStore(cCtx)
				if err != nil {
					return err
				}
				if err := store.Store(context.Background(), name, data); err != nil {
					return err
				}
				fmt.Printf("stored %s (%d bytes) in %s\n", name, len(data), store.LocationURI())
				return nil
			},
		},
		{
			Name:      "get",
			Usage:     "Fetch an object",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{flagStore, flags.SealPassphraseFlag, flagOut},
			Action: func(cCtx *cli.Context) error {
				name, err := objectName(cCtx)
				if err != nil {
					return err
				}
				store, err := openStore(cCtx)
				if err != nil {
					return err
				}
				data, err := store.Load(context.Background(), name)
				if err != nil {
					return err
				}
				if out := cCtx.String(flagOut.Name); out != "" {
					return os.WriteFile(out, data, 0o600)
				}
				_, err = os.Stdout.Write(data)
				return err
			},
		},
	},
}
