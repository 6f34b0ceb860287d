package main

import (
	"log"
	"os"

	"github.com/ruteri/ddssec-engine/cmd/flags"
	"github.com/ruteri/ddssec-engine/common"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "ddssec",
		Usage:   "DDS-Security crypto engine",
		Version: common.Version,
		Flags:   flags.LogFlags,
		Commands: []*cli.Command{
			serveCommand,
			handshakeCommand,
			encryptCommand,
			decryptCommand,
			keymaterialCommand,
			objectCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
