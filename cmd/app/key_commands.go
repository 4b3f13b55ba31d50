package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/streamgate/cmd/app/commands"
	"github.com/allisson/streamgate/internal/app"
	"github.com/allisson/streamgate/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-admin-key",
			Usage: "Generate an admin key and the ADMIN_KEY_HASH to configure",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())

				return commands.RunCreateAdminKey(
					container.AdminKeyService(),
					container.Logger(),
					commands.DefaultIO().Writer,
				)
			},
		},
		{
			Name:  "create-signing-key",
			Usage: "Generate a token signing key, optionally encrypted with KMS",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "key",
					Aliases: []string{"k"},
					Usage:   "Existing signing key to encrypt (a random key is generated when omitted)",
				},
				&cli.StringFlag{
					Name:    "kms-key-uri",
					Aliases: []string{"u"},
					Usage:   "KMS key URI (e.g., gcpkms://..., awskms://..., hashivault://..., base64key://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())

				return commands.RunCreateSigningKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("key"),
					cmd.String("kms-key-uri"),
				)
			},
		},
	}
}
