package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/streamgate/cmd/app/commands"
	"github.com/allisson/streamgate/internal/app"
	"github.com/allisson/streamgate/internal/config"
)

// withDeviceUseCase builds a container against a persistent registry and runs fn.
func withDeviceUseCase(ctx context.Context, fn func(container *app.Container) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := commands.RequirePersistentRegistry(cfg.DBDriver); err != nil {
		return err
	}

	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	return fn(container)
}

func deviceIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "device-id",
		Aliases:  []string{"d"},
		Required: true,
		Usage:    "Device identifier",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getDeviceCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-device",
			Usage: "Issue a token for a device, replacing any previous token",
			Flags: []cli.Flag{
				deviceIDFlag(),
				&cli.IntFlag{
					Name:    "ttl",
					Aliases: []string{"t"},
					Usage:   "Token lifetime in minutes (defaults to TOKEN_DEFAULT_TTL_MINUTES)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceUseCase(ctx, func(container *app.Container) error {
					useCase, err := container.DeviceUseCase()
					if err != nil {
						return err
					}

					return commands.RunCreateDevice(
						ctx,
						useCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("device-id"),
						int(cmd.Int("ttl")),
						container.Config().TokenEnforceLatest,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "list-devices",
			Usage: "List registered devices",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceUseCase(ctx, func(container *app.Container) error {
					useCase, err := container.DeviceUseCase()
					if err != nil {
						return err
					}

					return commands.RunListDevices(
						ctx,
						useCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						time.Now(),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "revoke-device",
			Usage: "Revoke a device so its token is rejected",
			Flags: []cli.Flag{deviceIDFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceUseCase(ctx, func(container *app.Container) error {
					useCase, err := container.DeviceUseCase()
					if err != nil {
						return err
					}

					return commands.RunRevokeDevice(
						ctx,
						useCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("device-id"),
					)
				})
			},
		},
		{
			Name:  "delete-device",
			Usage: "Remove a device from the registry",
			Flags: []cli.Flag{deviceIDFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceUseCase(ctx, func(container *app.Container) error {
					useCase, err := container.DeviceUseCase()
					if err != nil {
						return err
					}

					return commands.RunDeleteDevice(
						ctx,
						useCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("device-id"),
					)
				})
			},
		},
		{
			Name:  "verify-device-token",
			Usage: "Check whether a token is currently accepted for a device",
			Flags: []cli.Flag{
				deviceIDFlag(),
				&cli.StringFlag{
					Name:     "token",
					Required: true,
					Usage:    "Device token",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceUseCase(ctx, func(container *app.Container) error {
					useCase, err := container.DeviceUseCase()
					if err != nil {
						return err
					}

					return commands.RunVerifyDeviceToken(
						ctx,
						useCase,
						commands.DefaultIO().Writer,
						cmd.String("device-id"),
						cmd.String("token"),
					)
				})
			},
		},
	}
}
