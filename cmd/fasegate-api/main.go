// Package main provides the Fasegate API server implementation.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/nvelasco/fasegate/pkg/catalog"
	"github.com/nvelasco/fasegate/pkg/clients"
	"github.com/nvelasco/fasegate/pkg/cmd"
	"github.com/nvelasco/fasegate/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "fasegate-api",
		Usage:                 "Phase progression panel API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "collaborator-url",
				Usage:    "Base URL of the collaborator REST API (catalog, products, roles, permissions)",
				Required: true,
				Sources:  cli.EnvVars("COLLABORATOR_URL"),
			},
			&cli.StringFlag{
				Name:    "ledger-url",
				Usage:   "Completion record store: postgres URL, \"memory\", or a collaborator base URL",
				Value:   "",
				Sources: cli.EnvVars("LEDGER_URL"),
			},
			&cli.StringFlag{
				Name:    "session-store",
				Usage:   "Session store: redis URL or \"memory\"",
				Value:   "memory",
				Sources: cli.EnvVars("SESSION_STORE"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Value:    "gochannel",
				Required: false,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "maildrop",
				Usage:   "Notification mail hand-off: smtp://host:port?from=addr or file:///spool/dir",
				Value:   "file:///tmp/fasegate-mail",
				Sources: cli.EnvVars("MAILDROP_URL"),
			},
			&cli.StringFlag{
				Name:     "supervisor-emails",
				Usage:    "Configured supervisor addresses, semicolon or comma separated",
				Required: true,
				Sources:  cli.EnvVars("SUPERVISOR_EMAILS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Fasegate API")

			collaborator := clients.New(command.String("collaborator-url"), logger)
			cat := catalog.New(collaborator)

			ledgerURL := command.String("ledger-url")
			if ledgerURL == "" {
				ledgerURL = command.String("collaborator-url")
			}

			store, err := cmd.NewLedgerStore(ctx, logger, ledgerURL)
			if err != nil {
				return err
			}

			sessions, err := cmd.NewSessionStore(ctx, command.String("session-store"))
			if err != nil {
				return err
			}

			defer func() {
				if err := sessions.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close session store", "error", err)
				}
			}()

			composer, err := cmd.NewComposer(command.String("maildrop"))
			if err != nil {
				return err
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				sessions,
				cat,
				store,
				collaborator,
				composer,
				eventBus,
				command.String("supervisor-emails"),
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
