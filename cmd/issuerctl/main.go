// issuerctl is an operator CLI for the card issuing workflow: submit user
// applications, provision deposit contracts and cards, and reveal card
// secrets from the terminal.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/card-issuing-backend/cmd/flags"
	"github.com/ruteri/card-issuing-backend/interfaces"
	"github.com/ruteri/card-issuing-backend/provisioner"
	"github.com/ruteri/card-issuing-backend/storage"
)

var flagUserID = &cli.StringFlag{
	Name:     "user-id",
	Required: true,
	Usage:    "issuer user id to operate on",
}
var flagCardID = &cli.StringFlag{
	Name:     "card-id",
	Required: true,
	Usage:    "issuer card id to operate on",
}
var flagProfile = &cli.StringFlag{
	Name:  "profile",
	Usage: "path to a JSON application profile, '-' for stdin",
}
var flagDisplayName = &cli.StringFlag{
	Name:  "display-name",
	Usage: "display name for the issued card",
}
var flagLimitAmount = &cli.Int64Flag{
	Name:  "limit-amount",
	Usage: "all-time spend limit in dollars, 0 selects the service default",
}
var flagLimit = &cli.IntFlag{
	Name:  "limit",
	Value: 100,
	Usage: "maximum number of entries to list",
}

func main() {
	app := &cli.App{
		Name:  "issuerctl",
		Usage: "Operate the card issuing workflow from the command line",
		Flags: append(append([]cli.Flag{}, flags.IssuerFlags...), flags.LogJsonFlag, flags.LogDebugFlag, flags.LogServiceFlag),
		Commands: []*cli.Command{
			{
				Name:  "apply",
				Usage: "Submit a user application",
				Flags: []cli.Flag{flagProfile},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					profile, err := loadProfile(cCtx.String(flagProfile.Name))
					if err != nil {
						return err
					}
					user, err := c.provisioner.EnsureUser(cCtx.Context, profile)
					if err != nil {
						return err
					}
					if user == nil {
						return printJSON(map[string]string{"status": "exists"})
					}
					return printJSON(user)
				},
			},
			{
				Name:  "status",
				Usage: "Show a user's application state",
				Flags: []cli.Flag{flagUserID},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					user, err := c.client.GetUserApplication(cCtx.Context, cCtx.String(flagUserID.Name))
					if err != nil {
						return err
					}
					if user == nil {
						return fmt.Errorf("user %s not found", cCtx.String(flagUserID.Name))
					}
					return printJSON(user)
				},
			},
			{
				Name:  "provision",
				Usage: "Ensure a deposit contract and working card for a user",
				Flags: []cli.Flag{flagUserID, flagDisplayName, flagLimitAmount},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					result, err := c.provisioner.Provision(cCtx.Context, cCtx.String(flagUserID.Name), flags.ChainID(cCtx), provisioner.CardOptions{
						DisplayName: cCtx.String(flagDisplayName.Name),
						LimitAmount: cCtx.Int64(flagLimitAmount.Name),
					})
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
			{
				Name:  "cards",
				Usage: "List a user's cards",
				Flags: []cli.Flag{flagUserID},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					cards, err := c.client.ListCards(cCtx.Context, cCtx.String(flagUserID.Name), 20)
					if err != nil {
						return err
					}
					return printJSON(cards)
				},
			},
			{
				Name:  "users",
				Usage: "List issuer users",
				Flags: []cli.Flag{flagLimit},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					users, err := c.client.ListUsers(cCtx.Context, cCtx.Int(flagLimit.Name))
					if err != nil {
						return err
					}
					return printJSON(users)
				},
			},
			{
				Name:  "card-balance",
				Usage: "Show a single card's balance",
				Flags: []cli.Flag{flagCardID},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					balance, err := c.client.CardBalance(cCtx.Context, cCtx.String(flagCardID.Name))
					if err != nil {
						return err
					}
					return printJSON(balance)
				},
			},
			{
				Name:  "balances",
				Usage: "Show a user's credit balances",
				Flags: []cli.Flag{flagUserID},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					balances, err := c.client.UserBalances(cCtx.Context, cCtx.String(flagUserID.Name))
					if err != nil {
						return err
					}
					return printJSON(balances)
				},
			},
			{
				Name:  "reveal",
				Usage: "Reveal a card's number and CVC",
				Flags: []cli.Flag{flagCardID},
				Action: func(cCtx *cli.Context) error {
					c, err := newCommandContext(cCtx)
					if err != nil {
						return err
					}
					secrets, err := c.provisioner.RevealSecrets(cCtx.Context, cCtx.String(flagCardID.Name))
					if err != nil {
						return err
					}
					return printJSON(secrets)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type commandContext struct {
	client      interfaces.IssuerClient
	provisioner *provisioner.Provisioner
}

func newCommandContext(cCtx *cli.Context) (*commandContext, error) {
	logger := flags.SetupLogger(cCtx)
	client := flags.NewIssuerClient(cCtx, logger)

	store, err := storage.NewStoreFactory(logger).CreateMultiStore(cCtx.StringSlice(flags.CardStoreFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not create card store: %w", err)
	}

	prov, err := provisioner.New(provisioner.Config{
		Client: client,
		Store:  store,
		Log:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &commandContext{client: client, provisioner: prov}, nil
}

func loadProfile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read profile: %w", err)
	}

	var profile map[string]any
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("could not parse profile: %w", err)
	}
	return profile, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
