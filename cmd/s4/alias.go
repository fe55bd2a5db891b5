package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/errs"
)

func newAliasCommand() *cli.Command {
	return &cli.Command{
		Name:  "alias",
		Usage: "manage storage endpoint aliases",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "add or replace an alias",
				ArgsUsage: "NAME ENDPOINT ACCESS_KEY SECRET_KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "region",
						Usage: "signing region",
						Value: config.DefaultRegion,
					},
					&cli.BoolFlag{
						Name:  "path-style",
						Usage: "address buckets in the URL path instead of the host",
					},
				},
				Action: runAliasSet,
			},
			{
				Name:   "list",
				Usage:  "show configured aliases",
				Action: runAliasList,
			},
			{
				Name:      "remove",
				Usage:     "delete an alias",
				ArgsUsage: "NAME",
				Action:    runAliasRemove,
			},
		},
	}
}

func runAliasSet(c *cli.Context) error {
	if c.NArg() != 4 {
		return exitErr(errs.Configf("usage: s4 alias set NAME ENDPOINT ACCESS_KEY SECRET_KEY"))
	}

	name := c.Args().Get(0)
	if strings.Contains(name, "/") {
		return exitErr(errs.Configf("alias name %q must not contain '/'", name))
	}

	store := aliasStore(c)
	store.Set(name, config.Alias{
		Endpoint:  c.Args().Get(1),
		AccessKey: c.Args().Get(2),
		SecretKey: c.Args().Get(3),
		Region:    c.String("region"),
		PathStyle: c.Bool("path-style"),
	})
	if err := store.Save(); err != nil {
		return exitErr(err)
	}

	fmt.Printf("alias %s saved\n", name)
	return nil
}

func runAliasList(c *cli.Context) error {
	store := aliasStore(c)

	for _, name := range store.Names() {
		a, _ := store.Get(name)
		if c.Bool("json") {
			if err := printJSON(struct {
				Name string `json:"name"`
				config.Alias
			}{Name: name, Alias: a}); err != nil {
				return exitErr(err)
			}
			continue
		}
		fmt.Printf("%-16s %s region=%s access_key=%s secret_key=%s\n",
			name, a.Endpoint, a.Region, a.AccessKey, maskSecret(a.SecretKey))
	}
	return nil
}

func runAliasRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return exitErr(errs.Configf("usage: s4 alias remove NAME"))
	}

	name := c.Args().Get(0)
	store := aliasStore(c)
	if !store.Remove(name) {
		return exitErr(errs.Configf("alias %q does not exist", name))
	}
	if err := store.Save(); err != nil {
		return exitErr(err)
	}

	fmt.Printf("alias %s removed\n", name)
	return nil
}

// maskSecret keeps the first four characters so an operator can tell
// keys apart without exposing them.
func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
