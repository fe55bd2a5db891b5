// cmd/s4/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
	"github.com/agnesscodex/s4/pkg/logger"
)

// version is stamped by the release build.
var version = "dev"

const (
	exitOK = iota
	exitFailure
	exitConfig
)

type contextKey string

const aliasStoreKey contextKey = "alias-store"

func main() {
	// A .env next to the binary is a convenience for development; its
	// absence is not an error.
	_ = godotenv.Load()

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "s4: %v\n", err)
		os.Exit(exitFailure)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "s4",
		Usage:   "client for S3-compatible object storage",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Aliases: []string{"C"},
				Usage:   "directory holding the alias file",
				EnvVars: []string{"S4_CONFIG_DIR"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "machine-readable output, one JSON object per line",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose logging",
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "skip TLS certificate verification",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			newAliasCommand(),
			newListCommand(),
			newMakeBucketCommand(),
			newRemoveBucketCommand(),
			newPutCommand(),
			newGetCommand(),
			newCatCommand(),
			newStatCommand(),
			newRemoveCommand(),
			newCopyCommand(),
			newMoveCommand(),
			newSyncCommand(),
		},
	}
}

// setup configures logging and opens the alias store before any command
// runs. Alias file problems are configuration errors: nothing can run
// without credentials.
func setup(c *cli.Context) error {
	if c.Bool("debug") {
		logger.SetLevel("debug")
	}
	if c.Bool("json") {
		logger.SetJSON()
	}

	dir := c.String("config-dir")
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return exitErr(err)
		}
		dir = d
	}

	store, err := config.OpenAliasStore(dir)
	if err != nil {
		return exitErr(err)
	}

	c.Context = context.WithValue(c.Context, aliasStoreKey, store)
	return nil
}

func aliasStore(c *cli.Context) *config.AliasStore {
	store, _ := c.Context.Value(aliasStoreKey).(*config.AliasStore)
	return store
}

// exitErr maps an error to the command's exit code: configuration
// problems exit 2, everything else 1.
func exitErr(err error) error {
	if err == nil {
		return nil
	}
	code := exitFailure
	if errs.IsConfig(err) {
		code = exitConfig
	}
	return cli.Exit(err.Error(), code)
}

// remoteClient opens a client for one configured alias. A client that
// cannot be built from the stored settings is a configuration problem,
// same as the alias missing outright.
func remoteClient(c *cli.Context, name string) (*storage.RemoteClient, error) {
	a, ok := aliasStore(c).Get(name)
	if !ok {
		return nil, errs.Configf("alias %q is not configured, run `s4 alias set` first", name)
	}
	client, err := storage.NewRemoteClient(storage.RemoteConfig{
		Endpoint:  a.Endpoint,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		Region:    a.Region,
		PathStyle: a.PathStyle,
		Insecure:  c.Bool("insecure"),
	})
	if err != nil {
		return nil, errs.ConfigWrap(err, fmt.Sprintf("alias %q", name))
	}
	return client, nil
}

// openRemote scopes a store at the target's bucket and key prefix.
func openRemote(c *cli.Context, t config.Target) (*storage.RemoteStore, error) {
	client, err := remoteClient(c, t.Alias)
	if err != nil {
		return nil, err
	}
	return client.Scope(t.Alias, t.Bucket, t.Key), nil
}

// bucketRoot scopes a store at the target's bucket with no key prefix,
// for commands that address single objects by full key.
func bucketRoot(c *cli.Context, t config.Target) (*storage.RemoteStore, error) {
	client, err := remoteClient(c, t.Alias)
	if err != nil {
		return nil, err
	}
	return client.Scope(t.Alias, t.Bucket, ""), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}
