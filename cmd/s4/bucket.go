package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
	"github.com/agnesscodex/s4/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05"

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list buckets or objects",
		ArgsUsage: "[TARGET]",
		Action:    runList,
	}
}

func newMakeBucketCommand() *cli.Command {
	return &cli.Command{
		Name:      "mb",
		Usage:     "create a bucket",
		ArgsUsage: "ALIAS/BUCKET",
		Action:    runMakeBucket,
	}
}

func newRemoveBucketCommand() *cli.Command {
	return &cli.Command{
		Name:      "rb",
		Usage:     "remove an empty bucket",
		ArgsUsage: "ALIAS/BUCKET",
		Action:    runRemoveBucket,
	}
}

func runList(c *cli.Context) error {
	store := aliasStore(c)

	// No target: all buckets across every configured alias.
	if c.NArg() == 0 {
		var failed int
		for _, name := range store.Names() {
			if err := listBuckets(c, name); err != nil {
				logger.Log.Warn().Err(err).Str("alias", name).Msg("listing buckets failed")
				failed++
			}
		}
		if failed > 0 {
			return exitErr(fmt.Errorf("listing failed for %d alias(es)", failed))
		}
		return nil
	}

	t, err := config.ParseTarget(c.Args().Get(0))
	if err != nil {
		return exitErr(err)
	}
	if _, ok := store.Get(t.Alias); !ok {
		return exitErr(errs.Configf("alias %q is not configured", t.Alias))
	}
	if t.Bucket == "" {
		if err := listBuckets(c, t.Alias); err != nil {
			return exitErr(err)
		}
		return nil
	}
	return exitErr(listObjects(c, t))
}

func listBuckets(c *cli.Context, alias string) error {
	client, err := remoteClient(c, alias)
	if err != nil {
		return err
	}
	buckets, err := client.ListBuckets(c.Context)
	if err != nil {
		return err
	}

	for _, b := range buckets {
		if c.Bool("json") {
			if err := printJSON(struct {
				Alias   string `json:"alias"`
				Name    string `json:"name"`
				Created string `json:"created"`
			}{alias, b.Name, b.Created.Format(timeLayout)}); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s %s/%s\n", b.Created.Format(timeLayout), alias, b.Name)
	}
	return nil
}

func listObjects(c *cli.Context, t config.Target) error {
	scoped, err := openRemote(c, t)
	if err != nil {
		return err
	}
	entries, err := scoped.List(c.Context)
	if err != nil {
		return err
	}

	// A key that names an exact object lists nothing as a prefix; fall
	// back to a stat so `ls alias/bucket/path/file` still shows it.
	if len(entries) == 0 && t.Key != "" {
		root, err := bucketRoot(c, t)
		if err != nil {
			return err
		}
		entry, statErr := root.Stat(c.Context, t.Key)
		if statErr == nil {
			return printEntry(c, entry)
		}
		if !errors.Is(statErr, storage.ErrNotExist) {
			return statErr
		}
	}

	for _, e := range entries {
		if err := printEntry(c, e); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(c *cli.Context, e domain.ObjectEntry) error {
	if c.Bool("json") {
		return printJSON(e)
	}
	_, err := fmt.Printf("%s %10s %s\n",
		e.LastModified.Format(timeLayout), humanize.IBytes(uint64(e.Size)), e.Key)
	return err
}

func runMakeBucket(c *cli.Context) error {
	t, err := bucketTarget(c)
	if err != nil {
		return exitErr(err)
	}
	client, err := remoteClient(c, t.Alias)
	if err != nil {
		return exitErr(err)
	}
	if err := client.MakeBucket(c.Context, t.Bucket); err != nil {
		return exitErr(err)
	}
	fmt.Printf("bucket %s created\n", t.String())
	return nil
}

func runRemoveBucket(c *cli.Context) error {
	t, err := bucketTarget(c)
	if err != nil {
		return exitErr(err)
	}
	client, err := remoteClient(c, t.Alias)
	if err != nil {
		return exitErr(err)
	}
	if err := client.RemoveBucket(c.Context, t.Bucket); err != nil {
		return exitErr(err)
	}
	fmt.Printf("bucket %s removed\n", t.String())
	return nil
}

func bucketTarget(c *cli.Context) (config.Target, error) {
	if c.NArg() != 1 {
		return config.Target{}, errs.Configf("exactly one ALIAS/BUCKET argument required")
	}
	t, err := config.ParseTarget(c.Args().Get(0))
	if err != nil {
		return config.Target{}, err
	}
	if t.Bucket == "" || t.Key != "" {
		return config.Target{}, errs.Configf("%q must name a bucket as ALIAS/BUCKET", c.Args().Get(0))
	}
	if _, ok := aliasStore(c).Get(t.Alias); !ok {
		return config.Target{}, errs.Configf("alias %q is not configured", t.Alias)
	}
	return t, nil
}
