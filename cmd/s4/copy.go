package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
)

func newCopyCommand() *cli.Command {
	return &cli.Command{
		Name:      "cp",
		Usage:     "copy a single object or file",
		ArgsUsage: "SOURCE DESTINATION",
		Action: func(c *cli.Context) error {
			return runCopy(c, false)
		},
	}
}

func newMoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "mv",
		Usage:     "move a single object or file",
		ArgsUsage: "SOURCE DESTINATION",
		Action: func(c *cli.Context) error {
			return runCopy(c, true)
		},
	}
}

func runCopy(c *cli.Context, deleteSource bool) error {
	if c.NArg() != 2 {
		verb := "cp"
		if deleteSource {
			verb = "mv"
		}
		return exitErr(errs.Configf("usage: s4 %s SOURCE DESTINATION", verb))
	}

	srcArg := c.Args().Get(0)
	dstArg := c.Args().Get(1)
	store := aliasStore(c)

	srcT, srcRemote := store.ResolveObject(srcArg)
	dstT, dstRemote := store.ResolveRemote(dstArg)

	var err error
	switch {
	case srcRemote && dstRemote:
		err = copyRemoteRemote(c, srcT, dstT)
	case srcRemote:
		err = copyRemoteLocal(c, srcT, dstArg)
	case dstRemote:
		err = copyLocalRemote(c, srcArg, dstT)
	default:
		err = copyLocalLocal(srcArg, dstArg)
	}
	if err != nil {
		return exitErr(err)
	}

	if deleteSource {
		if srcRemote {
			root, err := bucketRoot(c, srcT)
			if err != nil {
				return exitErr(err)
			}
			if err := root.Delete(c.Context, srcT.Key); err != nil {
				return exitErr(fmt.Errorf("copied, but removing source failed: %w", err))
			}
		} else if err := os.Remove(srcArg); err != nil {
			return exitErr(fmt.Errorf("copied, but removing source failed: %w", err))
		}
	}

	if c.Bool("json") {
		return printJSON(struct {
			Source      string `json:"source"`
			Destination string `json:"destination"`
			Moved       bool   `json:"moved"`
		}{srcArg, dstArg, deleteSource})
	}
	fmt.Printf("%s -> %s\n", srcArg, dstArg)
	return nil
}

// destKey fills in the destination key when the target names a bucket
// or a prefix ending in a slash.
func destKey(t config.Target, sourceName string) string {
	switch {
	case t.Key == "":
		return path.Base(sourceName)
	case strings.HasSuffix(t.Key, "/"):
		return t.Key + path.Base(sourceName)
	default:
		return t.Key
	}
}

func copyRemoteRemote(c *cli.Context, src, dst config.Target) error {
	key := destKey(dst, src.Key)

	// Same alias means same endpoint: let the server copy.
	if src.Alias == dst.Alias {
		client, err := remoteClient(c, src.Alias)
		if err != nil {
			return err
		}
		return client.CopyObject(c.Context, src.Bucket, src.Key, dst.Bucket, key)
	}

	srcRoot, err := bucketRoot(c, src)
	if err != nil {
		return err
	}
	dstRoot, err := bucketRoot(c, dst)
	if err != nil {
		return err
	}
	return streamBetween(c.Context, srcRoot, src.Key, dstRoot, key)
}

func copyRemoteLocal(c *cli.Context, src config.Target, local string) error {
	root, err := bucketRoot(c, src)
	if err != nil {
		return err
	}
	_, err = downloadTo(c.Context, root, src.Key, local)
	return err
}

func copyLocalRemote(c *cli.Context, local string, dst config.Target) error {
	root, err := bucketRoot(c, dst)
	if err != nil {
		return err
	}
	_, err = uploadFile(c.Context, root, destKey(dst, filepath.Base(local)), local)
	return err
}

func copyLocalLocal(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if info.IsDir() {
		return errs.Configf("%s is a directory, use `s4 sync` for trees", src)
	}
	if di, err := os.Stat(dst); err == nil && di.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("preparing %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".s4-cp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// streamBetween moves one object across endpoints, chunked when it is
// above the multipart threshold so each part can be retried by the
// stores independently.
func streamBetween(ctx context.Context, src *storage.RemoteStore, srcKey string, dst *storage.RemoteStore, dstKey string) error {
	entry, err := src.Stat(ctx, srcKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return fmt.Errorf("object %s does not exist", src.Ref(srcKey))
		}
		return err
	}

	contentType := entry.ContentType

	if entry.Size <= domain.MultipartThreshold {
		r, err := src.Get(ctx, srcKey)
		if err != nil {
			return err
		}
		defer r.Close()
		return dst.Put(ctx, dstKey, r, entry.Size, contentType)
	}

	cfg := config.Load()
	plan := domain.NewPartPlan(entry.Size, cfg.Transfer.PartSize)

	uploadID, err := dst.InitiateMultipart(ctx, dstKey, contentType)
	if err != nil {
		return err
	}

	parts := make([]storage.CompletedPart, plan.PartCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Transfer.PartConcurrency)

	for _, pr := range plan.Ranges {
		pr := pr
		g.Go(func() error {
			r, err := src.GetRange(gctx, srcKey, pr.Offset, pr.Length)
			if err != nil {
				return fmt.Errorf("part %d: %w", pr.Index, err)
			}
			defer r.Close()

			etag, err := dst.UploadPart(gctx, dstKey, uploadID, pr, r)
			if err != nil {
				return fmt.Errorf("part %d: %w", pr.Index, err)
			}
			parts[pr.Index-1] = storage.CompletedPart{Index: pr.Index, ETag: etag}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		abortUpload(dst, dstKey, uploadID)
		return err
	}
	if err := dst.CompleteMultipart(ctx, dstKey, uploadID, parts); err != nil {
		abortUpload(dst, dstKey, uploadID)
		return err
	}
	return nil
}
