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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
)

func newPutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "upload a file",
		ArgsUsage: "FILE ALIAS/BUCKET[/KEY]",
		Action:    runPut,
	}
}

func newGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "download an object",
		ArgsUsage: "ALIAS/BUCKET/KEY [FILE]",
		Action:    runGet,
	}
}

func newCatCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "write an object to stdout",
		ArgsUsage: "ALIAS/BUCKET/KEY",
		Action:    runCat,
	}
}

func newStatCommand() *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "show object metadata",
		ArgsUsage: "ALIAS/BUCKET/KEY",
		Action:    runStat,
	}
}

func newRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "delete an object",
		ArgsUsage: "ALIAS/BUCKET/KEY",
		Action:    runRemove,
	}
}

func runPut(c *cli.Context) error {
	if c.NArg() != 2 {
		return exitErr(errs.Configf("usage: s4 put FILE ALIAS/BUCKET[/KEY]"))
	}

	local := c.Args().Get(0)
	t, ok := aliasStore(c).ResolveRemote(c.Args().Get(1))
	if !ok {
		return exitErr(errs.Configf("%q is not a configured remote target", c.Args().Get(1)))
	}

	key := t.Key
	switch {
	case key == "":
		key = filepath.Base(local)
	case strings.HasSuffix(key, "/"):
		key += filepath.Base(local)
	}

	dst, err := bucketRoot(c, t)
	if err != nil {
		return exitErr(err)
	}

	size, err := uploadFile(c.Context, dst, key, local)
	if err != nil {
		return exitErr(err)
	}

	if c.Bool("json") {
		return printJSON(struct {
			Target string `json:"target"`
			Size   int64  `json:"size"`
		}{dst.Ref(key), size})
	}
	fmt.Printf("%s -> %s (%s)\n", local, dst.Ref(key), humanize.IBytes(uint64(size)))
	return nil
}

func runGet(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return exitErr(errs.Configf("usage: s4 get ALIAS/BUCKET/KEY [FILE]"))
	}

	t, ok := aliasStore(c).ResolveObject(c.Args().Get(0))
	if !ok {
		return exitErr(errs.Configf("%q is not a configured remote object", c.Args().Get(0)))
	}

	src, err := bucketRoot(c, t)
	if err != nil {
		return exitErr(err)
	}

	local := c.Args().Get(1)
	if local == "" {
		local = path.Base(t.Key)
	}

	size, err := downloadTo(c.Context, src, t.Key, local)
	if err != nil {
		return exitErr(err)
	}

	if c.Bool("json") {
		return printJSON(struct {
			File string `json:"file"`
			Size int64  `json:"size"`
		}{local, size})
	}
	fmt.Printf("%s -> %s (%s)\n", src.Ref(t.Key), local, humanize.IBytes(uint64(size)))
	return nil
}

func runCat(c *cli.Context) error {
	if c.NArg() != 1 {
		return exitErr(errs.Configf("usage: s4 cat ALIAS/BUCKET/KEY"))
	}

	t, ok := aliasStore(c).ResolveObject(c.Args().Get(0))
	if !ok {
		return exitErr(errs.Configf("%q is not a configured remote object", c.Args().Get(0)))
	}

	src, err := bucketRoot(c, t)
	if err != nil {
		return exitErr(err)
	}

	r, err := src.Get(c.Context, t.Key)
	if err != nil {
		return exitErr(err)
	}
	defer r.Close()

	if _, err := io.Copy(os.Stdout, r); err != nil {
		return exitErr(fmt.Errorf("streaming %s: %w", src.Ref(t.Key), err))
	}
	return nil
}

func runStat(c *cli.Context) error {
	if c.NArg() != 1 {
		return exitErr(errs.Configf("usage: s4 stat ALIAS/BUCKET/KEY"))
	}

	t, ok := aliasStore(c).ResolveObject(c.Args().Get(0))
	if !ok {
		return exitErr(errs.Configf("%q is not a configured remote object", c.Args().Get(0)))
	}

	src, err := bucketRoot(c, t)
	if err != nil {
		return exitErr(err)
	}

	entry, err := src.Stat(c.Context, t.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return exitErr(fmt.Errorf("object %s does not exist", t.String()))
		}
		return exitErr(err)
	}

	if c.Bool("json") {
		return printJSON(entry)
	}
	fmt.Printf("Name:         %s\n", entry.Key)
	fmt.Printf("Size:         %s (%d bytes)\n", humanize.IBytes(uint64(entry.Size)), entry.Size)
	fmt.Printf("Modified:     %s\n", entry.LastModified.Format(timeLayout))
	fmt.Printf("ETag:         %s\n", entry.Fingerprint)
	fmt.Printf("Content-Type: %s\n", entry.ContentType)
	return nil
}

func runRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return exitErr(errs.Configf("usage: s4 rm ALIAS/BUCKET/KEY"))
	}

	t, ok := aliasStore(c).ResolveObject(c.Args().Get(0))
	if !ok {
		return exitErr(errs.Configf("%q is not a configured remote object", c.Args().Get(0)))
	}

	dst, err := bucketRoot(c, t)
	if err != nil {
		return exitErr(err)
	}

	// Deleting a missing object is an error here, unlike in sync: the
	// operator named this key explicitly.
	if _, err := dst.Stat(c.Context, t.Key); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return exitErr(fmt.Errorf("object %s does not exist", t.String()))
		}
		return exitErr(err)
	}
	if err := dst.Delete(c.Context, t.Key); err != nil {
		return exitErr(err)
	}

	fmt.Printf("%s removed\n", t.String())
	return nil
}

// uploadFile moves one local file to dst under key, chunking payloads
// above the multipart threshold the same way the sync executor does.
// Returns the uploaded size.
func uploadFile(ctx context.Context, dst storage.ObjectStore, key, local string) (int64, error) {
	info, err := os.Stat(local)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", local, err)
	}
	if info.IsDir() {
		return 0, errs.Configf("%s is a directory, use `s4 sync` for trees", local)
	}

	f, err := os.Open(local)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", local, err)
	}
	defer f.Close()

	contentType := ""
	if mt, err := mimetype.DetectFile(local); err == nil {
		contentType = mt.String()
	}

	size := info.Size()
	if size <= domain.MultipartThreshold {
		if err := dst.Put(ctx, key, f, size, contentType); err != nil {
			return 0, err
		}
		return size, nil
	}

	cfg := config.Load()
	plan := domain.NewPartPlan(size, cfg.Transfer.PartSize)

	uploadID, err := dst.InitiateMultipart(ctx, key, contentType)
	if err != nil {
		return 0, err
	}

	parts := make([]storage.CompletedPart, plan.PartCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Transfer.PartConcurrency)

	for _, pr := range plan.Ranges {
		pr := pr
		g.Go(func() error {
			sr := io.NewSectionReader(f, pr.Offset, pr.Length)
			etag, err := dst.UploadPart(gctx, key, uploadID, pr, sr)
			if err != nil {
				return fmt.Errorf("part %d: %w", pr.Index, err)
			}
			parts[pr.Index-1] = storage.CompletedPart{Index: pr.Index, ETag: etag}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		abortUpload(dst, key, uploadID)
		return 0, err
	}
	if err := dst.CompleteMultipart(ctx, key, uploadID, parts); err != nil {
		abortUpload(dst, key, uploadID)
		return 0, err
	}

	return size, nil
}

func abortUpload(dst storage.ObjectStore, key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = dst.AbortMultipart(ctx, key, uploadID)
}

// downloadTo streams one object into local, writing through a temp file
// so an interrupted download never leaves a half-written target.
func downloadTo(ctx context.Context, src storage.ObjectStore, key, local string) (int64, error) {
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		local = filepath.Join(local, path.Base(key))
	}

	entry, err := src.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return 0, fmt.Errorf("object %s does not exist", src.Ref(key))
		}
		return 0, err
	}

	r, err := src.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	dir := filepath.Dir(local)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("preparing %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".s4-get-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing %s: %w", local, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if written != entry.Size {
		return written, fmt.Errorf("downloaded %d bytes for %s, expected %d", written, key, entry.Size)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return 0, err
	}
	return written, nil
}
