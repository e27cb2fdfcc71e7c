package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/filex"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

const (
	maxAttachments     = 8
	maxAttachmentBytes = 20 << 20
)

// Attach queues a file for the next message. The content type is sniffed
// from the bytes, not the extension.
func (a *App) Attach(_ context.Context, path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	if len(a.pending) >= maxAttachments {
		return fmt.Errorf("at most %d attachments per message", maxAttachments)
	}

	data, err := filex.ReadLimited(path, maxAttachmentBytes)
	if err != nil {
		if errors.Is(err, filex.ErrTooLarge) {
			return fmt.Errorf("%s is larger than %d MiB", path, maxAttachmentBytes>>20)
		}
		return err
	}

	up := models.AttachmentUpload{
		Name: filepath.Base(path),
		Type: detectType(data),
		Size: int64(len(data)),
		Data: base64.StdEncoding.EncodeToString(data),
	}
	a.pending = append(a.pending, up)
	fmt.Fprintf(a.out, "Attached %s (%s, %s)\n", up.Name, up.Type, humanSize(up.Size))
	return nil
}

// Transcribe prints the text of an audio file.
func (a *App) Transcribe(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("usage: /transcribe <path>")
	}
	data, err := filex.ReadLimited(path, maxAttachmentBytes)
	if err != nil {
		if errors.Is(err, filex.ErrTooLarge) {
			return fmt.Errorf("%s is larger than %d MiB", path, maxAttachmentBytes>>20)
		}
		return err
	}

	text, err := a.api.Transcribe(ctx, data, detectType(data))
	if err != nil {
		return a.check(ctx, err)
	}
	fmt.Fprintln(a.out, text)
	return nil
}

// Download saves attachment n from the last /history into the working
// directory. Existing files are never overwritten.
func (a *App) Download(ctx context.Context, ref string) error {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return errors.New("usage: /download <n>")
	}
	if n < 1 || n > len(a.attachments) {
		return fmt.Errorf("no attachment #%d, see /history", n)
	}
	att := a.attachments[n-1]
	if att.URL == "" {
		return fmt.Errorf("%s is not available for download", att.Name)
	}

	name := filepath.Base(att.Name)
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	written, err := netx.DownloadPresigned(ctx, a.api.HTTPClient(), att.URL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name)
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%s)\n", name, humanSize(written))
	return nil
}

// detectType returns the sniffed media type without parameters.
func detectType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
