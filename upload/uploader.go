// Package upload validates and submits supporting documents for a quotation.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
)

const (
	// DefaultMaxBytes is the document size ceiling (10 MiB).
	DefaultMaxBytes = 10 * 1024 * 1024
	// ContentTypePDF is the only accepted document type.
	ContentTypePDF = "application/pdf"
)

// File is a document selected for upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Open reads the file at path, determining its type from its content and
// falling back to the extension. The caller closes the returned file.
func Open(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("open document: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return File{}, nil, fmt.Errorf("stat document: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		_ = f.Close()
		return File{}, nil, fmt.Errorf("read document: %w", err)
	}
	head = head[:n]

	ct := mimetype.Detect(head).String()
	if ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			ct = byExt
		}
	}

	return File{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        st.Size(),
		Body:        io.MultiReader(bytes.NewReader(head), f),
	}, f, nil
}

// Sender is the remote upload contract.
type Sender interface {
	UploadDocument(ctx context.Context, quoteID, filename, contentType string, r io.Reader) error
}

// Uploader checks documents locally and sends at most one upload per
// quotation at a time.
type Uploader struct {
	sender   Sender
	maxBytes int64
	logger   log.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

// NewUploader creates an uploader. maxBytes <= 0 selects DefaultMaxBytes.
func NewUploader(sender Sender, maxBytes int64, logger log.Logger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Uploader{
		sender:   sender,
		maxBytes: maxBytes,
		logger:   logger.With(map[string]interface{}{"component": "upload"}),
		slots:    make(map[string]*slot),
	}
}

// MaxBytes is the configured ceiling.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Validate applies the local checks: exact document type, then size.
func (u *Uploader) Validate(f File) error {
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || mediaType != ContentTypePDF {
		metrics.UploadsRejectedTotal.WithLabelValues("invalid_format").Inc()
		return perrors.ErrInvalidFormat
	}
	if f.Size > u.maxBytes {
		metrics.UploadsRejectedTotal.WithLabelValues("too_large").Inc()
		return tooLarge(u.maxBytes)
	}
	if f.Size <= 0 {
		metrics.UploadsRejectedTotal.WithLabelValues("empty").Inc()
		return perrors.NewValidation("empty_file", "The selected file is empty.")
	}
	return nil
}

// Upload validates f and sends it for quoteID. A second upload for the same
// quotation waits until the first one finishes.
func (u *Uploader) Upload(ctx context.Context, quoteID string, f File) error {
	if quoteID == "" {
		return perrors.ErrNoQuotation
	}
	if err := u.Validate(f); err != nil {
		return err
	}

	release, err := u.acquire(ctx, quoteID)
	if err != nil {
		return err
	}
	defer release()

	body := &limitedReader{r: f.Body, remaining: u.maxBytes, max: u.maxBytes}
	if err := u.sender.UploadDocument(ctx, quoteID, f.Name, ContentTypePDF, body); err != nil {
		u.logger.Warn(ctx, "document upload failed", map[string]interface{}{
			"quote_id": quoteID, "file": f.Name, "kind": string(perrors.KindOf(err)),
		})
		return fmt.Errorf("upload document: %w", err)
	}
	u.logger.Info(ctx, "document uploaded", map[string]interface{}{"quote_id": quoteID, "file": f.Name, "size": f.Size})
	return nil
}

func (u *Uploader) acquire(ctx context.Context, quoteID string) (func(), error) {
	u.mu.Lock()
	s, ok := u.slots[quoteID]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		u.slots[quoteID] = s
	}
	s.refs++
	u.mu.Unlock()

	drop := func() {
		u.mu.Lock()
		s.refs--
		if s.refs == 0 {
			delete(u.slots, quoteID)
		}
		u.mu.Unlock()
	}

	select {
	case s.sem <- struct{}{}:
		return func() {
			<-s.sem
			drop()
		}, nil
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	}
}

func tooLarge(limit int64) error {
	if limit == DefaultMaxBytes {
		return perrors.ErrTooLarge
	}
	return perrors.NewValidation(perrors.ErrTooLarge.Code,
		fmt.Sprintf("File size must be %d bytes or smaller.", limit))
}

// limitedReader fails once more than max bytes are read, so a body larger
// than its declared size is still rejected before it is sent.
type limitedReader struct {
	r         io.Reader
	remaining int64
	max       int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, tooLarge(l.max)
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, tooLarge(l.max)
	}
	return n, err
}
