package upload

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	perrors "go.pilab.hu/portal/errors"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) UploadDocument(ctx context.Context, quoteID, filename, contentType string, r io.Reader) error {
	args := m.Called(ctx, quoteID, filename, contentType, r)
	if len(args) > 1 {
		if fn, ok := args.Get(1).(func(io.Reader)); ok {
			fn(r)
		}
	}
	return args.Error(0)
}

func pdf(size int64) File {
	return File{Name: "doc.pdf", ContentType: ContentTypePDF, Size: size, Body: strings.NewReader("%PDF-1.7")}
}

func TestUpload_RejectsBeforeNetwork(t *testing.T) {
	sender := new(mockSender)
	u := NewUploader(sender, 0, nil)

	err := u.Upload(context.Background(), "Q1", pdf(15*1024*1024))
	assert.ErrorIs(t, err, perrors.ErrTooLarge)

	err = u.Upload(context.Background(), "Q1", File{Name: "photo.png", ContentType: "image/png", Size: 1024, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, perrors.ErrInvalidFormat)

	err = u.Upload(context.Background(), "Q1", File{Name: "doc.pdf", ContentType: "", Size: 10, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, perrors.ErrInvalidFormat)

	err = u.Upload(context.Background(), "", pdf(10))
	assert.ErrorIs(t, err, perrors.ErrNoQuotation)

	sender.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidate_Boundaries(t *testing.T) {
	u := NewUploader(new(mockSender), 0, nil)

	assert.NoError(t, u.Validate(pdf(DefaultMaxBytes)), "exactly 10 MiB is accepted")
	assert.ErrorIs(t, u.Validate(pdf(DefaultMaxBytes+1)), perrors.ErrTooLarge)
	assert.NoError(t, u.Validate(File{ContentType: "application/pdf; name=x.pdf", Size: 1}))
	assert.Error(t, u.Validate(pdf(0)))
	assert.ErrorIs(t, u.Validate(File{ContentType: "application/pdfx", Size: 1}), perrors.ErrInvalidFormat)
}

func TestUpload_Sends(t *testing.T) {
	sender := new(mockSender)
	sender.On("UploadDocument", mock.Anything, "Q1", "doc.pdf", ContentTypePDF, mock.Anything).Return(nil).Once()
	u := NewUploader(sender, 0, nil)

	require.NoError(t, u.Upload(context.Background(), "Q1", pdf(8)))
	sender.AssertExpectations(t)
}

func TestUpload_RemoteFailureIsReported(t *testing.T) {
	sender := new(mockSender)
	sender.On("UploadDocument", mock.Anything, "Q1", mock.Anything, mock.Anything, mock.Anything).
		Return(perrors.NewServer(500, "storage_down", "Storage unavailable", "/insurance/upload")).Once()
	u := NewUploader(sender, 0, nil)

	err := u.Upload(context.Background(), "Q1", pdf(8))
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindServer))
}

func TestUpload_BodyLargerThanDeclaredIsRejected(t *testing.T) {
	sender := new(mockSender)
	var readErr error
	sender.On("UploadDocument", mock.Anything, "Q1", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, func(r io.Reader) { _, readErr = io.Copy(io.Discard, r) }).Once()
	u := NewUploader(sender, 16, nil)

	f := File{Name: "doc.pdf", ContentType: ContentTypePDF, Size: 8, Body: bytes.NewReader(make([]byte, 64))}
	require.NoError(t, u.Upload(context.Background(), "Q1", f))
	assert.ErrorIs(t, readErr, perrors.ErrTooLarge)
}

type blockingSender struct {
	inFlight int32
	maxSeen  int32
	calls    int32
}

func (b *blockingSender) UploadDocument(ctx context.Context, quoteID, filename, contentType string, r io.Reader) error {
	n := atomic.AddInt32(&b.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&b.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&b.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&b.inFlight, -1)
	atomic.AddInt32(&b.calls, 1)
	return nil
}

func TestUpload_SerializedPerQuotation(t *testing.T) {
	sender := &blockingSender{}
	u := NewUploader(sender, 0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, u.Upload(context.Background(), "Q1", pdf(8)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&sender.maxSeen))
	assert.Equal(t, int32(3), atomic.LoadInt32(&sender.calls))
	assert.Empty(t, u.slots)
}

func TestUpload_WaitingCallerHonoursContext(t *testing.T) {
	sender := new(mockSender)
	release := make(chan time.Time)
	sender.On("UploadDocument", mock.Anything, "Q1", mock.Anything, mock.Anything, mock.Anything).
		WaitUntil(release).Return(nil).Once()
	u := NewUploader(sender, 0, nil)

	done := make(chan error)
	go func() { done <- u.Upload(context.Background(), "Q1", pdf(8)) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, u.Upload(ctx, "Q1", pdf(8)), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, <-done)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	pdfPath := filepath.Join(dir, "claim.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4\n%test document"), 0o600))
	f, closer, err := Open(pdfPath)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, "claim.pdf", f.Name)
	assert.Equal(t, ContentTypePDF, f.ContentType)
	assert.Equal(t, int64(23), f.Size)
	body, err := io.ReadAll(f.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%test document", string(body))

	txtPath := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(txtPath, []byte("just some text"), 0o600))
	f2, closer2, err := Open(txtPath)
	require.NoError(t, err)
	defer closer2.Close()
	assert.ErrorIs(t, NewUploader(new(mockSender), 0, nil).Validate(f2), perrors.ErrInvalidFormat)
}
