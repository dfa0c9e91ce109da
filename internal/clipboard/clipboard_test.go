// SPDX-License-Identifier: Unlicense OR MIT

package clipboard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs/fakefs"
)

func TestAcceptsMimeRecognisesPlainTextVariants(t *testing.T) {
	for _, m := range []string{"text/plain", "text/plain;charset=utf-8", "UTF8_STRING", "STRING", "TEXT"} {
		if !AcceptsMime(m) {
			t.Fatalf("expected %q to be accepted", m)
		}
	}
	if AcceptsMime("image/png") {
		t.Fatal("expected image/png to be rejected")
	}
}

func TestOnSelectionSetWritesSnarfAndReclaims(t *testing.T) {
	fs := fakefs.New(8192, 4096)
	snarf := fs.Put("snarf", nil)

	var reclaimedMime string
	var reclaimedData []byte
	b := New(fs, func(fd int, onReadable func()) func() {
		// Drive the callback synchronously in this fake event loop:
		// poll until the pipe yields EOF.
		go func() {
			for i := 0; i < 1000; i++ {
				onReadable()
				time.Sleep(time.Millisecond)
			}
		}()
		return func() {}
	}, func(mime string, data []byte) {
		reclaimedMime = mime
		reclaimedData = data
	}, zerolog.Nop())

	src := strings.NewReader("hello from the client")
	b.OnSelectionSet(context.Background(), "text/plain", src, 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(snarf.Written()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := string(snarf.Written()); got != "hello from the client" {
		t.Fatalf("snarf contents = %q, want %q", got, "hello from the client")
	}
	if reclaimedMime != "text/plain" {
		t.Fatalf("reclaimedMime = %q", reclaimedMime)
	}
	if string(reclaimedData) != "hello from the client" {
		t.Fatalf("reclaimedData = %q", reclaimedData)
	}
}

func TestOnSelectionSetRejectsUnsupportedMime(t *testing.T) {
	fs := fakefs.New(8192, 4096)
	fs.Put("snarf", nil)
	called := false
	b := New(fs, func(fd int, onReadable func()) func() {
		called = true
		return func() {}
	}, nil, zerolog.Nop())
	b.OnSelectionSet(context.Background(), "image/png", strings.NewReader("x"), 0)
	if called {
		t.Fatal("expected an unsupported mime type to never register a readable callback")
	}
}

type fakeWriteCloser struct {
	strings.Builder
	closed chan struct{}
}

func newFakeWriteCloser() *fakeWriteCloser {
	return &fakeWriteCloser{closed: make(chan struct{})}
}

func (f *fakeWriteCloser) Close() error {
	close(f.closed)
	return nil
}

func TestOnPasteRequestCopiesSnarfToDestination(t *testing.T) {
	fs := fakefs.New(8192, 4096)
	fs.Put("snarf", []byte("clipboard payload"))
	b := New(fs, nil, nil, zerolog.Nop())

	dst := newFakeWriteCloser()
	b.OnPasteRequest(context.Background(), dst)

	select {
	case <-dst.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for paste goroutine to close destination")
	}
	if dst.String() != "clipboard payload" {
		t.Fatalf("dst = %q, want %q", dst.String(), "clipboard payload")
	}
}
