// SPDX-License-Identifier: Unlicense OR MIT

// Package fakefs is an in-memory p9fs.FS used by tests in sender,
// keymap, and clipboard so they can exercise real read/write
// sequencing without a live 9P mount.
package fakefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
)

// FS is a map of path -> backing file content/behavior.
type FS struct {
	mu     sync.Mutex
	files  map[string]*File
	msize  int
	iounit int
}

// New creates a fake filesystem with the given negotiated sizes.
func New(msize, iounit int) *FS {
	return &FS{files: make(map[string]*File), msize: msize, iounit: iounit}
}

// Put registers a file at name with the given initial read content.
// Writes accumulate separately and are visible via Written.
func (fs *FS) Put(name string, readContent []byte) *File {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f := &File{name: name, read: bytes.NewReader(readContent), iounit: fs.iounit}
	fs.files[name] = f
	return f
}

func (fs *FS) MSize() int { return fs.msize }

func (fs *FS) Open(ctx context.Context, name string, mode p9fs.OpenMode) (p9fs.File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[name]
	if !ok {
		return nil, fmt.Errorf("fakefs: no such file %q", name)
	}
	return f, nil
}

// File is a fake open file: reads come from a fixed byte source
// (optionally streamed in chunks via PushRead for readers that block
// until data arrives), writes accumulate into Written.
type File struct {
	name   string
	iounit int

	mu      sync.Mutex
	read    *bytes.Reader
	pending chan []byte
	closed  bool
	written bytes.Buffer

	// FailNextWrite, if set, is returned once by Write and then
	// cleared.
	FailNextWrite error
}

func (f *File) IOUnit() int { return f.iounit }

// PushRead enables streaming mode: subsequent Read calls block on a
// channel fed by PushRead, used to model the blocking mouse/keyboard/
// wctl reader goroutines.
func (f *File) PushRead(b []byte) {
	f.mu.Lock()
	if f.pending == nil {
		f.pending = make(chan []byte, 64)
	}
	ch := f.pending
	f.mu.Unlock()
	ch <- b
}

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	ch := f.pending
	f.mu.Unlock()
	if ch != nil {
		b, ok := <-ch
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, b)
		return n, nil
	}
	return f.read.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextWrite != nil {
		err := f.FailNextWrite
		f.FailNextWrite = nil
		return 0, err
	}
	return f.written.Write(p)
}

func (f *File) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.written.Bytes()...)
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.pending != nil {
		close(f.pending)
	}
	return nil
}
