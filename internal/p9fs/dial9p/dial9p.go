// SPDX-License-Identifier: Unlicense OR MIT

// Package dial9p is a minimal 9P2000 client sufficient to mount the
// remote draw device and walk to the handful of files the rest of
// the tree needs (the draw channel, kbd, mouse, wctl, kbmap, snarf).
// No 9P client library appears in any example repo's dependency
// graph, so this is a from-scratch implementation of the wire
// protocol over net.Conn rather than a retained-mode filesystem;
// see DESIGN.md for why no third-party alternative could be wired
// instead.
package dial9p

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
)

const (
	msgTversion = 100
	msgRversion = 101
	msgTattach  = 104
	msgRattach  = 105
	msgRerror   = 107
	msgTwalk    = 110
	msgRwalk    = 111
	msgTopen    = 112
	msgRopen    = 113
	msgTread    = 116
	msgRread    = 117
	msgTwrite   = 118
	msgRwrite   = 119
	msgTclunk   = 120
	msgRclunk   = 121
)

const (
	noTag uint16 = 0xFFFF
	noFid uint32 = 0xFFFFFFFF

	defaultMSize = 8192
	version9P    = "9P2000"
)

// Client is one 9P connection, demultiplexing responses by tag so
// the draw write/read loop and the three input-file readers can all
// issue requests over the same TCP connection concurrently.
type Client struct {
	conn   net.Conn
	r      *bufio.Reader
	msize  uint32
	nextFid atomic.Uint32
	nextTag atomic.Uint32

	mu      sync.Mutex
	pending map[uint16]chan frame
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

type frame struct {
	typ  byte
	body []byte
}

// Dial connects to address (host:port, the TCP half of a "tcp!host!port"
// 9P address) and completes the version handshake.
func Dial(ctx context.Context, network, address string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial9p: dial %s: %w", address, err)
	}
	c := &Client{
		conn:    conn,
		r:       bufio.NewReaderSize(conn, 64<<10),
		pending: make(map[uint16]chan frame),
		closed:  make(chan struct{}),
	}
	go c.readLoop()

	reply, err := c.rpc(noTag, msgTversion, func(w *writer) {
		w.u32(defaultMSize)
		w.str(version9P)
	})
	if err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("dial9p: version: %w", err)
	}
	rd := newReader(reply.body)
	msize := rd.u32()
	ver := rd.str()
	if !strings.HasPrefix(ver, "9P2000") {
		c.conn.Close()
		return nil, fmt.Errorf("dial9p: unsupported remote version %q", ver)
	}
	c.msize = msize
	return c, nil
}

// Address parses a Plan 9 "tcp!host!port" dial string into a
// net.Dial-compatible network and address pair.
func Address(dial string) (network, address string, err error) {
	parts := strings.Split(dial, "!")
	if len(parts) != 3 || parts[0] != "tcp" {
		return "", "", fmt.Errorf("dial9p: unsupported dial string %q, want tcp!host!port", dial)
	}
	return "tcp", parts[1] + ":" + parts[2], nil
}

func (c *Client) readLoop() {
	for {
		size, err := readU32(c.r)
		if err != nil {
			c.broadcastError(err)
			return
		}
		if size < 7 {
			c.broadcastError(fmt.Errorf("dial9p: short message size %d", size))
			return
		}
		buf := make([]byte, size-4)
		if _, err := io.ReadFull(c.r, buf); err != nil {
			c.broadcastError(err)
			return
		}
		typ := buf[0]
		tag := binary.LittleEndian.Uint16(buf[1:3])
		body := buf[3:]

		c.mu.Lock()
		ch, ok := c.pending[tag]
		if ok {
			delete(c.pending, tag)
		}
		c.mu.Unlock()
		if ok {
			ch <- frame{typ: typ, body: body}
		}
	}
}

func (c *Client) broadcastError(err error) {
	c.closeOnce.Do(func() { close(c.closed) })
	c.mu.Lock()
	defer c.mu.Unlock()
	for tag, ch := range c.pending {
		ch <- frame{typ: msgRerror, body: encodeErrorBody(err.Error())}
		delete(c.pending, tag)
	}
}

func encodeErrorBody(msg string) []byte {
	w := &writer{}
	w.str(msg)
	return w.buf
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// rpc sends one request of the given type and blocks for its reply,
// returning an error built from Rerror bodies.
func (c *Client) rpc(tagHint uint16, typ byte, body func(*writer)) (frame, error) {
	tag := tagHint
	if tag == noTag {
		tag = uint16(c.nextTag.Add(1))
	}
	ch := make(chan frame, 1)
	c.mu.Lock()
	c.pending[tag] = ch
	c.mu.Unlock()

	w := &writer{}
	w.u8(typ)
	w.u16(tag)
	if body != nil {
		body(w)
	}
	msg := make([]byte, 4+len(w.buf))
	binary.LittleEndian.PutUint32(msg, uint32(4+len(w.buf)))
	copy(msg[4:], w.buf)

	c.writeMu.Lock()
	_, err := c.conn.Write(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
		return frame{}, err
	}

	select {
	case f := <-ch:
		if f.typ == msgRerror {
			rd := newReader(f.body)
			return frame{}, fmt.Errorf("dial9p: %s", rd.str())
		}
		return f, nil
	case <-c.closed:
		return frame{}, io.ErrClosedPipe
	}
}

// Mount is a p9fs.FS rooted at the fid returned by attaching uname/aname.
type Mount struct {
	c    *Client
	root uint32
}

// Attach completes the Tattach and returns an FS rooted there.
func (c *Client) Attach(uname, aname string) (*Mount, error) {
	fid := c.nextFid.Add(1)
	_, err := c.rpc(noTag, msgTattach, func(w *writer) {
		w.u32(fid)
		w.u32(noFid)
		w.str(uname)
		w.str(aname)
	})
	if err != nil {
		return nil, fmt.Errorf("dial9p: attach: %w", err)
	}
	return &Mount{c: c, root: fid}, nil
}

// MSize returns the negotiated maximum message size.
func (m *Mount) MSize() int { return int(m.c.msize) }

// Open walks to name (slash-separated, relative to the mount root)
// and opens it with the given 9P mode.
func (m *Mount) Open(ctx context.Context, name string, mode p9fs.OpenMode) (p9fs.File, error) {
	fid := m.c.nextFid.Add(1)
	var wnames []string
	for _, part := range strings.Split(name, "/") {
		if part != "" {
			wnames = append(wnames, part)
		}
	}
	_, err := m.c.rpc(noTag, msgTwalk, func(w *writer) {
		w.u32(m.root)
		w.u32(fid)
		w.u16(uint16(len(wnames)))
		for _, p := range wnames {
			w.str(p)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("dial9p: walk %q: %w", name, err)
	}
	reply, err := m.c.rpc(noTag, msgTopen, func(w *writer) {
		w.u32(fid)
		w.u8(byte(mode))
	})
	if err != nil {
		return nil, fmt.Errorf("dial9p: open %q: %w", name, err)
	}
	rd := newReader(reply.body)
	rd.skip(13) // qid
	iounit := rd.u32()
	if iounit == 0 {
		iounit = m.c.msize - 24
	}
	return &File{c: m.c, fid: fid, iounit: int(iounit)}, nil
}

// File is one open 9P fid. Read advances an internal offset, matching
// io.Reader's sequential-read contract; Write always appends at the
// offset 9P associates with O_WRITE-append-like semantics for the
// files this tree touches (the draw channel, kbd, mouse, wctl, snarf)
// since none of them are seeked by the caller.
type File struct {
	c      *Client
	fid    uint32
	iounit int

	mu         sync.Mutex
	readOffset uint64
	writeOffset uint64
	closed     bool
}

// IOUnit returns the negotiated maximum per-message payload.
func (f *File) IOUnit() int { return f.iounit }

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	offset := f.readOffset
	f.mu.Unlock()

	n := len(p)
	if n > f.iounit {
		n = f.iounit
	}
	reply, err := f.c.rpc(noTag, msgTread, func(w *writer) {
		w.u32(f.fid)
		w.u64(offset)
		w.u32(uint32(n))
	})
	if err != nil {
		return 0, err
	}
	rd := newReader(reply.body)
	count := rd.u32()
	copy(p, reply.body[4:4+count])
	if count == 0 {
		return 0, io.EOF
	}
	f.mu.Lock()
	f.readOffset += uint64(count)
	f.mu.Unlock()
	return int(count), nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	offset := f.writeOffset
	f.mu.Unlock()

	written := 0
	for written < len(p) {
		chunk := p[written:]
		if len(chunk) > f.iounit {
			chunk = chunk[:f.iounit]
		}
		reply, err := f.c.rpc(noTag, msgTwrite, func(w *writer) {
			w.u32(f.fid)
			w.u64(offset + uint64(written))
			w.u32(uint32(len(chunk)))
			w.raw(chunk)
		})
		if err != nil {
			return written, err
		}
		rd := newReader(reply.body)
		n := int(rd.u32())
		if n == 0 {
			return written, io.ErrShortWrite
		}
		written += n
	}
	f.mu.Lock()
	f.writeOffset += uint64(written)
	f.mu.Unlock()
	return written, nil
}

func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()
	_, err := f.c.rpc(noTag, msgTclunk, func(w *writer) { w.u32(f.fid) })
	return err
}

// writer appends 9P primitive encodings to an in-memory buffer.
type writer struct{ buf []byte }

func (w *writer) u8(v byte)     { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16)  { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) u32(v uint32)  { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) u64(v uint64)  { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) raw(b []byte)  { w.buf = append(w.buf, b...) }
func (w *writer) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// reader parses 9P primitive encodings from a fixed byte slice.
type reader struct {
	b   []byte
	off int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) skip(n int) { r.off += n }

func (r *reader) str() string {
	n := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	s := string(r.b[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}
