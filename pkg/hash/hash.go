// Package hash wraps a domain-separated BLAKE3 transcript hash. Every
// value written is framed with its length and a domain tag, so the
// transcript is unambiguous regardless of how callers chunk their
// writes.
package hash

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
)

// WriterToWithDomain separates writable types inside the transcript.
type WriterToWithDomain interface {
	io.WriterTo
	Domain() string
}

// BytesWithDomain tags an opaque byte string with a caller-chosen
// domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

func (b *BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

func (b *BytesWithDomain) Domain() string { return b.TheDomain }

// Hash is an append-only transcript. Clones share the prefix written so
// far.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash and writes the initial values to it.
func New(initial ...WriterToWithDomain) *Hash {
	h := &Hash{h: blake3.New()}
	for _, v := range initial {
		_ = h.WriteAny(v)
	}
	return h
}

// DigestSize is the output size of Sum in bytes.
const DigestSize = 32

func (h *Hash) writeFramed(domain string, payload []byte) error {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(domain)))
	_, _ = h.h.Write(length[:])
	_, _ = h.h.WriteString(domain)
	binary.BigEndian.PutUint64(length[:], uint64(len(payload)))
	_, _ = h.h.Write(length[:])
	_, err := h.h.Write(payload)
	return err
}

// WriteAny writes the given values into the transcript. Supported types
// are WriterToWithDomain, *arith.Nat, []byte, party and round integers,
// and anything implementing encoding.BinaryMarshaler.
func (h *Hash) WriteAny(vs ...interface{}) error {
	for _, v := range vs {
		switch t := v.(type) {
		case WriterToWithDomain:
			var buf writerBuffer
			if _, err := t.WriteTo(&buf); err != nil {
				return fmt.Errorf("hash: %s: %w", t.Domain(), err)
			}
			if err := h.writeFramed(t.Domain(), buf.data); err != nil {
				return err
			}
		case *arith.Nat:
			b, _ := t.MarshalBinary()
			if err := h.writeFramed("Nat", b); err != nil {
				return err
			}
		case []byte:
			if t == nil {
				return errors.New("hash: nil []byte")
			}
			if err := h.writeFramed("bytes", t); err != nil {
				return err
			}
		case uint16:
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], t)
			if err := h.writeFramed("uint16", b[:]); err != nil {
				return err
			}
		case uint32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], t)
			if err := h.writeFramed("uint32", b[:]); err != nil {
				return err
			}
		case encoding.BinaryMarshaler:
			b, err := t.MarshalBinary()
			if err != nil {
				return err
			}
			if err := h.writeFramed("BinaryMarshaler", b); err != nil {
				return err
			}
		default:
			return fmt.Errorf("hash: unsupported type %T", v)
		}
	}
	return nil
}

// Sum returns the current digest without modifying the state.
func (h *Hash) Sum() []byte {
	out := make([]byte, DigestSize)
	d := h.h.Clone().Digest()
	_, _ = d.Read(out)
	return out
}

// Digest returns an unbounded reader of the current transcript state,
// used to derive challenge integers.
func (h *Hash) Digest() io.Reader {
	return h.h.Clone().Digest()
}

// Clone returns a copy of the transcript.
func (h *Hash) Clone() *Hash {
	return &Hash{h: h.h.Clone()}
}

// Fork clones the transcript and writes the given values to the copy.
func (h *Hash) Fork(vs ...interface{}) *Hash {
	out := h.Clone()
	_ = out.WriteAny(vs...)
	return out
}

type writerBuffer struct {
	data []byte
}

func (b *writerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
