// Package party defines party identifiers inside one signing session.
package party

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
)

// ID identifies a party within a session. It is the session index
// carried on the wire, not the key-share index; the two are bound at
// session setup.
type ID uint16

// None marks a broadcast receiver on the wire.
const None ID = 0xFFFF

// WriteTo makes ID implement io.WriterTo for transcript hashing.
func (id ID) WriteTo(w io.Writer) (int64, error) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(id))
	n, err := w.Write(buf[:])
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (ID) Domain() string { return "ID" }

// IDSlice is a sorted set of IDs.
type IDSlice []ID

// NewIDSlice returns a sorted copy of ids with duplicates retained.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether all of the given ids are in the slice.
func (s IDSlice) Contains(ids ...ID) bool {
	for _, id := range ids {
		found := false
		for _, x := range s {
			if x == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Remove returns a copy of s without id.
func (s IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, x := range s {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Valid reports whether the slice is sorted and duplicate free.
func (s IDSlice) Valid() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}

// PointMap maps party IDs to curve points with group-aware decoding.
type PointMap struct {
	group  curve.Curve
	Points map[ID]curve.Point
}

// NewPointMap wraps points, inferring the group from any entry.
func NewPointMap(points map[ID]curve.Point) *PointMap {
	var group curve.Curve
	for _, v := range points {
		group = v.Curve()
		break
	}
	return &PointMap{group: group, Points: points}
}

// EmptyPointMap prepares a PointMap for unmarshalling.
func EmptyPointMap(group curve.Curve) *PointMap {
	return &PointMap{group: group}
}

func (m *PointMap) MarshalBinary() ([]byte, error) {
	raw := make(map[ID][]byte, len(m.Points))
	for k, v := range m.Points {
		b, err := v.MarshalBinary()
		if err != nil {
			return nil, err
		}
		raw[k] = b
	}
	return cbor.Marshal(raw)
}

func (m *PointMap) UnmarshalBinary(data []byte) error {
	raw := make(map[ID][]byte)
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Points = make(map[ID]curve.Point, len(raw))
	for k, v := range raw {
		p := m.group.NewPoint()
		if err := p.UnmarshalBinary(v); err != nil {
			return err
		}
		m.Points[k] = p
	}
	return nil
}
