package store

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/obsidianstack/contexthub/pkg/value"
)

// Kind tags for the canonical encoding fed to the hash. Every variable-length
// payload carries a count prefix, which keeps the encoding prefix-free:
// ["ab"] and ["a","b"] produce different byte streams.
const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagArray
	tagObject
)

// DeriveKey maps an ordered sequence of lookup values to a stable 64-bit key.
// Element-wise structurally equal sequences (same kind, value, order, and
// nesting) always derive the same key within a process. Distinct sequences
// may collide at the 64-bit birthday bound; collisions are not detected.
func DeriveKey(keys []value.Value) uint64 {
	d := xxhash.New()
	writeCount(d, len(keys))
	for _, k := range keys {
		writeValue(d, k)
	}
	return d.Sum64()
}

func writeValue(d *xxhash.Digest, v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		d.Write([]byte{tagNull})
	case value.KindBool:
		if b, _ := v.AsBool(); b {
			d.Write([]byte{tagTrue})
		} else {
			d.Write([]byte{tagFalse})
		}
	case value.KindInteger:
		i, _ := v.AsInt()
		writeTagged(d, tagInt, uint64(i))
	case value.KindFloat:
		f, _ := v.AsFloat()
		// -0.0 compares equal to 0.0 but has a different bit pattern; fold it
		// to +0.0 so equal values always encode identically.
		if f == 0 {
			f = 0
		}
		writeTagged(d, tagFloat, math.Float64bits(f))
	case value.KindString:
		s, _ := v.AsString()
		d.Write([]byte{tagString})
		writeCount(d, len(s))
		d.WriteString(s)
	case value.KindArray:
		a, _ := v.AsArray()
		d.Write([]byte{tagArray})
		writeCount(d, len(a))
		for _, e := range a {
			writeValue(d, e)
		}
	case value.KindObject:
		// Field order must not affect the key; encode in sorted key order.
		o, _ := v.AsObject()
		d.Write([]byte{tagObject})
		writeCount(d, len(o))
		names := make([]string, 0, len(o))
		for k := range o {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			writeCount(d, len(k))
			d.WriteString(k)
			writeValue(d, o[k])
		}
	}
}

func writeTagged(d *xxhash.Digest, tag byte, u uint64) {
	var buf [9]byte
	buf[0] = tag
	binary.BigEndian.PutUint64(buf[1:], u)
	d.Write(buf[:])
}

func writeCount(d *xxhash.Digest, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	d.Write(buf[:])
}
