package funcs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/obsidianstack/contexthub/internal/store"
	"github.com/obsidianstack/contexthub/pkg/value"
)

// maxSeconds is the largest TTL representable as a time.Duration.
const maxSeconds = int64(math.MaxInt64) / int64(time.Second)

// OpenContext returns the open_context function bound to st: create-or-fetch
// a context keyed by the ordered lookup values in "keys", with a TTL of
// "seconds". The result object has exactly two fields, "key" and "data"; the
// key is the signed bit pattern of the derived 64-bit hash.
func OpenContext(st *store.Store) Func {
	return Func{
		Name: "open_context",
		Doc:  "Open (create or fetch) a shared context keyed by the given ordered lookup values.",
		Params: []Param{
			{Name: "keys", Kind: ArgArray, Required: true},
			{Name: "seconds", Kind: ArgInteger, Required: true},
		},
		Examples: []Example{
			{
				Title:  "open a per-user context for one minute",
				Source: `open_context(keys: ["user", "u-1042"], seconds: 60)`,
				Result: `{"key": 4601436356736020743, "data": {}}`,
			},
		},
		Handler: func(_ context.Context, args Args) (value.Value, error) {
			keys, _ := args["keys"].AsArray()
			seconds, _ := args["seconds"].AsInt()
			if seconds < 0 || seconds > maxSeconds {
				return value.Null(), fmt.Errorf("%w: seconds %d is not a representable non-negative duration",
					store.ErrInvalidArgument, seconds)
			}

			res, err := st.Open(keys, time.Duration(seconds)*time.Second)
			if err != nil {
				return value.Null(), err
			}
			return value.Object(map[string]value.Value{
				"key":  value.Int(int64(res.Key)),
				"data": res.Data,
			}), nil
		},
	}
}

// UpdateContext returns the update_context function bound to st: overwrite
// the data stored under a previously-issued key. The "context" argument must
// be the object open_context returned, with "data" possibly mutated by the
// caller. Returns null.
func UpdateContext(st *store.Store) Func {
	return Func{
		Name: "update_context",
		Doc:  "Persist a mutated context data payload back into the store.",
		Params: []Param{
			{Name: "context", Kind: ArgObject, Required: true},
		},
		Examples: []Example{
			{
				Title:  "write back a mutated context",
				Source: `update_context(context: {"key": 4601436356736020743, "data": {"count": 2}})`,
				Result: "null",
			},
		},
		Handler: func(_ context.Context, args Args) (value.Value, error) {
			obj, _ := args["context"].AsObject()

			keyField, ok := obj["key"]
			if !ok {
				return value.Null(), fmt.Errorf("%w: context object missing %q field",
					store.ErrInvalidArgument, "key")
			}
			key, ok := keyField.AsInt()
			if !ok {
				return value.Null(), fmt.Errorf("%w: context field %q must be integer, got %s",
					store.ErrInvalidArgument, "key", keyField.Kind())
			}
			data, ok := obj["data"]
			if !ok {
				return value.Null(), fmt.Errorf("%w: context object missing %q field",
					store.ErrInvalidArgument, "data")
			}

			st.Update(uint64(key), data)
			return value.Null(), nil
		},
	}
}

// RegisterAll installs the context functions into reg.
func RegisterAll(reg *Registry, st *store.Store) error {
	for _, fn := range []Func{OpenContext(st), UpdateContext(st)} {
		if err := reg.Register(fn); err != nil {
			return err
		}
	}
	return nil
}
