package funcs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/obsidianstack/contexthub/internal/store"
	"github.com/obsidianstack/contexthub/pkg/value"
)

// Sentinel errors for the function registry.
var (
	ErrNotFound          = errors.New("function not found")
	ErrAlreadyRegistered = errors.New("function already registered")
	ErrEmptyName         = errors.New("function name is empty")
)

// ArgKind declares the value kind a parameter accepts.
type ArgKind uint8

const (
	ArgAny ArgKind = iota
	ArgBool
	ArgInteger
	ArgFloat
	ArgString
	ArgArray
	ArgObject
)

// String returns the lowercase kind name used in validation errors and the
// function catalog.
func (k ArgKind) String() string {
	switch k {
	case ArgAny:
		return "any"
	case ArgBool:
		return "bool"
	case ArgInteger:
		return "integer"
	case ArgFloat:
		return "float"
	case ArgString:
		return "string"
	case ArgArray:
		return "array"
	case ArgObject:
		return "object"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind as its name, not its numeric value.
func (k ArgKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Matches reports whether v satisfies the declared kind.
func (k ArgKind) Matches(v value.Value) bool {
	switch k {
	case ArgAny:
		return true
	case ArgBool:
		return v.Kind() == value.KindBool
	case ArgInteger:
		return v.Kind() == value.KindInteger
	case ArgFloat:
		return v.Kind() == value.KindFloat
	case ArgString:
		return v.Kind() == value.KindString
	case ArgArray:
		return v.Kind() == value.KindArray
	case ArgObject:
		return v.Kind() == value.KindObject
	default:
		return false
	}
}

// Param declares one named function parameter.
type Param struct {
	Name     string  `json:"name"`
	Kind     ArgKind `json:"kind"`
	Required bool    `json:"required"`
}

// Example documents one invocation in the function catalog.
type Example struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Result string `json:"result"`
}

// Args holds the evaluated arguments of one call, keyed by parameter name.
type Args map[string]value.Value

// Handler implements a function. Arguments have already passed parameter
// validation when the handler runs.
type Handler func(ctx context.Context, args Args) (value.Value, error)

// Func is one registered function: identifier, documentation, declared
// parameters, usage examples, and the handler that implements it.
type Func struct {
	Name     string    `json:"name"`
	Doc      string    `json:"doc"`
	Params   []Param   `json:"params"`
	Examples []Example `json:"examples"`
	Handler  Handler   `json:"-"`
}

// Registry maps function names to registered Funcs.
// Construct one with NewRegistry and share it; safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn to the registry. Returns ErrEmptyName for an unnamed
// function and ErrAlreadyRegistered when the name is taken.
func (r *Registry) Register(fn Func) error {
	if fn.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[fn.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, fn.Name)
	}
	r.funcs[fn.Name] = fn
	return nil
}

// Lookup returns the Func registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// List returns all registered functions sorted by name.
func (r *Registry) List() []Func {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Func, 0, len(r.funcs))
	for _, fn := range r.funcs {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call validates args against the declared parameters of the named function
// and invokes its handler. A missing required parameter or a kind mismatch is
// rejected as store.ErrInvalidArgument before the handler runs. Handler
// errors come back wrapped with the function name.
func (r *Registry) Call(ctx context.Context, name string, args Args) (value.Value, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return value.Null(), fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	for _, p := range fn.Params {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return value.Null(), fmt.Errorf("%w: %s: missing required parameter %q",
					store.ErrInvalidArgument, name, p.Name)
			}
			continue
		}
		if !p.Kind.Matches(v) {
			return value.Null(), fmt.Errorf("%w: %s: parameter %q must be %s, got %s",
				store.ErrInvalidArgument, name, p.Name, p.Kind, v.Kind())
		}
	}

	out, err := fn.Handler(ctx, args)
	if err != nil {
		return value.Null(), fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
