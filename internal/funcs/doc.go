// Package funcs exposes the store operations as named functions with typed
// parameter declarations and usage examples: open_context and update_context.
//
// Registry.Call validates arguments against the declared parameters (required
// presence, kind match) before dispatching, so handlers only ever see
// well-shaped input. Validation failures are rejected as
// store.ErrInvalidArgument without touching the store.
package funcs
