// Package store implements the in-memory context store: one map from derived
// 64-bit key to stored entry, guarded by a single mutex. Open creates,
// fetches, or resets an entry depending on its expiry; Update overwrites an
// entry's data. An optional background sweep (Run) evicts expired entries.
//
// Expiration policy: an entry is live while now < expiresAt. Open leaves a
// live entry untouched, resets an expired one (empty data, renewed TTL), and
// creates missing ones. Update replaces data only and never moves the expiry;
// updating an unknown key inserts the entry already expired, so the next Open
// resets it rather than serving orphaned data.
//
// Key derivation (DeriveKey) hashes the caller's ordered lookup values with
// xxhash over a canonical, prefix-free encoding. Equal sequences always map
// to the same key; the key is not durable across implementations.
package store
