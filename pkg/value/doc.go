// Package value defines the dynamically-typed structured value passed between
// the context store and its callers: null, bool, integer, float, string,
// array, or object. The zero Value is null. Clone returns a deep copy that
// shares no state with the original; JSON encoding writes object keys in
// sorted order so equal values encode identically.
package value
