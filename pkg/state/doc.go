// Package state defines the hierarchical property bag every city element
// is configured through.
//
// A Node maps string keys to typed values (int, float, bool, string,
// vector, nested Node, or a homogeneous array of one of those). Nodes form
// a tree: a child Node has at most one parent at a time. Every Node carries
// a dirty flag used to skip unnecessary mesh regeneration:
//
//   - marking a node changed marks every ancestor changed;
//   - marking a node unchanged clears it and every descendant, never its
//     ancestors.
//
// Accessors never fail. A missing key or a value of another kind yields the
// caller-supplied default, so partially migrated data degrades to defaults
// instead of erroring.
package state
