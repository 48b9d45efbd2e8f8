// Package meta implements the reflection and dynamic-invocation runtime.
//
// This package contains:
//   - Class descriptors as typed records plus a string table, and their
//     compact fixed-stride integer encoding
//   - Meta-object nodes forming a single-parent inheritance chain
//   - Method, property, enumerator and class-info handles
//   - Signature normalization
//   - The typed dispatch-table contract implemented per class
//   - Direct, queued and blocking-queued invocation across thread loops
//   - Property read/write/reset through the dispatch table
package meta
