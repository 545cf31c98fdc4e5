// Package ir defines the records exchanged between the label engine, the
// SQLite op log and the command line, together with their canonical
// encoding.
//
// ir imports nothing internal. Labels and positions are carried as raw
// uint32 values so that the records stay independent of the label package.
//
// Key design constraints:
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - All JSON tags use snake_case
//   - Record identity is content addressed through MarshalCanonical
package ir
