// Package cntl owns the control-channel wire contract between the router and
// its peripherals.
//
// Ownership boundary:
// - {command, length} envelope walking
// - per-record decode/encode with bounds-checked field access
// - the versioned DIAG_ID request variant
//
// All multi-byte fields are little-endian. Decoders copy every field out of
// the input buffer; nothing returned aliases caller memory except
// Record.Payload, which is only valid for the duration of a Walk callback.
package cntl
