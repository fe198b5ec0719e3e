// Package compiler turns CUE configuration into query and decomposition
// specs.
//
// The CUE SDK is used through its Go API: callers load and build a
// cue.Value (see cli.LoadConfig) and hand it to CompileConfig. Errors carry
// the CUE source position of the offending field.
package compiler
