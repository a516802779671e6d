// Package errcode provides the error codes used throughout the build
// pipeline: lexing/parsing, module loading, object-model construction,
// target resolution, the build/write/index orchestrator, and manifest
// handling each register their own codes under a named group. Numeric
// values come from one shared counter, so no two codes collide, but a
// group's values are not guaranteed to be contiguous.
package errcode
