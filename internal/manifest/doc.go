// Package manifest declares which files the framework manages inside a
// target: category directories (agent definitions, command definitions, hook
// scripts, shared scripts), singleton files, structured JSON documents that
// are merged rather than copied, and protected per-project documents that
// are never written.
//
// A framework may override the defaults with a fleetsync.yaml at its root.
// Overrides are validated against an embedded JSON Schema before use.
package manifest
