// Package fleet coordinates push, pull and status across the registered
// targets of a framework repository.
//
// Targets are processed one at a time in registry order. A failure in one
// target is recorded in the report and never stops the others.
package fleet
