// Package snapshot fingerprints the managed files of a project and compares
// two projects file by file. A source file is identical, missing from the
// target, or diverged; diverged files carry a unified diff. Files that exist
// only in the target are never reported, so nothing built on this package
// deletes them.
package snapshot
