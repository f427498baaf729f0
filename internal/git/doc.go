// Package git wraps the git command line for the operations fleetsync
// needs: reading revisions, advancing a target's framework checkout, and
// committing synced files. Every call takes a context so a hung fetch can
// be cut off by a per-target timeout.
package git
