// Package platform provides cross-platform filesystem helpers: atomic
// writes through a temp file and rename, and permission changes that are
// skipped on Windows.
package platform
