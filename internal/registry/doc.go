// Package registry persists the list of target projects kept in sync with
// the framework. The list is a newline-delimited file of absolute paths
// (blank lines and # comments ignored) stored under the user's home
// directory. It is rewritten atomically but not locked, so concurrent
// invocations may lose an update.
//
// Discover finds candidate targets on disk by their linkage marker.
package registry
