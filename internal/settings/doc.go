// Package settings merges structured hook/settings documents.
//
// A document has a scalar namespace (every top-level key except "hooks")
// and a trigger namespace ("hooks": trigger name → ordered entry list).
// Merging is additive: scalars from the framework win, trigger lists only
// grow, and an entry counts as present when its command string is already
// in the list.
package settings
