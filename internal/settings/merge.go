package settings

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/agentx-labs/fleetsync/internal/platform"
)

const docPerm = 0644

// Merge folds incoming into existing and returns the result; neither input
// is modified.
//
// Settings from incoming overwrite existing values, and keys only existing
// has are kept. A trigger list missing from existing is copied whole.
// Otherwise incoming entries are appended after the existing ones unless
// their command is already present. Grouping entries keep only the inner
// hooks whose commands are new and are dropped when none are left. Entries
// without any command are always appended.
func Merge(existing, incoming *Document) *Document {
	out := existing.clone()

	for k, v := range incoming.Settings {
		out.Settings[k] = v
	}

	if incoming.Hooks == nil {
		return out
	}
	if out.Hooks == nil {
		out.Hooks = make(map[string][]Entry, len(incoming.Hooks))
	}

	for name, in := range incoming.Hooks {
		cur, ok := out.Hooks[name]
		if !ok {
			out.Hooks[name] = append([]Entry(nil), in...)
			continue
		}

		present := make(map[string]bool)
		for _, c := range Commands(cur) {
			present[c] = true
		}
		for _, e := range in {
			if add, ok := missingPart(e, present); ok {
				cur = append(cur, add)
			}
		}
		out.Hooks[name] = cur
	}
	return out
}

// missingPart returns the portion of e whose commands are not in present and
// records those commands. ok is false when nothing of e needs appending.
func missingPart(e Entry, present map[string]bool) (Entry, bool) {
	inner, grouped := e[HooksKey].([]any)
	if !grouped || len(inner) == 0 {
		cmds := e.commands()
		if len(cmds) == 0 {
			return e, true
		}
		for _, c := range cmds {
			if present[c] {
				return nil, false
			}
		}
		for _, c := range cmds {
			present[c] = true
		}
		return e, true
	}

	var kept []any
	for _, h := range inner {
		c := innerCommand(h)
		if c == "" {
			kept = append(kept, h)
			continue
		}
		if present[c] {
			continue
		}
		present[c] = true
		kept = append(kept, h)
	}
	if len(kept) == 0 {
		return nil, false
	}
	if len(kept) == len(inner) {
		return e, true
	}
	reduced := maps.Clone(e)
	reduced[HooksKey] = kept
	return reduced, true
}

// Equal reports whether two documents serialize identically.
func Equal(a, b *Document) bool {
	am, err := a.Marshal()
	if err != nil {
		return false
	}
	bm, err := b.Marshal()
	if err != nil {
		return false
	}
	return bytes.Equal(am, bm)
}

// Check parses the document at path, returning ErrMergeConflict for a
// malformed one. A missing file passes.
func Check(path string) error {
	_, err := Load(path)
	return err
}

// MergeFile merges the document at incomingPath into the one at targetPath
// and writes the result atomically. It reports whether the target changed.
// A missing incoming document is a no-op; a missing target document is
// created. On error the target file is not modified.
func MergeFile(targetPath, incomingPath string) (bool, error) {
	return mergeFile(targetPath, incomingPath, true)
}

// Pending reports whether MergeFile would change the target, without
// writing anything.
func Pending(targetPath, incomingPath string) (bool, error) {
	return mergeFile(targetPath, incomingPath, false)
}

func mergeFile(targetPath, incomingPath string, write bool) (bool, error) {
	if _, err := os.Stat(incomingPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	incoming, err := Load(incomingPath)
	if err != nil {
		return false, err
	}

	_, statErr := os.Stat(targetPath)
	existed := statErr == nil

	existing, err := Load(targetPath)
	if err != nil {
		return false, err
	}

	merged := Merge(existing, incoming)
	if existed && Equal(existing, merged) {
		return false, nil
	}
	if !write {
		return true, nil
	}

	data, err := merged.Marshal()
	if err != nil {
		return false, err
	}
	if err := platform.WriteFileAtomic(targetPath, data, docPerm); err != nil {
		return false, fmt.Errorf("writing %s: %w", targetPath, err)
	}
	return true, nil
}
