package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"
)

// HooksKey is the top-level key holding the trigger namespace.
const HooksKey = "hooks"

// ErrMergeConflict marks a document whose shape does not match the expected
// layout. The existing document is left untouched and needs manual repair.
var ErrMergeConflict = errors.New("merge conflict")

// Entry is one trigger-entry: either {"command": "..."} or a grouping
// {"matcher": "...", "hooks": [{"command": "..."}]}. Other keys are kept.
type Entry map[string]any

// Document is a structured settings document. Every top-level key other
// than "hooks" lives in Settings and is treated as a scalar; Hooks maps
// trigger names to ordered entry lists and is nil when the document has no
// "hooks" key.
type Document struct {
	Settings map[string]json.RawMessage
	Hooks    map[string][]Entry
}

// New returns an empty document.
func New() *Document {
	return &Document{Settings: make(map[string]json.RawMessage)}
}

// Parse decodes a document. Malformed JSON or a namespace of the wrong type
// yields ErrMergeConflict. Empty input is an empty document.
func Parse(data []byte) (*Document, error) {
	doc := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, conflict("document", "expected a JSON object: %v", err)
	}

	for k, v := range top {
		if k != HooksKey {
			doc.Settings[k] = v
		}
	}

	raw, ok := top[HooksKey]
	if !ok {
		return doc, nil
	}
	hooks, err := parseHooks(raw)
	if err != nil {
		return nil, err
	}
	doc.Hooks = hooks
	return doc, nil
}

func parseHooks(raw json.RawMessage) (map[string][]Entry, error) {
	var triggers map[string]json.RawMessage
	if err := json.Unmarshal(raw, &triggers); err != nil {
		return nil, conflict(HooksKey, "expected an object of trigger lists")
	}

	hooks := make(map[string][]Entry, len(triggers))
	for name, listRaw := range triggers {
		loc := HooksKey + "." + name

		var items []json.RawMessage
		if err := json.Unmarshal(listRaw, &items); err != nil {
			return nil, conflict(loc, "expected an array of entries")
		}

		list := make([]Entry, 0, len(items))
		for i, item := range items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, conflict(fmt.Sprintf("%s[%d]", loc, i), "%v", err)
			}
			list = append(list, e)
		}
		hooks[name] = list
	}
	return hooks, nil
}

func decodeEntry(raw json.RawMessage) (Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var e Entry
	if err := dec.Decode(&e); err != nil || e == nil {
		return nil, errors.New("expected an object")
	}
	if c, ok := e["command"]; ok {
		if _, isString := c.(string); !isString {
			return nil, errors.New(`"command" must be a string`)
		}
	}
	if inner, ok := e[HooksKey]; ok {
		list, isList := inner.([]any)
		if !isList {
			return nil, errors.New(`"hooks" must be an array`)
		}
		for j, h := range list {
			obj, isObj := h.(map[string]any)
			if !isObj {
				return nil, fmt.Errorf("hooks[%d]: expected an object", j)
			}
			if c, ok := obj["command"]; ok {
				if _, isString := c.(string); !isString {
					return nil, fmt.Errorf(`hooks[%d]: "command" must be a string`, j)
				}
			}
		}
	}
	return e, nil
}

// Load reads and parses the document at path. A missing file is an empty
// document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Marshal renders the document as indented JSON with sorted keys and a
// trailing newline. HTML characters in commands (&&, <, >) are not escaped.
func (d *Document) Marshal() ([]byte, error) {
	out := make(map[string]any, len(d.Settings)+1)
	for k, v := range d.Settings {
		out[k] = v
	}
	if d.Hooks != nil {
		out[HooksKey] = d.Hooks
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encoding settings document: %w", err)
	}
	return buf.Bytes(), nil
}

// Commands returns the command strings of a trigger list, looking one level
// into grouping entries.
func Commands(list []Entry) []string {
	var out []string
	for _, e := range list {
		out = append(out, e.commands()...)
	}
	return out
}

func (e Entry) commands() []string {
	var out []string
	if c, ok := e["command"].(string); ok && strings.TrimSpace(c) != "" {
		out = append(out, c)
	}
	if inner, ok := e[HooksKey].([]any); ok {
		for _, h := range inner {
			if c := innerCommand(h); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

func innerCommand(h any) string {
	obj, ok := h.(map[string]any)
	if !ok {
		return ""
	}
	c, _ := obj["command"].(string)
	if strings.TrimSpace(c) == "" {
		return ""
	}
	return c
}

func (d *Document) clone() *Document {
	out := &Document{Settings: maps.Clone(d.Settings)}
	if out.Settings == nil {
		out.Settings = make(map[string]json.RawMessage)
	}
	if d.Hooks != nil {
		out.Hooks = make(map[string][]Entry, len(d.Hooks))
		for name, list := range d.Hooks {
			out.Hooks[name] = append([]Entry(nil), list...)
		}
	}
	return out
}

func conflict(loc, format string, args ...any) error {
	return fmt.Errorf("%w at %s: %s", ErrMergeConflict, loc, fmt.Sprintf(format, args...))
}
