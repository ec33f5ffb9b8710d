package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeKind tags the shape of an [ExportsNode].
type NodeKind uint8

const (
	NodeNull   NodeKind = iota // explicit null: target unavailable
	NodeString                 // file path
	NodeList                   // ordered fallback alternatives
	NodeMap                    // subpath map or condition map
	NodeOther                  // number or boolean; not valid in an exports map
)

func (k NodeKind) String() string {
	switch k {
	case NodeNull:
		return "null"
	case NodeString:
		return "string"
	case NodeList:
		return "list"
	case NodeMap:
		return "map"
	default:
		return "other"
	}
}

// ExportsNode is one node of a package.json "exports" value.
//
// Only the fields matching Kind are set: Path for NodeString, Items for
// NodeList, Entries for NodeMap and Raw for NodeOther. Map entries keep the
// order in which they appear in the manifest.
type ExportsNode struct {
	Kind    NodeKind
	Path    string
	Items   []ExportsNode
	Entries []ExportsEntry
	Raw     json.RawMessage
}

// ExportsEntry is a single key of a map node.
type ExportsEntry struct {
	Key   string
	Value ExportsNode
}

// Str returns a string leaf.
func Str(path string) ExportsNode { return ExportsNode{Kind: NodeString, Path: path} }

// Null returns a null leaf.
func Null() ExportsNode { return ExportsNode{Kind: NodeNull} }

// List returns a list node.
func List(items ...ExportsNode) ExportsNode { return ExportsNode{Kind: NodeList, Items: items} }

// Map returns a map node with entries in the given order.
func Map(entries ...ExportsEntry) ExportsNode { return ExportsNode{Kind: NodeMap, Entries: entries} }

// Entry is shorthand for building an [ExportsEntry].
func Entry(key string, value ExportsNode) ExportsEntry {
	return ExportsEntry{Key: key, Value: value}
}

// Get returns the value stored under key in a map node.
func (n ExportsNode) Get(key string) (ExportsNode, bool) {
	if n.Kind != NodeMap {
		return ExportsNode{}, false
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return ExportsNode{}, false
}

// HasSubpaths reports whether a map node has at least one "."-prefixed key,
// which makes it a subpath map rather than a condition map.
func (n ExportsNode) HasSubpaths() bool {
	for _, e := range n.Entries {
		if strings.HasPrefix(e.Key, ".") {
			return true
		}
	}
	return false
}

// Truthy applies JavaScript truthiness: null, "", false and 0 are falsy,
// lists and maps are always truthy.
func (n ExportsNode) Truthy() bool {
	switch n.Kind {
	case NodeString:
		return n.Path != ""
	case NodeList, NodeMap:
		return true
	case NodeOther:
		raw := string(n.Raw)
		if raw == "true" {
			return true
		}
		if raw == "false" {
			return false
		}
		f, err := strconv.ParseFloat(raw, 64)
		return err == nil && f != 0
	default:
		return false
	}
}

// UnmarshalJSON decodes any JSON value into a node, keeping object key order.
// Duplicate keys keep their first position and their last value.
func (n *ExportsNode) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeNode(dec)
	if err != nil {
		return fmt.Errorf("decode exports: %w", err)
	}
	*n = node
	return nil
}

func decodeNode(dec *json.Decoder) (ExportsNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return ExportsNode{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		return Str(t), nil
	case bool:
		return ExportsNode{Kind: NodeOther, Raw: json.RawMessage(strconv.FormatBool(t))}, nil
	case json.Number:
		return ExportsNode{Kind: NodeOther, Raw: json.RawMessage(t.String())}, nil
	case json.Delim:
		switch t {
		case '[':
			return decodeList(dec)
		case '{':
			return decodeMap(dec)
		}
	}
	return ExportsNode{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeList(dec *json.Decoder) (ExportsNode, error) {
	n := ExportsNode{Kind: NodeList, Items: []ExportsNode{}}
	for dec.More() {
		item, err := decodeNode(dec)
		if err != nil {
			return ExportsNode{}, err
		}
		n.Items = append(n.Items, item)
	}
	if _, err := dec.Token(); err != nil {
		return ExportsNode{}, err
	}
	return n, nil
}

func decodeMap(dec *json.Decoder) (ExportsNode, error) {
	n := ExportsNode{Kind: NodeMap, Entries: []ExportsEntry{}}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ExportsNode{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return ExportsNode{}, fmt.Errorf("object key %v is not a string", tok)
		}
		value, err := decodeNode(dec)
		if err != nil {
			return ExportsNode{}, err
		}
		if i, dup := index[key]; dup {
			n.Entries[i].Value = value
			continue
		}
		index[key] = len(n.Entries)
		n.Entries = append(n.Entries, Entry(key, value))
	}
	if _, err := dec.Token(); err != nil {
		return ExportsNode{}, err
	}
	return n, nil
}

// MarshalJSON encodes the node back to JSON in its original key order.
func (n ExportsNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n ExportsNode) encode(buf *bytes.Buffer) error {
	switch n.Kind {
	case NodeNull:
		buf.WriteString("null")
	case NodeString:
		b, err := json.Marshal(n.Path)
		if err != nil {
			return err
		}
		buf.Write(b)
	case NodeList:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case NodeMap:
		buf.WriteByte('{')
		for i, e := range n.Entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := e.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		if len(n.Raw) == 0 {
			buf.WriteString("null")
			return nil
		}
		buf.Write(n.Raw)
	}
	return nil
}
