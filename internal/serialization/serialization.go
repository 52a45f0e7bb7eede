// Package serialization reads and writes JSON snapshots of state
// graphs, so hosts can run the cascade without a live debugger.
package serialization

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/stateviz/stateviz/internal/state"
)

type graphSnapshot struct {
	Nodes []nodeSnapshot `json:"nodes"`
}

type nodeSnapshot struct {
	ID    string         `json:"id"`
	Class string         `json:"class"`
	Type  string         `json:"type,omitempty"`
	Value *valueSnapshot `json:"value,omitempty"`
	Edges []edgeSnapshot `json:"edges,omitempty"`
}

type valueSnapshot struct {
	Kind string `json:"kind"`
	Bool bool   `json:"bool,omitempty"`
	Int  int64  `json:"int,omitempty"`
	Uint uint64 `json:"uint,omitempty"`
}

type edgeSnapshot struct {
	Label labelSnapshot `json:"label"`
	To    string        `json:"to"`
}

type labelSnapshot struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Disc  int    `json:"disc,omitempty"`
	Index uint64 `json:"index,omitempty"`
}

// WriteJSON serializes a graph snapshot.
func WriteJSON(g *state.MemGraph, w io.Writer) error {
	snapshot := graphSnapshot{}
	ids := g.Nodes()
	sort.Slice(ids, func(i, j int) bool { return encodeID(ids[i]) < encodeID(ids[j]) })
	for _, id := range ids {
		node, ok := g.Get(id)
		if !ok {
			continue
		}
		entry := nodeSnapshot{
			ID:    encodeID(id),
			Class: node.Class.String(),
			Type:  node.TypeName,
		}
		if node.Value != nil {
			entry.Value = encodeValue(*node.Value)
		}
		for _, edge := range node.Successors {
			entry.Edges = append(entry.Edges, edgeSnapshot{
				Label: encodeLabel(edge.Label),
				To:    encodeID(edge.To),
			})
		}
		snapshot.Nodes = append(snapshot.Nodes, entry)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}

// ReadJSON deserializes a graph snapshot.
func ReadJSON(r io.Reader) (*state.MemGraph, error) {
	var snapshot graphSnapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, err
	}
	g := state.NewMemGraph()
	for _, entry := range snapshot.Nodes {
		id, err := decodeID(entry.ID)
		if err != nil {
			return nil, err
		}
		class, err := decodeClass(entry.Class)
		if err != nil {
			return nil, err
		}
		node := &state.Node{Class: class, TypeName: entry.Type}
		if entry.Value != nil {
			value, err := decodeValue(entry.Value)
			if err != nil {
				return nil, err
			}
			node.Value = &value
		}
		for _, edge := range entry.Edges {
			label, err := decodeLabel(edge.Label)
			if err != nil {
				return nil, err
			}
			to, err := decodeID(edge.To)
			if err != nil {
				return nil, err
			}
			node.Successors = append(node.Successors, state.Edge{Label: label, To: to})
		}
		if id == state.RootID() {
			root, _ := g.Get(id)
			*root = *node
		} else {
			g.AddNode(id, node)
		}
	}
	return g, nil
}

// SaveJSON writes a snapshot to a file.
func SaveJSON(g *state.MemGraph, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(g, file)
}

// LoadJSON reads a snapshot from a file.
func LoadJSON(path string) (*state.MemGraph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadJSON(file)
}

func encodeID(id state.NodeID) string {
	switch id.Kind {
	case state.IDRoot:
		return "root"
	case state.IDFrame:
		return "frame:" + strconv.Itoa(id.Frame)
	case state.IDVariable:
		return "var:" + id.Handle
	default:
		return "len:" + id.Handle
	}
}

func decodeID(encoded string) (state.NodeID, error) {
	if encoded == "root" {
		return state.RootID(), nil
	}
	if rest, ok := strings.CutPrefix(encoded, "frame:"); ok {
		index, err := strconv.Atoi(rest)
		if err != nil {
			return state.NodeID{}, fmt.Errorf("invalid frame id %q", encoded)
		}
		return state.FrameID(index), nil
	}
	if rest, ok := strings.CutPrefix(encoded, "var:"); ok {
		return state.VariableID(rest), nil
	}
	if rest, ok := strings.CutPrefix(encoded, "len:"); ok {
		return state.LengthID(rest), nil
	}
	return state.NodeID{}, fmt.Errorf("invalid node id %q", encoded)
}

func decodeClass(name string) (state.NodeTypeClass, error) {
	switch name {
	case "root":
		return state.ClassRoot, nil
	case "frame":
		return state.ClassFrame, nil
	case "val":
		return state.ClassAtom, nil
	case "struct":
		return state.ClassStruct, nil
	case "arr":
		return state.ClassArray, nil
	case "ref":
		return state.ClassRef, nil
	default:
		return 0, fmt.Errorf("invalid node class %q", name)
	}
}

func encodeValue(value state.NodeValue) *valueSnapshot {
	switch value.Kind {
	case state.BoolVal:
		return &valueSnapshot{Kind: "bool", Bool: value.B}
	case state.IntVal:
		return &valueSnapshot{Kind: "int", Int: value.I}
	default:
		return &valueSnapshot{Kind: "uint", Uint: value.U}
	}
}

func decodeValue(snapshot *valueSnapshot) (state.NodeValue, error) {
	switch snapshot.Kind {
	case "bool":
		return state.BoolValue(snapshot.Bool), nil
	case "int":
		return state.IntValue(snapshot.Int), nil
	case "uint":
		return state.UintValue(snapshot.Uint), nil
	default:
		return state.NodeValue{}, fmt.Errorf("invalid value kind %q", snapshot.Kind)
	}
}

func encodeLabel(label state.EdgeLabel) labelSnapshot {
	switch label.Kind {
	case state.KindMain:
		return labelSnapshot{Kind: "main"}
	case state.KindNext:
		return labelSnapshot{Kind: "next"}
	case state.KindResult:
		return labelSnapshot{Kind: "ret"}
	case state.KindDeref:
		return labelSnapshot{Kind: "ref"}
	case state.KindIndex:
		return labelSnapshot{Kind: "index", Index: label.Index}
	case state.KindNamed:
		return labelSnapshot{Kind: "named", Name: label.Name, Disc: label.Disc}
	default:
		return labelSnapshot{Kind: "len"}
	}
}

func decodeLabel(snapshot labelSnapshot) (state.EdgeLabel, error) {
	switch snapshot.Kind {
	case "main":
		return state.Main, nil
	case "next":
		return state.Next, nil
	case "ret":
		return state.Result, nil
	case "ref":
		return state.Deref, nil
	case "index":
		return state.Index(snapshot.Index), nil
	case "named":
		return state.Named(snapshot.Name, snapshot.Disc), nil
	case "len":
		return state.Length, nil
	default:
		return state.EdgeLabel{}, fmt.Errorf("invalid edge label kind %q", snapshot.Kind)
	}
}
