package common

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Graph is a node-link graph as exported by networkx. Edges live under
// either "links" or "edges" depending on the exporter; EdgeList hides the
// difference.
//
// Nodes and links keep every attribute of the source file so they can be
// passed through to clients untouched.
type Graph struct {
	Directed   bool   `json:"directed"`
	Multigraph bool   `json:"multigraph"`
	Nodes      []Node `json:"nodes"`
	Links      []Link `json:"links,omitempty"`
	Edges      []Link `json:"edges,omitempty"`
}

// EdgeList returns the links of the graph, or its edges when the file uses
// the "edges" key.
func (g *Graph) EdgeList() []Link {
	if len(g.Links) > 0 {
		return g.Links
	}
	return g.Edges
}

// NodeMap indexes the nodes by id. Later duplicates win.
func (g *Graph) NodeMap() map[string]Node {
	m := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		m[n.ID()] = n
	}
	return m
}

// ParseGraph decodes a node-link JSON document.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	return &g, nil
}

// Attrs is a free-form attribute map of a node or link.
type Attrs map[string]any

// String returns the attribute as a string. Numbers are formatted without
// exponent, missing or null attributes yield "".
func (a Attrs) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// StringOr returns the attribute as a string, or def when it is empty.
func (a Attrs) StringOr(key, def string) string {
	if s := a.String(key); s != "" {
		return s
	}
	return def
}

// Node is a graph node such as an Entity or an Event.
type Node Attrs

func (n Node) ID() string      { return Attrs(n).String("id") }
func (n Node) Type() string    { return Attrs(n).String("type") }
func (n Node) SubType() string { return Attrs(n).String("sub_type") }

// Get returns a string attribute of the node.
func (n Node) Get(key string) string { return Attrs(n).String(key) }

// GetOr returns a string attribute of the node or def when it is empty.
func (n Node) GetOr(key, def string) string { return Attrs(n).StringOr(key, def) }

// Link is a directed edge. Communication links additionally carry
// event_id, content and datetime.
type Link Attrs

func (l Link) Source() string { return Attrs(l).String("source") }
func (l Link) Target() string { return Attrs(l).String("target") }
func (l Link) Type() string   { return Attrs(l).String("type") }

// Get returns a string attribute of the link.
func (l Link) Get(key string) string { return Attrs(l).String(key) }

// Communication is a message between two entities, taken from one link of
// the communication graph.
type Communication struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Content  string `json:"content"`
	Datetime string `json:"datetime"`
}

// CommunicationFromLink reads the communication fields of a link.
func CommunicationFromLink(l Link) Communication {
	return Communication{
		ID:       l.Get("event_id"),
		Source:   l.Source(),
		Target:   l.Target(),
		Content:  l.Get("content"),
		Datetime: l.Get("datetime"),
	}
}

// SimilarityMatrix is a square entity-by-entity matrix labelled on both axes.
type SimilarityMatrix struct {
	Entities []string    `json:"entities"`
	Matrix   [][]float64 `json:"matrix"`
}
