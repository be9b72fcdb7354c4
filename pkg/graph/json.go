package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// =============================================================================
// Node-Link JSON
// =============================================================================

// Document is the node-link JSON form of a Graph.
type Document struct {
	Nodes []NodeDoc `json:"nodes" bson:"nodes"`
	Links []LinkDoc `json:"links" bson:"links"`
}

// NodeDoc is one node of a [Document].
type NodeDoc struct {
	ID NodeID `json:"id" bson:"id"`
	NodeData
}

// LinkDoc is one link of a [Document].
type LinkDoc struct {
	From NodeID `json:"from" bson:"from"`
	To   NodeID `json:"to" bson:"to"`
	LinkData
}

// ToDocument converts g to its node-link form, preserving insertion order.
func ToDocument(g *Graph) Document {
	doc := Document{
		Nodes: make([]NodeDoc, 0, g.NodeCount()),
		Links: make([]LinkDoc, 0, g.LinkCount()),
	}
	for n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: n.ID, NodeData: n.Data.Clone()})
	}
	for l := range g.Links() {
		doc.Links = append(doc.Links, LinkDoc{From: l.From, To: l.To, LinkData: l.Data})
	}
	return doc
}

// FromDocument builds a Graph from its node-link form.
func FromDocument(doc Document) *Graph {
	g := New()
	for _, n := range doc.Nodes {
		g.AddNode(n.ID, n.NodeData.Clone())
	}
	for _, l := range doc.Links {
		g.AddLink(l.From, l.To, l.LinkData)
	}
	return g
}

// MarshalJSON encodes g as node-link JSON.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToDocument(g))
}

// UnmarshalJSON replaces g with the decoded node-link JSON.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*g = *FromDocument(doc)
	return nil
}

// WriteJSON writes g as indented node-link JSON.
func WriteJSON(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes node-link JSON from r.
func ReadJSON(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(doc), nil
}

// WriteFile writes g to path, choosing DOT for a ".dot" extension and
// node-link JSON otherwise.
func WriteFile(g *Graph, path string) error {
	var buf bytes.Buffer
	var err error
	if filepath.Ext(path) == ".dot" {
		err = WriteDOT(g, &buf)
	} else {
		err = WriteJSON(g, &buf)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
