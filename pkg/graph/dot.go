package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/formats/dot"
	"gonum.org/v1/gonum/graph/formats/dot/ast"
)

// ErrMalformed is wrapped by every decoding error caused by payload content.
var ErrMalformed = errors.New("malformed graph payload")

// Payload attribute keys.
const (
	attrLabel      = "label"
	attrPosition   = "l"
	attrCluster    = "c"
	attrID         = "id"
	attrSize       = "size"
	attrComplexity = "complexity"
	attrRating     = "rating"
	attrMaxPlayers = "max_players"
	attrExternal   = "isExternal"
	attrWeight     = "weight"
	attrEdgeExt    = "e"
	attrStatus     = "status"
)

// undefinedCluster is the literal some payloads use for an unset cluster.
const undefinedCluster = "undefined"

// =============================================================================
// Decoding
// =============================================================================

// DecodeDOT parses a DOT payload into a Graph.
//
// Only the first graph of the file is read. Node names must be integer ids
// unless the node carries an "id" attribute. Nodes mentioned only by edge
// statements are created with empty data. Every recognized attribute is
// validated; the first invalid one aborts decoding with an error wrapping
// [ErrMalformed].
func DecodeDOT(data []byte) (*Graph, error) {
	f, err := dot.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(f.Graphs) == 0 {
		return nil, fmt.Errorf("%w: no graph", ErrMalformed)
	}
	d := &decoder{g: New(), names: make(map[string]NodeID)}
	if err := d.stmts(f.Graphs[0].Stmts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d.g, nil
}

// ReadDOT reads r fully and decodes it with [DecodeDOT].
func ReadDOT(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return DecodeDOT(data)
}

type decoder struct {
	g         *Graph
	names     map[string]NodeID
	nodeAttrs []*ast.Attr
	edgeAttrs []*ast.Attr
}

func (d *decoder) stmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		var err error
		switch s := s.(type) {
		case *ast.NodeStmt:
			err = d.nodeStmt(s)
		case *ast.EdgeStmt:
			err = d.edgeStmt(s)
		case *ast.AttrStmt:
			switch s.Kind {
			case ast.NodeKind:
				d.nodeAttrs = append(d.nodeAttrs, s.Attrs...)
			case ast.EdgeKind:
				d.edgeAttrs = append(d.edgeAttrs, s.Attrs...)
			}
		case *ast.Subgraph:
			err = d.stmts(s.Stmts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) nodeStmt(s *ast.NodeStmt) error {
	name := unquote(s.Node.ID)
	attrs := append(append([]*ast.Attr(nil), d.nodeAttrs...), s.Attrs...)

	id, known := d.names[name]
	if !known {
		var err error
		if id, err = resolveNodeID(name, attrs); err != nil {
			return err
		}
		d.names[name] = id
	}

	var data NodeData
	if n, ok := d.g.Node(id); ok {
		data = n.Data
	}
	if err := applyNodeAttrs(&data, attrs); err != nil {
		return fmt.Errorf("node %s: %w", name, err)
	}
	d.g.AddNode(id, data)
	return nil
}

func (d *decoder) edgeStmt(s *ast.EdgeStmt) error {
	var data LinkData
	attrs := append(append([]*ast.Attr(nil), d.edgeAttrs...), s.Attrs...)
	if err := applyLinkAttrs(&data, attrs); err != nil {
		return fmt.Errorf("edge: %w", err)
	}

	from, err := d.vertex(s.From)
	if err != nil {
		return err
	}
	for e := s.To; e != nil; e = e.To {
		to, err := d.vertex(e.Vertex)
		if err != nil {
			return err
		}
		for _, a := range from {
			for _, b := range to {
				d.g.AddLink(a, b, data)
			}
		}
		from = to
	}
	return nil
}

// vertex resolves an edge endpoint, declaring implicit nodes on first use.
func (d *decoder) vertex(v ast.Vertex) ([]NodeID, error) {
	switch v := v.(type) {
	case *ast.Node:
		name := unquote(v.ID)
		if id, ok := d.names[name]; ok {
			return []NodeID{id}, nil
		}
		id, err := resolveNodeID(name, nil)
		if err != nil {
			return nil, err
		}
		d.names[name] = id
		if !d.g.HasNode(id) {
			d.g.AddNode(id, NodeData{})
		}
		return []NodeID{id}, nil
	case *ast.Subgraph:
		if err := d.stmts(v.Stmts); err != nil {
			return nil, err
		}
		return d.members(v.Stmts), nil
	}
	return nil, fmt.Errorf("unsupported vertex %T", v)
}

// members lists the ids named by a subgraph body, in order of appearance.
func (d *decoder) members(stmts []ast.Stmt) []NodeID {
	var ids []NodeID
	seen := make(map[NodeID]bool)
	add := func(name string) {
		if id, ok := d.names[name]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	var walk func([]ast.Stmt)
	var vert func(ast.Vertex)
	vert = func(v ast.Vertex) {
		switch v := v.(type) {
		case *ast.Node:
			add(unquote(v.ID))
		case *ast.Subgraph:
			walk(v.Stmts)
		}
	}
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case *ast.NodeStmt:
				add(unquote(s.Node.ID))
			case *ast.EdgeStmt:
				vert(s.From)
				for e := s.To; e != nil; e = e.To {
					vert(e.Vertex)
				}
			case *ast.Subgraph:
				walk(s.Stmts)
			}
		}
	}
	walk(stmts)
	return ids
}

func resolveNodeID(name string, attrs []*ast.Attr) (NodeID, error) {
	if id, err := ParseNodeID(name); err == nil {
		return id, nil
	}
	for _, a := range attrs {
		if unquote(a.Key) == attrID {
			return ParseNodeID(unquote(a.Val))
		}
	}
	return 0, fmt.Errorf("node %q: name is not an integer id and no id attribute", name)
}

func applyNodeAttrs(data *NodeData, attrs []*ast.Attr) error {
	for _, a := range attrs {
		key, val := unquote(a.Key), unquote(a.Val)
		var err error
		switch key {
		case attrLabel:
			data.Label = val
		case attrPosition:
			data.Position, err = ParsePosition(val)
		case attrCluster:
			data.Cluster, err = parseCluster(val)
		case attrSize:
			data.Size, err = parseFloat(key, val)
		case attrComplexity:
			data.Complexity, err = parseFloat(key, val)
		case attrRating:
			data.Rating, err = parseFloat(key, val)
		case attrMaxPlayers:
			data.MaxPlayers = val
		case attrExternal:
			data.IsExternal, err = parseBool(key, val)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyLinkAttrs(data *LinkData, attrs []*ast.Attr) error {
	for _, a := range attrs {
		key, val := unquote(a.Key), unquote(a.Val)
		var err error
		switch key {
		case attrWeight:
			data.Weight, err = parseFloat(key, val)
		case attrEdgeExt:
			data.External, err = parseBool(key, val)
		case attrStatus:
			data.Status = val
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func parseCluster(val string) (*ClusterID, error) {
	val = strings.TrimSpace(val)
	if val == "" || val == undefinedCluster {
		return nil, nil
	}
	id, err := ParseClusterID(val)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseFloat(key, val string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s=%q: not a number", key, val)
	}
	return f, nil
}

func parseBool(key, val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes":
		return true, nil
	case "", "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("attribute %s=%q: not a boolean", key, val)
}

func unquote(s string) string {
	if t, err := strconv.Unquote(s); err == nil {
		return t
	}
	return s
}

// =============================================================================
// Encoding
// =============================================================================

// WriteDOT writes g in the payload format accepted by [DecodeDOT].
func WriteDOT(g *Graph, w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	for n := range g.Nodes() {
		attrs := []string{
			fmt.Sprintf("%s=%q", attrLabel, n.Data.Label),
			fmt.Sprintf("%s=%q", attrPosition, n.Data.Position.String()),
		}
		if n.Data.Cluster != nil {
			attrs = append(attrs, fmt.Sprintf("%s=%q", attrCluster, n.Data.Cluster.String()))
		}
		attrs = appendNum(attrs, attrSize, n.Data.Size)
		attrs = appendNum(attrs, attrComplexity, n.Data.Complexity)
		attrs = appendNum(attrs, attrRating, n.Data.Rating)
		if n.Data.MaxPlayers != "" {
			attrs = append(attrs, fmt.Sprintf("%s=%q", attrMaxPlayers, n.Data.MaxPlayers))
		}
		if n.Data.IsExternal {
			attrs = append(attrs, attrExternal+`="1"`)
		}
		fmt.Fprintf(&buf, "  %d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}
	for l := range g.Links() {
		attrs := []string{fmt.Sprintf("%s=%q", attrWeight, strconv.FormatFloat(l.Data.Weight, 'g', -1, 64))}
		if l.Data.External {
			attrs = append(attrs, attrEdgeExt+`="1"`)
		}
		if l.Data.Status != "" {
			attrs = append(attrs, fmt.Sprintf("%s=%q", attrStatus, l.Data.Status))
		}
		fmt.Fprintf(&buf, "  %d -- %d [%s];\n", l.From, l.To, strings.Join(attrs, ", "))
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func appendNum(attrs []string, key string, v float64) []string {
	if v == 0 {
		return attrs
	}
	return append(attrs, fmt.Sprintf("%s=%q", key, strconv.FormatFloat(v, 'g', -1, 64)))
}
