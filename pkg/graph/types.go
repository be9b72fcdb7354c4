package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies a board game across the whole dataset.
type NodeID int64

// String returns the decimal form of the id.
func (id NodeID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseNodeID parses a decimal node id.
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("node id %q: %w", s, err)
	}
	return NodeID(v), nil
}

// ClusterID identifies a cluster subgraph.
type ClusterID int64

// String returns the decimal form of the id.
func (id ClusterID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseClusterID parses a decimal cluster id.
func ParseClusterID(s string) (ClusterID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cluster id %q: %w", s, err)
	}
	return ClusterID(v), nil
}

// Position is a semantic map coordinate in [lng, lat] order, assigned by the
// offline data pipeline. It is never a layout position.
type Position [2]float64

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[1] }

// String formats the position the way payloads carry it: "lng,lat".
func (p Position) String() string {
	return strconv.FormatFloat(p[0], 'f', -1, 64) + "," + strconv.FormatFloat(p[1], 'f', -1, 64)
}

// ParsePosition parses a "lng,lat" string.
func ParsePosition(s string) (Position, error) {
	lng, lat, ok := strings.Cut(s, ",")
	if !ok {
		return Position{}, fmt.Errorf("position %q: want \"lng,lat\"", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	return Position{x, y}, nil
}

// NodeData holds the typed attributes of a board game.
//
// Cluster is nil for nodes that have not been classified yet; the fetcher
// backfills it with the id of the cluster that delivered the node.
type NodeData struct {
	Label      string     `json:"label,omitempty" bson:"label,omitempty"`
	Position   Position   `json:"position" bson:"position"`
	Cluster    *ClusterID `json:"cluster,omitempty" bson:"cluster,omitempty"`
	Size       float64    `json:"size,omitempty" bson:"size,omitempty"`
	Complexity float64    `json:"complexity,omitempty" bson:"complexity,omitempty"`
	Rating     float64    `json:"rating,omitempty" bson:"rating,omitempty"`
	MaxPlayers string     `json:"max_players,omitempty" bson:"max_players,omitempty"`
	IsExternal bool       `json:"is_external,omitempty" bson:"is_external,omitempty"`
}

// Clone returns a deep copy of d.
func (d NodeData) Clone() NodeData {
	if d.Cluster != nil {
		c := *d.Cluster
		d.Cluster = &c
	}
	return d
}

// ClusterOr returns the node's cluster id, or def when it is unset.
func (d NodeData) ClusterOr(def ClusterID) ClusterID {
	if d.Cluster == nil {
		return def
	}
	return *d.Cluster
}

// LinkData holds the typed attributes of a similarity link.
//
// A link with a non-empty Status is suppressed from drawing.
type LinkData struct {
	Weight   float64 `json:"weight" bson:"weight"`
	External bool    `json:"external,omitempty" bson:"external,omitempty"`
	Status   string  `json:"status,omitempty" bson:"status,omitempty"`
}

// Visible reports whether the link should be drawn.
func (d LinkData) Visible() bool { return d.Status == "" }

// Cluster returns a pointer to id, for filling [NodeData.Cluster].
func Cluster(id ClusterID) *ClusterID { return &id }
