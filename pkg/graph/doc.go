// Package graph provides the in-memory graph of board games and their
// similarity links.
//
// A [Graph] owns its nodes and links exclusively. Nodes are keyed by
// [NodeID]; links reference node ids and may point at nodes that are not
// present locally, since cluster subgraphs routinely link into clusters that
// have not been fetched yet.
//
// # Core Types
//
//   - [Graph]: ownership container with insertion-ordered iteration
//   - [Node], [NodeData]: one board game and its typed attributes
//   - [Link], [LinkData]: one similarity edge between two node ids
//
// # Serialization
//
// Cluster payloads arrive as Graphviz DOT text:
//
//	graph G {
//	  13 [label="Catan", l="12.5,3.2", c="42", complexity="2.3", rating="7.1"];
//	  822 [label="Carcassonne", l="12.9,3.0", c="42"];
//	  13 -- 822 [weight="0.12"];
//	}
//
// [DecodeDOT] turns such a payload into a [Graph], normalizing the "lng,lat"
// position string into a [Position] and validating every attribute. [WriteDOT]
// produces the same format, and [WriteJSON]/[ReadJSON] handle the node-link
// JSON used by the HTTP API.
//
// # Concurrency
//
// A Graph is safe for concurrent reads but not concurrent writes. Graphs
// handed out by the fetcher are shared and must be treated as read-only.
package graph
