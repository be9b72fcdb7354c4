// Package neighborhood builds bounded local graphs around a board game by
// breadth-first traversal across cluster subgraphs.
//
// Traversal starts at one node of one cluster. Each expanded node is looked
// up in its owner cluster's graph, loaded lazily through a [Loader], so the
// walk crosses into neighboring clusters as it meets nodes that live there.
// The result is a fresh [graph.Graph] holding copies of the visited nodes and
// at most one link per unordered node pair.
//
// Clusters needed by a BFS level are loaded concurrently before that level
// is processed; node and link order in the result stays the FIFO order.
package neighborhood
