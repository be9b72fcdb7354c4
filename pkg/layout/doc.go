// Package layout computes 2D positions for graph nodes with a force-directed
// simulation.
//
// Every node becomes a body with a position, a velocity, and a mass of
// 1 + degree/3. Each [Engine.Step] applies four forces and integrates once:
//
//   - springs along links, pulling endpoints toward SpringLength
//   - pairwise n-body forces scaled by Gravity (negative values repel),
//     approximated with a Barnes-Hut quadtree
//   - drag opposing velocity, scaled by DragCoefficient
//   - a pull toward the origin scaled by CenterGravity
//
// Pinned bodies keep their position but still act on the others.
//
// The engine never decides when a layout is finished; callers choose how
// many steps to run. Runs are reproducible: the same graph, [Config], and
// seed always produce the same positions.
//
// Simulation coordinates are unrelated to the semantic map positions stored
// on graph nodes.
package layout
