// Package cluster partitions a weighted cell graph into communities by
// modularity optimization and labels the cells.
//
// Algorithm (Louvain, per random start):
//
//  1. Every vertex starts in its own community.
//  2. Local moving: vertices are visited in a seeded random order and moved
//     to the neighboring community with the largest strictly positive gain
//     ΔQ ∝ w_iC − γ·k_i·Tot_C / 2m. Sweeps repeat until no vertex moves or
//     MaxSweeps is reached.
//  3. Aggregation: each community becomes a vertex; internal weight becomes a
//     self-loop. Steps 2 and 3 repeat for up to MaxIterations levels.
//
// RandomStarts independent starts run in parallel with seeds derived from
// Seed. The partition with the highest modularity wins; ties go to the lowest
// start index, so the result is identical for any worker count.
//
// Labels are renumbered 0..c-1 by cluster size (largest first), ties broken
// by the smallest member in vertex-ID order.
package cluster
