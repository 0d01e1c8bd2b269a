// Package neighbors builds the k-nearest-neighbor and shared-nearest-neighbor
// graphs over cells in a reduced embedding.
//
// An Index answers "the k nearest other points of point i". BruteForce is an
// exact index: Euclidean distance over the leading Dims coordinates, ties
// broken by cell identifier so results do not depend on input order. The
// index is immutable after construction and queried concurrently.
//
// The SNN graph is derived from the KNN lists. Each cell's neighbor set
// includes the cell itself, S(i) = {i} ∪ kNN(i), and every pair (i, j) with
// intersecting sets receives the Jaccard overlap |S(i) ∩ S(j)| / |S(i) ∪ S(j)|
// as weight. That covers each KNN pair and the cells that only share a
// neighbor. Pairs below Prune are dropped. The result is an undirected
// weighted core.Graph whose vertices are all cells, isolated ones included.
package neighbors
