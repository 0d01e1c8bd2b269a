package cluster

import (
	"math/rand"
	"slices"

	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/internal/rng"
)

// minGain is the smallest modularity gain accepted as a strict improvement.
const minGain = 1e-12

type arc struct {
	to int
	w  float64
}

// network is a read-only undirected weighted graph in index form.
// self[i] holds the weight of ordered pairs inside vertex i (aggregated
// communities); k[i] = self[i] + Σ arcs; m2 = Σ k = 2m.
type network struct {
	adj  [][]arc
	self []float64
	k    []float64
	m2   float64
}

func (nw *network) n() int { return len(nw.adj) }

func fromGraph(g *core.Graph) (*network, []string, error) {
	ids := g.Vertices()
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	nw := &network{
		adj:  make([][]arc, len(ids)),
		self: make([]float64, len(ids)),
		k:    make([]float64, len(ids)),
	}
	for i, id := range ids {
		nbs, err := g.Neighbors(id)
		if err != nil {
			return nil, nil, err
		}
		for _, nb := range nbs {
			if nb.Weight < 0 {
				return nil, nil, ErrNegativeWeight
			}
			j := pos[nb.ID]
			if j == i {
				nw.self[i] += 2 * nb.Weight
				continue
			}
			nw.adj[i] = append(nw.adj[i], arc{to: j, w: nb.Weight})
		}
	}
	nw.finish()

	return nw, ids, nil
}

func (nw *network) finish() {
	nw.m2 = 0
	for i, arcs := range nw.adj {
		s := nw.self[i]
		for _, a := range arcs {
			s += a.w
		}
		nw.k[i] = s
		nw.m2 += s
	}
}

// localMove runs sweeps of greedy moves over comm in place. It reports
// whether any vertex moved and whether the sweep cap was hit.
func (nw *network) localMove(comm, order []int, gamma float64, maxSweeps int) (moved, capped bool) {
	n := nw.n()
	tot := make([]float64, n)
	size := make([]int, n)
	for i, c := range comm {
		tot[c] += nw.k[i]
		size[c]++
	}
	var free []int
	for c, s := range size {
		if s == 0 {
			free = append(free, c)
		}
	}
	weightTo := make([]float64, n)
	seen := make([]bool, n)
	touched := make([]int, 0, 16)

	for sweep := 0; sweep < maxSweeps; sweep++ {
		changes := 0
		for _, i := range order {
			ci := comm[i]
			touched = touched[:0]
			for _, a := range nw.adj[i] {
				c := comm[a.to]
				if !seen[c] {
					seen[c] = true
					touched = append(touched, c)
				}
				weightTo[c] += a.w
			}

			tot[ci] -= nw.k[i]
			size[ci]--
			ratio := gamma * nw.k[i] / nw.m2
			best, bestGain := ci, weightTo[ci]-ratio*tot[ci]
			for _, c := range touched {
				if gain := weightTo[c] - ratio*tot[c]; gain-bestGain > minGain {
					best, bestGain = c, gain
				}
			}
			// An empty community has gain 0.
			if bestGain < -minGain {
				best = free[len(free)-1]
				free = free[:len(free)-1]
			}
			if best != ci && size[ci] == 0 {
				free = append(free, ci)
			}
			tot[best] += nw.k[i]
			size[best]++
			if best != ci {
				comm[i] = best
				changes++
			}

			for _, c := range touched {
				seen[c] = false
				weightTo[c] = 0
			}
		}
		if changes == 0 {
			return moved, false
		}
		moved = true
	}

	return moved, true
}

// renumber maps community IDs to 0..c-1 in order of first appearance.
func renumber(comm []int) int {
	remap := make(map[int]int)
	for i, c := range comm {
		id, ok := remap[c]
		if !ok {
			id = len(remap)
			remap[c] = id
		}
		comm[i] = id
	}

	return len(remap)
}

// aggregate collapses communities into vertices.
func (nw *network) aggregate(comm []int, nc int) *network {
	out := &network{
		adj:  make([][]arc, nc),
		self: make([]float64, nc),
		k:    make([]float64, nc),
	}
	links := make([]map[int]float64, nc)
	for i, arcs := range nw.adj {
		ci := comm[i]
		out.self[ci] += nw.self[i]
		for _, a := range arcs {
			cj := comm[a.to]
			if cj == ci {
				out.self[ci] += a.w
				continue
			}
			if links[ci] == nil {
				links[ci] = make(map[int]float64)
			}
			links[ci][cj] += a.w
		}
	}
	for c, m := range links {
		arcs := make([]arc, 0, len(m))
		for to, w := range m {
			arcs = append(arcs, arc{to: to, w: w})
		}
		slices.SortFunc(arcs, func(x, y arc) int { return x.to - y.to })
		out.adj[c] = arcs
	}
	out.finish()

	return out
}

// louvain returns the membership of every original vertex, the number of
// levels run and whether the run converged within its caps.
func (nw *network) louvain(r *rand.Rand, opts Options) (membership []int, levels int, converged bool) {
	membership = identity(nw.n())
	if nw.m2 == 0 {
		return membership, 0, true
	}
	cur := nw
	capped := false
	for levels < opts.MaxIterations {
		levels++
		comm := identity(cur.n())
		moved, hitCap := cur.localMove(comm, rng.Perm(cur.n(), r), opts.Resolution, opts.MaxSweeps)
		capped = capped || hitCap
		if !moved {
			converged = true
			break
		}
		nc := renumber(comm)
		for i, m := range membership {
			membership[i] = comm[m]
		}
		if nc == cur.n() {
			converged = true
			break
		}
		cur = cur.aggregate(comm, nc)
	}

	return membership, levels, converged && !capped
}

// modularity evaluates Q = Σ_C [in_C/2m − γ·(tot_C/2m)²] for labels in [0, n).
func (nw *network) modularity(labels []int, gamma float64) float64 {
	if nw.m2 == 0 {
		return 0
	}
	in := make([]float64, nw.n())
	tot := make([]float64, nw.n())
	for i, arcs := range nw.adj {
		c := labels[i]
		tot[c] += nw.k[i]
		in[c] += nw.self[i]
		for _, a := range arcs {
			if labels[a.to] == c {
				in[c] += a.w
			}
		}
	}
	var q float64
	for c, t := range tot {
		if t == 0 {
			continue
		}
		f := t / nw.m2
		q += in[c]/nw.m2 - gamma*f*f
	}

	return q
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
