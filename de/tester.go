package de

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/scflow/diag"
)

// Tester names.
const (
	Bimod  = "bimod"
	Wilcox = "wilcox"
	TTest  = "t"
)

// ErrUnknownTest is returned for an unregistered tester name.
var ErrUnknownTest = diag.NewSentinel("de: unknown test")

// Stat is the outcome of one two-group comparison.
type Stat struct {
	LogFC  float64
	PValue float64
}

// Tester compares the log-normalized expression of one gene in two groups.
// The returned LogFC is the value reported for the gene; it must be finite.
type Tester interface {
	Name() string
	Test(a, b []float64) (Stat, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Tester{
		Bimod:  bimod{},
		Wilcox: wilcox{},
		TTest:  welch{},
	}
)

// Register adds or replaces a tester under its name.
func Register(t Tester) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.Name()] = t
}

// Lookup returns the tester registered under name.
func Lookup(name string) (Tester, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownTest)
	}

	return t, nil
}

// Testers lists the registered tester names in sorted order.
func Testers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

// AvgLogFC returns ln(mean(expm1(a)) + 1) − ln(mean(expm1(b)) + 1).
func AvgLogFC(a, b []float64) float64 {
	return math.Log1p(meanExpm1(a)) - math.Log1p(meanExpm1(b))
}

func meanExpm1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += math.Expm1(v)
	}

	return s / float64(len(x))
}

func checkGroups(a, b []float64) error {
	if len(a) == 0 || len(b) == 0 {
		return diag.Invalid("de", "empty group (%d vs %d cells)", len(a), len(b))
	}

	return nil
}

// bimod is the likelihood-ratio test over a zero-inflated normal model.
type bimod struct{}

func (bimod) Name() string { return Bimod }

func (bimod) Test(a, b []float64) (Stat, error) {
	if err := checkGroups(a, b); err != nil {
		return Stat{}, err
	}
	all := make([]float64, 0, len(a)+len(b))
	all = append(append(all, a...), b...)
	lrt := 2 * (bimodLogLik(a) + bimodLogLik(b) - bimodLogLik(all))
	p := 1.0
	if lrt > 0 {
		p = distuv.ChiSquared{K: 3}.Survival(lrt)
	}

	return Stat{LogFC: AvgLogFC(a, b), PValue: p}, nil
}

// bimodLogLik is the log-likelihood of x under a point mass at zero mixed
// with a normal over the positive values. The mixing weight is clamped to
// [1e-5, 1-1e-5]; fewer than two positive values, or zero spread, use sd 1.
func bimodLogLik(x []float64) float64 {
	pos := make([]float64, 0, len(x))
	for _, v := range x {
		if v > 0 {
			pos = append(pos, v)
		}
	}
	nZero := len(x) - len(pos)
	frac := math.Min(math.Max(float64(len(pos))/float64(len(x)), 1e-5), 1-1e-5)
	ll := float64(nZero) * math.Log(1-frac)
	if len(pos) == 0 {
		return ll
	}
	ll += float64(len(pos)) * math.Log(frac)
	mu, sd := stat.MeanStdDev(pos, nil)
	if len(pos) < 2 || !(sd > 0) {
		sd = 1
	}
	norm := distuv.Normal{Mu: mu, Sigma: sd}
	for _, v := range pos {
		ll += norm.LogProb(v)
	}

	return ll
}

// wilcox is the rank-sum test with normal approximation.
type wilcox struct{}

func (wilcox) Name() string { return Wilcox }

func (wilcox) Test(a, b []float64) (Stat, error) {
	if err := checkGroups(a, b); err != nil {
		return Stat{}, err
	}
	n1, n2 := float64(len(a)), float64(len(b))
	n := n1 + n2
	type obs struct {
		v     float64
		fromA bool
	}
	all := make([]obs, 0, len(a)+len(b))
	for _, v := range a {
		all = append(all, obs{v, true})
	}
	for _, v := range b {
		all = append(all, obs{v, false})
	}
	slices.SortStableFunc(all, func(x, y obs) int {
		switch {
		case x.v < y.v:
			return -1
		case x.v > y.v:
			return 1
		}
		return 0
	})

	var rankA, ties float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		t := float64(j - i)
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if all[k].fromA {
				rankA += rank
			}
		}
		ties += t*t*t - t
		i = j
	}
	u := rankA - n1*(n1+1)/2
	mean := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 / 12 * ((n + 1) - ties/(n*(n-1))))
	p := 1.0
	if sigma > 0 {
		d := u - mean
		z := (d - math.Copysign(0.5, d)) / sigma
		if d == 0 {
			z = 0
		}
		p = math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
	}

	return Stat{LogFC: AvgLogFC(a, b), PValue: p}, nil
}

// welch is the unequal-variance two-sample t-test.
type welch struct{}

func (welch) Name() string { return TTest }

func (welch) Test(a, b []float64) (Stat, error) {
	if err := checkGroups(a, b); err != nil {
		return Stat{}, err
	}
	if len(a) < 2 || len(b) < 2 {
		return Stat{}, diag.Invalid("de", "t-test needs two cells per group")
	}
	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)
	n1, n2 := float64(len(a)), float64(len(b))
	s1, s2 := v1/n1, v2/n2
	se := math.Sqrt(s1 + s2)
	out := Stat{LogFC: AvgLogFC(a, b), PValue: 1}
	switch {
	case se == 0 && m1 == m2:
	case se == 0:
		out.PValue = 0
	default:
		t := (m1 - m2) / se
		df := (s1 + s2) * (s1 + s2) / (s1*s1/(n1-1) + s2*s2/(n2-1))
		out.PValue = math.Min(1, 2*distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t)))
	}

	return out, nil
}
