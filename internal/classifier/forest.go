package classifier

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// forestParams are the hyperparameters of a random forest.
type forestParams struct {
	trees    int
	maxDepth int
	seed     uint64
}

// minSamplesSplit is the smallest node that may be split further.
const minSamplesSplit = 2

// treeNode is one node of a decision tree stored in a flat slice.
// Feature is -1 for a leaf.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Prob      float64 `json:"p"`
}

func (n treeNode) isLeaf() bool {
	return n.Feature < 0
}

// decisionTree is a binary CART tree. Node 0 is the root.
type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t decisionTree) probability(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.isLeaf() {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate checks a tree read from disk. Children always come after their
// parent, which also rules out cycles.
func (t decisionTree) validate(features int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrIncompatibleModel)
	}
	for i, n := range t.Nodes {
		if n.Prob < 0 || n.Prob > 1 {
			return fmt.Errorf("%w: node %d probability %v out of range", ErrIncompatibleModel, i, n.Prob)
		}
		if n.isLeaf() {
			continue
		}
		if n.Feature >= features {
			return fmt.Errorf("%w: node %d uses feature %d", ErrIncompatibleModel, i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("%w: node %d has invalid children", ErrIncompatibleModel, i)
		}
	}
	return nil
}

// forest averages the leaf probabilities of its trees.
type forest struct {
	Trees []decisionTree `json:"trees"`
}

func (f *forest) probability(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.probability(x)
	}
	return sum / float64(len(f.Trees))
}

func (f *forest) validate(features int) error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrIncompatibleModel)
	}
	for i, t := range f.Trees {
		if err := t.validate(features); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// fitForest grows params.trees trees in parallel. Tree i draws from its own
// generator seeded with (seed, i), so the result does not depend on
// scheduling.
func fitForest(x [][]float64, y []int, params forestParams) *forest {
	features := len(x[0])
	maxFeatures := max(1, int(math.Sqrt(float64(features))))
	trees := make([]decisionTree, params.trees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(params.seed, uint64(i))) //nolint:gosec // reproducible training

			sample := make([]int, len(x))
			for j := range sample {
				sample[j] = rng.IntN(len(x))
			}

			b := &treeBuilder{
				x:           x,
				y:           y,
				maxDepth:    params.maxDepth,
				maxFeatures: maxFeatures,
				rng:         rng,
			}
			b.grow(sample, 0)
			trees[i] = decisionTree{Nodes: b.nodes}
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return &forest{Trees: trees}
}

// treeBuilder grows a single tree.
type treeBuilder struct {
	x           [][]float64
	y           []int
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
	nodes       []treeNode
}

// grow adds the subtree for the given sample indices and returns its root.
func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := b.positives(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: -1, Prob: float64(pos) / float64(len(idx))})

	if depth >= b.maxDepth || pos == 0 || pos == len(idx) || len(idx) < minSamplesSplit {
		return id
	}

	feat, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feat] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = treeNode{
		Feature:   feat,
		Threshold: threshold,
		Left:      l,
		Right:     r,
		Prob:      b.nodes[id].Prob,
	}
	return id
}

func (b *treeBuilder) positives(idx []int) int {
	n := 0
	for _, i := range idx {
		n += b.y[i]
	}
	return n
}

// bestSplit picks the split with the lowest weighted Gini impurity among
// maxFeatures randomly drawn features. Constant features do not count
// towards maxFeatures.
func (b *treeBuilder) bestSplit(idx []int, pos int) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := gini(pos, len(idx))
	visited := 0

	for _, f := range b.rng.Perm(len(b.x[0])) {
		if visited >= b.maxFeatures {
			break
		}
		threshold, impurity, ok := b.bestThreshold(idx, f)
		if !ok {
			continue
		}
		visited++
		if bestFeature < 0 || impurity < bestImpurity {
			bestFeature, bestThreshold, bestImpurity = f, threshold, impurity
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

type labeledValue struct {
	value float64
	label int
}

// bestThreshold scans the sorted values of one feature and returns the
// midpoint threshold with the lowest weighted impurity. ok is false when
// the feature is constant on idx.
func (b *treeBuilder) bestThreshold(idx []int, f int) (float64, float64, bool) {
	vals := make([]labeledValue, len(idx))
	total := 0
	for k, i := range idx {
		vals[k] = labeledValue{value: b.x[i][f], label: b.y[i]}
		total += b.y[i]
	}
	slices.SortFunc(vals, func(p, q labeledValue) int {
		return cmp.Compare(p.value, q.value)
	})

	n := len(vals)
	found := false
	bestThreshold, bestImpurity := 0.0, math.Inf(1)
	leftPos := 0

	for k := 0; k < n-1; k++ {
		leftPos += vals[k].label
		if vals[k].value == vals[k+1].value {
			continue
		}
		nl, nr := k+1, n-k-1
		impurity := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(total-leftPos, nr)) / float64(n)
		if impurity < bestImpurity {
			found = true
			bestImpurity = impurity
			bestThreshold = (vals[k].value + vals[k+1].value) / 2
		}
	}
	return bestThreshold, bestImpurity, found
}

// gini is the Gini impurity of a node with pos positives out of n.
func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
