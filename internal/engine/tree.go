package engine

import (
	"errors"
	"fmt"
)

// FeatureIndex addresses one dimension of the normalized feature vector.
type FeatureIndex uint8

const (
	FeatureMoisture FeatureIndex = iota
	FeatureTemperature
	FeatureHumidity
	FeatureLight
	FeatureTime
	FeaturePlantType
	FeatureGrowthStage
	FeatureCount
)

// Tree arena bounds. NoChild is the sentinel child index; node 0 is
// reserved so the sentinel can never alias a real node.
const (
	TreeCapacity = 127
	NoChild      = 0
)

var (
	ErrTreeFull        = errors.New("inference tree: node capacity exceeded")
	ErrTreeEmpty       = errors.New("inference tree: no nodes loaded")
	ErrTreeInvalidNode = errors.New("inference tree: invalid node")
)

// InferenceNode is one entry of the flat tree arena. A node with both
// children set to NoChild is a leaf and its LeafValue is consulted instead.
type InferenceNode struct {
	Feature   FeatureIndex
	Threshold float64
	Left      uint8
	Right     uint8
	LeafValue float64
}

func (n InferenceNode) isLeaf() bool {
	return n.Left == NoChild && n.Right == NoChild
}

// InferenceTree is a fixed-topology binary decision structure producing a
// normalized water-need score from a feature vector. It is built once at
// load time and read-only afterwards; traversal is iterative, no recursion.
type InferenceTree struct {
	nodes [TreeCapacity + 1]InferenceNode
	count uint8
	root  uint8
}

// AddNode installs a node at the given arena index. Indices start at 1.
func (t *InferenceTree) AddNode(index uint8, feature FeatureIndex, threshold float64,
	left, right uint8, leafValue float64) error {
	if index == NoChild || index > TreeCapacity {
		return fmt.Errorf("%w: index %d", ErrTreeInvalidNode, index)
	}
	if feature >= FeatureCount {
		return fmt.Errorf("%w: feature %d at index %d", ErrTreeInvalidNode, feature, index)
	}
	t.nodes[index] = InferenceNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      left,
		Right:     right,
		LeafValue: leafValue,
	}
	if index > t.count {
		t.count = index
	}
	return nil
}

// Validate checks the arena is traversable: the root exists, every child
// index points at a loaded node, and child indices strictly increase from
// parent to child. The ordering rule is what guarantees termination without
// visited-set bookkeeping.
func (t *InferenceTree) Validate() error {
	if t.count == 0 || t.root == NoChild {
		return ErrTreeEmpty
	}
	if t.root > t.count {
		return fmt.Errorf("%w: root %d beyond node count %d", ErrTreeInvalidNode, t.root, t.count)
	}
	for i := uint8(1); i <= t.count; i++ {
		n := t.nodes[i]
		for _, child := range []uint8{n.Left, n.Right} {
			if child == NoChild {
				continue
			}
			if child > t.count {
				return fmt.Errorf("%w: node %d child %d beyond node count", ErrTreeInvalidNode, i, child)
			}
			if child <= i {
				return fmt.Errorf("%w: node %d child %d does not increase", ErrTreeInvalidNode, i, child)
			}
		}
		if (n.Left == NoChild) != (n.Right == NoChild) {
			return fmt.Errorf("%w: node %d has exactly one child", ErrTreeInvalidNode, i)
		}
	}
	return nil
}

// Evaluate walks root-to-leaf: feature <= threshold goes left, else right.
// Returns the leaf value, 0 when no tree is loaded.
func (t *InferenceTree) Evaluate(features [FeatureCount]float64) float64 {
	if t.count == 0 || t.root == NoChild {
		return 0
	}
	idx := t.root
	// Validate guarantees child indices strictly increase, so this loop
	// takes at most count steps.
	for step := uint8(0); step <= t.count; step++ {
		n := t.nodes[idx]
		if n.isLeaf() {
			return n.LeafValue
		}
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return 0
}

// NodeCount returns the number of loaded nodes.
func (t *InferenceTree) NodeCount() int { return int(t.count) }

// DefaultIrrigationTree builds the baseline rule tree shipped with the
// controller: moisture first, then temperature on the dry branch and
// time-since-watering on the wet branch.
func DefaultIrrigationTree() *InferenceTree {
	t := &InferenceTree{root: 1}

	must := func(err error) {
		if err != nil {
			panic(err) // static table, cannot fail
		}
	}
	must(t.AddNode(1, FeatureMoisture, 0.6, 2, 3, 0))
	must(t.AddNode(2, FeatureTemperature, 0.7, 4, 5, 0))
	must(t.AddNode(3, FeatureTime, 0.5, 6, 7, 0))
	must(t.AddNode(4, 0, 0, NoChild, NoChild, 0.8)) // dry soil, hot
	must(t.AddNode(5, 0, 0, NoChild, NoChild, 0.6)) // dry soil, mild
	must(t.AddNode(6, 0, 0, NoChild, NoChild, 0.3)) // wet soil, recently watered
	must(t.AddNode(7, 0, 0, NoChild, NoChild, 0.0)) // wet soil, long since watered

	if err := t.Validate(); err != nil {
		panic(err)
	}
	return t
}
