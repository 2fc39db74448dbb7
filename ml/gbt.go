package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// GBTClassifier is a binary gradient-boosted tree ensemble with a logistic
// link. Each tree is stored as a flat node array; a prediction walks every
// tree, sums the leaf values and squashes the score through a sigmoid.
type GBTClassifier struct {
	trees        [][]TreeNode
	baseScore    float64
	learningRate float64
	featureCount int

	Rounds       int
	MaxDepth     int
	LearningRate float64
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type gbtArtifact struct {
	BaseScore    float64      `json:"base_score"`
	LearningRate float64      `json:"learning_rate"`
	FeatureCount int          `json:"feature_count"`
	Trees        [][]TreeNode `json:"trees"`
}

const (
	leafRegularization = 1.0
	minLeafSamples     = 2
	probEpsilon        = 1e-6
)

// NewGBTClassifier returns an untrained ensemble with the given boosting
// parameters. Non-positive values fall back to defaults.
func NewGBTClassifier(rounds, maxDepth int, learningRate float64) *GBTClassifier {
	if rounds <= 0 {
		rounds = 50
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &GBTClassifier{Rounds: rounds, MaxDepth: maxDepth, LearningRate: learningRate}
}

// Train fits the ensemble with logistic-loss gradient boosting. Labels must
// be 0 or 1.
func (g *GBTClassifier) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	featureCount := len(features[0])
	for _, row := range features {
		if len(row) != featureCount {
			return errors.New("inconsistent feature vector length")
		}
	}
	for _, label := range labels {
		if label != 0 && label != 1 {
			return errors.New("labels must be 0 or 1")
		}
	}

	rounds := g.Rounds
	if rounds <= 0 {
		rounds = 50
	}
	maxDepth := g.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	learningRate := g.LearningRate
	if learningRate <= 0 {
		learningRate = 0.1
	}

	positive := 0
	for _, label := range labels {
		positive += label
	}
	base := clampProb(float64(positive) / float64(len(labels)))
	baseScore := math.Log(base / (1 - base))

	scores := make([]float64, len(labels))
	for i := range scores {
		scores[i] = baseScore
	}

	gradients := make([]float64, len(labels))
	hessians := make([]float64, len(labels))
	indices := make([]int, len(labels))
	for i := range indices {
		indices[i] = i
	}

	trees := make([][]TreeNode, 0, rounds)
	for round := 0; round < rounds; round++ {
		for i := range labels {
			p := sigmoid(scores[i])
			gradients[i] = float64(labels[i]) - p
			hessians[i] = p * (1 - p)
		}

		nodes := buildRegressionNode(features, gradients, hessians, indices, 0, maxDepth)
		trees = append(trees, nodes)

		for i, row := range features {
			scores[i] += learningRate * treeOutput(nodes, row)
		}
	}

	g.trees = trees
	g.baseScore = baseScore
	g.learningRate = learningRate
	g.featureCount = featureCount
	return nil
}

// PredictProba returns the probability of the positive (phishing) class.
func (g *GBTClassifier) PredictProba(features []float64) (float64, error) {
	if len(g.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != g.featureCount {
		return 0, errors.New("feature vector length mismatch")
	}
	score := g.baseScore
	for _, nodes := range g.trees {
		score += g.learningRate * treeOutput(nodes, features)
	}
	return sigmoid(score), nil
}

// Save writes the trained ensemble to path as JSON.
func (g *GBTClassifier) Save(path string) error {
	if len(g.trees) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(gbtArtifact{
		BaseScore:    g.baseScore,
		LearningRate: g.learningRate,
		FeatureCount: g.featureCount,
		Trees:        g.trees,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load reads a saved ensemble from path.
func (g *GBTClassifier) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact gbtArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if len(artifact.Trees) == 0 || artifact.FeatureCount <= 0 {
		return errors.New("invalid model artifact")
	}
	for i, nodes := range artifact.Trees {
		if err := validateTree(nodes); err != nil {
			return fmt.Errorf("invalid model artifact: tree %d: %w", i, err)
		}
	}
	g.trees = artifact.Trees
	g.baseScore = artifact.BaseScore
	g.learningRate = artifact.LearningRate
	g.featureCount = artifact.FeatureCount
	return nil
}

// FeatureCount returns the vector length the model was trained on.
func (g *GBTClassifier) FeatureCount() int {
	return g.featureCount
}

// validateTree checks a deserialized tree before it is allowed to serve. In
// the flat layout children always come after their parent, so the index
// checks also rule out cycles.
func validateTree(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return fmt.Errorf("node %d: left child %d out of range", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: right child %d out of range", i, node.RightChild)
		}
	}
	return nil
}

func treeOutput(nodes []TreeNode, features []float64) float64 {
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return 0
		}
	}
}

func buildRegressionNode(features [][]float64, gradients, hessians []float64, indices []int, depth, maxDepth int) []TreeNode {
	if depth >= maxDepth || len(indices) < 2*minLeafSamples {
		return []TreeNode{leafNode(gradients, hessians, indices)}
	}

	featureIdx, threshold, ok := findBestRegressionSplit(features, gradients, indices)
	if !ok {
		return []TreeNode{leafNode(gradients, hessians, indices)}
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if features[i][featureIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return []TreeNode{leafNode(gradients, hessians, indices)}
	}

	leftNodes := buildRegressionNode(features, gradients, hessians, left, depth+1, maxDepth)
	rightNodes := buildRegressionNode(features, gradients, hessians, right, depth+1, maxDepth)

	root := TreeNode{
		FeatureIdx: featureIdx,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
	}
	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = appendSubtree(nodes, leftNodes, 1)
	nodes = appendSubtree(nodes, rightNodes, 1+len(leftNodes))
	return nodes
}

// appendSubtree copies subtree nodes into dst, shifting child indices from
// subtree-local positions to their final positions in the flat array.
func appendSubtree(dst, subtree []TreeNode, offset int) []TreeNode {
	for _, node := range subtree {
		if !node.IsLeaf {
			node.LeftChild += offset
			node.RightChild += offset
		}
		dst = append(dst, node)
	}
	return dst
}

func leafNode(gradients, hessians []float64, indices []int) TreeNode {
	var gradSum, hessSum float64
	for _, i := range indices {
		gradSum += gradients[i]
		hessSum += hessians[i]
	}
	// Newton step with L2 regularization on the leaf weight.
	return TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      gradSum / (hessSum + leafRegularization),
		IsLeaf:     true,
	}
}

func findBestRegressionSplit(features [][]float64, gradients []float64, indices []int) (int, float64, bool) {
	featureCount := len(features[indices[0]])
	bestFeature := -1
	bestThreshold := 0.0
	bestScore := math.Inf(-1)

	var totalSum float64
	for _, i := range indices {
		totalSum += gradients[i]
	}
	totalCount := float64(len(indices))
	baseline := totalSum * totalSum / totalCount

	type sample struct {
		value float64
		grad  float64
	}
	samples := make([]sample, len(indices))

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		for j, i := range indices {
			samples[j] = sample{value: features[i][featureIdx], grad: gradients[i]}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].value < samples[b].value })

		var leftSum float64
		leftCount := 0.0
		for j := 0; j < len(samples)-1; j++ {
			leftSum += samples[j].grad
			leftCount++
			if samples[j].value == samples[j+1].value {
				continue
			}
			rightSum := totalSum - leftSum
			rightCount := totalCount - leftCount
			// Variance reduction of the gradient, measured as the gain in
			// sum-of-squares over the unsplit node.
			gain := leftSum*leftSum/leftCount + rightSum*rightSum/rightCount - baseline
			if gain > bestScore {
				bestScore = gain
				bestFeature = featureIdx
				bestThreshold = (samples[j].value + samples[j+1].value) / 2
			}
		}
	}

	if bestFeature == -1 || bestScore <= 0 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampProb(p float64) float64 {
	if p < probEpsilon {
		return probEpsilon
	}
	if p > 1-probEpsilon {
		return 1 - probEpsilon
	}
	return p
}
