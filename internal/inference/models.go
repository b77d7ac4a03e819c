package inference

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// Model is a loaded, immutable predictor.
type Model interface {
	Name() string
	Kind() string
	Description() string
	Schema() domain.Schema
	Output() Output
	// PredictVector runs the model on a row already in column order.
	PredictVector(row []float64) (float64, error)
}

type predictFunc func(row []float64) float64

type model struct {
	artifact Artifact
	predict  predictFunc
}

func (m *model) Name() string          { return m.artifact.Name }
func (m *model) Kind() string          { return m.artifact.Kind }
func (m *model) Description() string   { return m.artifact.Description }
func (m *model) Schema() domain.Schema { return m.artifact.Schema }
func (m *model) Output() Output        { return m.artifact.Output }

func (m *model) PredictVector(row []float64) (float64, error) {
	if len(row) != m.artifact.Schema.Width() {
		return 0, fmt.Errorf("%w: %s expects %d values, got %d", domain.ErrSchemaMismatch, m.artifact.Name, m.artifact.Schema.Width(), len(row))
	}
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &domain.FieldError{Field: m.artifact.Schema.Fields[i].Name, Reason: "must be finite", Kind: domain.ErrInvalidInput}
		}
	}
	if m.artifact.Scaler != nil {
		row = m.artifact.Scaler.apply(row)
	}
	return m.predict(row), nil
}

var builders = map[string]func(Artifact) (predictFunc, error){
	KindLinear:       buildLinear,
	KindPolynomial:   buildPolynomial,
	KindLogistic:     buildLogistic,
	KindDecisionTree: buildTree,
	KindKMeans:       buildKMeans,
	KindKNN:          buildKNN,
	KindNaiveBayes:   buildNaiveBayes,
	KindRandomForest: buildForest,
	KindSVM:          buildSVM,
}

func buildLinear(a Artifact) (predictFunc, error) {
	p := a.Params
	if len(p.Coefficients) != a.Schema.Width() {
		return nil, fmt.Errorf("linear: %d coefficients for %d fields", len(p.Coefficients), a.Schema.Width())
	}
	coef := append([]float64(nil), p.Coefficients...)
	b := p.Intercept
	return func(row []float64) float64 {
		return floats.Dot(coef, row) + b
	}, nil
}

// buildPolynomial expands each field into its powers 1..degree, field by
// field, with no interaction terms.
func buildPolynomial(a Artifact) (predictFunc, error) {
	p := a.Params
	if p.Degree < 1 {
		return nil, fmt.Errorf("polynomial: degree %d must be at least 1", p.Degree)
	}
	width := a.Schema.Width() * p.Degree
	if len(p.Coefficients) != width {
		return nil, fmt.Errorf("polynomial: %d coefficients for %d expanded terms", len(p.Coefficients), width)
	}
	coef := append([]float64(nil), p.Coefficients...)
	degree, b := p.Degree, p.Intercept
	return func(row []float64) float64 {
		y := b
		for i, x := range row {
			pow := 1.0
			for d := 0; d < degree; d++ {
				pow *= x
				y += coef[i*degree+d] * pow
			}
		}
		return y
	}, nil
}

func buildLogistic(a Artifact) (predictFunc, error) {
	p := a.Params
	if len(p.Coefficients) != a.Schema.Width() {
		return nil, fmt.Errorf("logistic: %d coefficients for %d fields", len(p.Coefficients), a.Schema.Width())
	}
	if n := a.Output.Encoder.Len(); n != 0 && n != 2 {
		return nil, fmt.Errorf("logistic: binary model with %d classes", n)
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("logistic: threshold %g not in (0, 1)", threshold)
	}
	coef := append([]float64(nil), p.Coefficients...)
	b := p.Intercept
	return func(row []float64) float64 {
		if Sigmoid(floats.Dot(coef, row)+b) >= threshold {
			return 1
		}
		return 0
	}, nil
}

// Sigmoid is the logistic function.
func Sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func buildTree(a Artifact) (predictFunc, error) {
	return compileTree("decision_tree", a.Params.Nodes, a.Schema.Width(), a.Output.Encoder)
}

// compileTree requires children to come after their parent, which rules
// out cycles.
func compileTree(what string, src []TreeNode, width int, enc LabelEncoder) (predictFunc, error) {
	nodes := append([]TreeNode(nil), src...)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: no nodes", what)
	}
	for i, n := range nodes {
		if n.leaf() {
			if enc.Len() > 0 && !enc.covers(n.Value) {
				return nil, fmt.Errorf("%s: node %d value %g has no class", what, i, n.Value)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return nil, fmt.Errorf("%s: node %d splits on feature %d of %d", what, i, n.Feature, width)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(nodes) || n.Right >= len(nodes) {
			return nil, fmt.Errorf("%s: node %d has invalid children %d, %d", what, i, n.Left, n.Right)
		}
	}
	return func(row []float64) float64 {
		i := 0
		for !nodes[i].leaf() {
			if row[nodes[i].Feature] <= nodes[i].Threshold {
				i = nodes[i].Left
			} else {
				i = nodes[i].Right
			}
		}
		return nodes[i].Value
	}, nil
}

// buildForest takes the majority vote of its trees. Ties go to the
// smallest class code.
func buildForest(a Artifact) (predictFunc, error) {
	if len(a.Params.Trees) == 0 {
		return nil, errors.New("random_forest: no trees")
	}
	if a.Output.Encoder.Len() == 0 {
		return nil, errors.New("random_forest: an output encoder is required")
	}
	trees := make([]predictFunc, len(a.Params.Trees))
	for i, nodes := range a.Params.Trees {
		fn, err := compileTree(fmt.Sprintf("random_forest: tree %d", i), nodes, a.Schema.Width(), a.Output.Encoder)
		if err != nil {
			return nil, err
		}
		trees[i] = fn
	}
	classes := a.Output.Encoder.Len()
	return func(row []float64) float64 {
		votes := make([]float64, classes)
		for _, tree := range trees {
			votes[int(tree(row))]++
		}
		return float64(floats.MaxIdx(votes))
	}, nil
}

// buildSVM evaluates a linear decision function per class (one-vs-rest)
// and picks the highest. A single row is a binary model: a non-negative
// score is class 1.
func buildSVM(a Artifact) (predictFunc, error) {
	p := a.Params
	weights, err := matrix("svm: weights", p.Weights, a.Schema.Width())
	if err != nil {
		return nil, err
	}
	if len(p.Intercepts) != len(weights) {
		return nil, fmt.Errorf("svm: %d intercepts for %d weight rows", len(p.Intercepts), len(weights))
	}
	classes := len(weights)
	if classes == 1 {
		classes = 2
	}
	if n := a.Output.Encoder.Len(); n != 0 && n != classes {
		return nil, fmt.Errorf("svm: %d classes for %d decision functions", n, len(weights))
	}
	intercepts := append([]float64(nil), p.Intercepts...)
	if len(weights) == 1 {
		w, b := weights[0], intercepts[0]
		return func(row []float64) float64 {
			if floats.Dot(w, row)+b >= 0 {
				return 1
			}
			return 0
		}, nil
	}
	return func(row []float64) float64 {
		scores := make([]float64, len(weights))
		for c, w := range weights {
			scores[c] = floats.Dot(w, row) + intercepts[c]
		}
		return float64(floats.MaxIdx(scores))
	}, nil
}

func buildKMeans(a Artifact) (predictFunc, error) {
	centroids, err := matrix("kmeans: centroid", a.Params.Centroids, a.Schema.Width())
	if err != nil {
		return nil, err
	}
	if n := a.Output.Encoder.Len(); n != 0 && n != len(centroids) {
		return nil, fmt.Errorf("kmeans: %d cluster names for %d centroids", n, len(centroids))
	}
	return func(row []float64) float64 {
		best, bestDist := 0, math.Inf(1)
		for i, c := range centroids {
			if d := floats.Distance(c, row, 2); d < bestDist {
				best, bestDist = i, d
			}
		}
		return float64(best)
	}, nil
}

// buildKNN votes among the k nearest stored points. Ties go to the class
// of the nearest tied neighbour.
func buildKNN(a Artifact) (predictFunc, error) {
	p := a.Params
	points, err := matrix("knn: point", p.Points, a.Schema.Width())
	if err != nil {
		return nil, err
	}
	if len(p.Targets) != len(points) {
		return nil, fmt.Errorf("knn: %d targets for %d points", len(p.Targets), len(points))
	}
	if p.K < 1 || p.K > len(points) {
		return nil, fmt.Errorf("knn: k=%d not in [1, %d]", p.K, len(points))
	}
	enc := a.Output.Encoder
	if enc.Len() > 0 {
		for i, t := range p.Targets {
			if !enc.covers(t) {
				return nil, fmt.Errorf("knn: target %d value %g has no class", i, t)
			}
		}
	}
	targets := append([]float64(nil), p.Targets...)
	k := p.K

	type neighbour struct {
		dist   float64
		target float64
	}
	return func(row []float64) float64 {
		ns := make([]neighbour, len(points))
		for i, pt := range points {
			ns[i] = neighbour{dist: floats.Distance(pt, row, 2), target: targets[i]}
		}
		sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })

		votes := make(map[float64]int, k)
		for _, n := range ns[:k] {
			votes[n.target]++
		}
		best, bestVotes := ns[0].target, 0
		for _, n := range ns[:k] {
			if v := votes[n.target]; v > bestVotes {
				best, bestVotes = n.target, v
			}
		}
		return best
	}, nil
}

// buildNaiveBayes scores each class with a Gaussian likelihood per field.
func buildNaiveBayes(a Artifact) (predictFunc, error) {
	p := a.Params
	classes := len(p.Priors)
	if classes < 2 {
		return nil, fmt.Errorf("naive_bayes: %d priors", classes)
	}
	if n := a.Output.Encoder.Len(); n != 0 && n != classes {
		return nil, fmt.Errorf("naive_bayes: %d classes for %d priors", n, classes)
	}
	means, err := matrix("naive_bayes: means", p.Means, a.Schema.Width())
	if err != nil {
		return nil, err
	}
	vars, err := matrix("naive_bayes: variances", p.Variances, a.Schema.Width())
	if err != nil {
		return nil, err
	}
	if len(means) != classes || len(vars) != classes {
		return nil, fmt.Errorf("naive_bayes: need %d rows of means and variances", classes)
	}
	logPriors := make([]float64, classes)
	for c, prior := range p.Priors {
		if prior <= 0 {
			return nil, fmt.Errorf("naive_bayes: prior %d must be positive", c)
		}
		for j, v := range vars[c] {
			if v <= 0 {
				return nil, fmt.Errorf("naive_bayes: variance [%d][%d] must be positive", c, j)
			}
		}
		logPriors[c] = math.Log(prior)
	}
	return func(row []float64) float64 {
		scores := make([]float64, classes)
		for c := range scores {
			s := logPriors[c]
			for j, x := range row {
				d := x - means[c][j]
				s -= 0.5*math.Log(2*math.Pi*vars[c][j]) + d*d/(2*vars[c][j])
			}
			scores[c] = s
		}
		return float64(floats.MaxIdx(scores))
	}, nil
}

func matrix(what string, rows [][]float64, width int) ([][]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: none given", what)
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("%s %d has %d values for %d fields", what, i, len(r), width)
		}
		out[i] = append([]float64(nil), r...)
	}
	return out, nil
}
