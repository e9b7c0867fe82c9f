// Package similarity ranks BRDs against a set of selected key points.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/BerylCAtieno/brdflow/internal/models"
)

// DefaultThreshold is the cosine score above which a BRD counts as similar.
const DefaultThreshold = 0.85

type Match struct {
	BRD   models.BRD
	Score float64
}

func dotProduct(vec1, vec2 []float64) (float64, error) {
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension")
	}
	var product float64
	for i := range vec1 {
		product += vec1[i] * vec2[i]
	}
	return product, nil
}

func magnitude(vec []float64) float64 {
	var sumOfSquares float64
	for _, val := range vec {
		sumOfSquares += val * val
	}
	return math.Sqrt(sumOfSquares)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(vec1, vec2 []float64) (float64, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	dot, err := dotProduct(vec1, vec2)
	if err != nil {
		return 0, err
	}

	mag1 := magnitude(vec1)
	mag2 := magnitude(vec2)
	if mag1 == 0 || mag2 == 0 {
		return 0, nil
	}

	return dot / (mag1 * mag2), nil
}

// Mean averages equally sized vectors component-wise.
func Mean(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to average")
	}
	dim := len(vectors[0])
	out := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vectors must have the same dimension")
		}
		for i, x := range v {
			out[i] += x
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out, nil
}

// Rank scores each BRD's embedding against the mean of the query embeddings
// and returns those scoring above threshold, best first. BRDs without a
// comparable embedding are skipped.
func Rank(query [][]float64, brds []models.BRD, threshold float64) ([]Match, error) {
	center, err := Mean(query)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, brd := range brds {
		if len(brd.Embedding) != len(center) {
			continue
		}
		score, err := CosineSimilarity(center, brd.Embedding)
		if err != nil {
			continue
		}
		if score > threshold {
			matches = append(matches, Match{BRD: brd, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}
