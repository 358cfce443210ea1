// Package classifier assigns vectors to the nearest of a fixed set of
// reference vectors: Euclidean nearest centroid for clusters and best cosine
// similarity with a confidence threshold for topics.
package classifier

import "math"

// Outlier is returned by Cosine when no reference clears the threshold.
const Outlier = -1

// Result holds the chosen reference index and its score. For Cosine the
// score is the similarity; for Nearest it is the squared distance.
type Result struct {
	Index int
	Score float64
}

// Nearest returns the index of the centroid closest to vec in Euclidean
// distance. Ties go to the lower index. centroids must be non-empty and of
// len(vec) width.
func Nearest(vec []float32, centroids [][]float32) Result {
	best := Result{Index: -1, Score: math.Inf(1)}
	for i, c := range centroids {
		d := squaredDistance(vec, c)
		if d < best.Score {
			best = Result{Index: i, Score: d}
		}
	}
	return best
}

// Cosine finds the most similar reference vector. If the best similarity is
// below threshold, or refs is empty, Index is Outlier and Score still
// carries the best similarity seen.
func Cosine(vec []float32, refs [][]float32, threshold float64) Result {
	if len(refs) == 0 {
		return Result{Index: Outlier, Score: 0}
	}

	best := Result{Index: Outlier, Score: -1}
	for i, r := range refs {
		sim := CosineSimilarity(vec, r)
		if sim > best.Score {
			best = Result{Index: i, Score: sim}
		}
	}

	if best.Score < threshold {
		return Result{Index: Outlier, Score: best.Score}
	}
	return best
}

// CosineSimilarity returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
