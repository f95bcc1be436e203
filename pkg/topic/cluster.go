package topic

import (
	"math"
	"sort"

	"github.com/commscope/backend/pkg/ai"
)

const (
	outlier          = -1
	kmeansIterations = 10
)

// clusterK picks the number of clusters for n vectors: sqrt(n/2), kept
// between 2 and the number of clusters that could reach minSize.
func clusterK(n, minSize int) int {
	k := int(math.Round(math.Sqrt(float64(n) / 2)))
	upper := max(n/max(minSize, 1), 1)
	return clamp(k, min(2, upper), upper)
}

// cluster assigns every unit vector to a topic. Clusters smaller than
// minSize are labelled outlier; the rest are numbered from 0 by descending
// size, ties by first member. It returns the labels and the topic count.
func cluster(vecs [][]float32, minSize int) ([]int, int) {
	assign := kmeans(vecs, clusterK(len(vecs), minSize))

	members := map[int][]int{}
	for i, c := range assign {
		members[c] = append(members[c], i)
	}
	var keep []int
	for c, m := range members {
		if len(m) >= minSize {
			keep = append(keep, c)
		}
	}
	sort.Slice(keep, func(a, b int) bool {
		ma, mb := members[keep[a]], members[keep[b]]
		if len(ma) != len(mb) {
			return len(ma) > len(mb)
		}
		return ma[0] < mb[0]
	})

	relabel := make(map[int]int, len(keep))
	for i, c := range keep {
		relabel[c] = i
	}
	labels := make([]int, len(vecs))
	for i, c := range assign {
		if l, ok := relabel[c]; ok {
			labels[i] = l
		} else {
			labels[i] = outlier
		}
	}
	return labels, len(keep)
}

// kmeans is spherical k-means with deterministic farthest-point seeding
// starting from the first vector.
func kmeans(vecs [][]float32, k int) []int {
	if len(vecs) == 0 {
		return nil
	}
	k = clamp(k, 1, len(vecs))

	centroids := make([][]float32, 0, k)
	centroids = append(centroids, vecs[0])
	for len(centroids) < k {
		bestIdx, bestDist := 0, -1.0
		for i, v := range vecs {
			d := 2.0
			for _, c := range centroids {
				d = min(d, 1-ai.Cosine(v, c))
			}
			if d > bestDist {
				bestDist, bestIdx = d, i
			}
		}
		centroids = append(centroids, vecs[bestIdx])
	}

	assign := make([]int, len(vecs))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, v := range vecs {
			best, bestScore := 0, math.Inf(-1)
			for c, centroid := range centroids {
				if s := ai.Cosine(v, centroid); s > bestScore {
					best, bestScore = c, s
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		for c := range centroids {
			var group [][]float32
			for i, a := range assign {
				if a == c {
					group = append(group, vecs[i])
				}
			}
			if len(group) > 0 {
				centroids[c] = meanUnit(group)
			}
		}
	}
	return assign
}

func meanUnit(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	for i := range out {
		out[i] /= float32(len(vecs))
	}
	return ai.NormalizeUnit(out)
}
