// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package recommend

import "github.com/bookworm-app/bookworm/internal/models"

// UserProfile is the aggregated taste representation of one user: a
// rating-weighted centroid in each vector space plus the set of books the
// user has already rated.
//
// Either centroid may be nil when none of the user's rated books has a
// vector in the corresponding store. The two centroids are independent;
// one may exist without the other.
type UserProfile struct {
	// Collaborative is the centroid in ALS factor space, or nil.
	Collaborative []float64

	// Content is the centroid in content-feature space, or nil.
	Content []float64

	// RatedIDs contains every book the user has rated, regardless of
	// whether that book contributed to either centroid.
	RatedIDs map[int]struct{}

	// TotalRatings is the size of the user's full rating history.
	TotalRatings int
}

// BuildUserProfile aggregates a rating history into centroids over the
// vector store.
//
// Each centroid is the weighted mean of the rated books' vectors with the
// rating value as weight, divided by the sum of the contributing weights.
// A 5-star book therefore pulls the centroid five times harder than a
// 1-star book. Books without a vector in a given store contribute neither
// to that centroid's numerator nor to its weight sum.
func BuildUserProfile(ratings []models.Rating, vectors *VectorStore) *UserProfile {
	profile := &UserProfile{
		RatedIDs:     make(map[int]struct{}, len(ratings)),
		TotalRatings: len(ratings),
	}

	var (
		cfSum    []float64
		cfWeight float64
		cbSum    []float64
		cbWeight float64
	)

	for _, r := range ratings {
		profile.RatedIDs[r.BookID] = struct{}{}
		w := float64(r.Rating)

		if vec, ok := vectors.CollaborativeVector(r.BookID); ok {
			cfSum = accumulate(cfSum, vec, w)
			cfWeight += w
		}
		if vec, ok := vectors.ContentVector(r.BookID); ok {
			cbSum = accumulate(cbSum, vec, w)
			cbWeight += w
		}
	}

	if cfWeight > 0 {
		profile.Collaborative = scale(cfSum, 1/cfWeight)
	}
	if cbWeight > 0 {
		profile.Content = scale(cbSum, 1/cbWeight)
	}
	return profile
}

// accumulate adds w*vec into sum, allocating sum on first use.
func accumulate(sum, vec []float64, w float64) []float64 {
	if sum == nil {
		sum = make([]float64, len(vec))
	}
	for i := range vec {
		sum[i] += w * vec[i]
	}
	return sum
}

func scale(vec []float64, factor float64) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v * factor
	}
	return out
}
