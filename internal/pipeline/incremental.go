package pipeline

import (
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/source"
	"github.com/theirongolddev/compte/internal/store"
)

// scanPlan partitions discovered files into cache hits and files to parse.
type scanPlan struct {
	// results is parallel to the discovered files; hits are filled in up front.
	results      []FileQueries
	fingerprints []string // "" when the file could not be stat'd
	misses       []int
	// fresh holds exactly the fingerprints seen in this scan.
	fresh map[string][]model.Query
}

// planScan diffs discovered files against the previous cache snapshot.
// A hit is copied forward verbatim; anything else, including files that
// cannot be fingerprinted, must be parsed.
func planScan(files []source.DiscoveredFile, previous map[string][]model.Query) scanPlan {
	plan := scanPlan{
		results:      make([]FileQueries, len(files)),
		fingerprints: make([]string, len(files)),
		fresh:        make(map[string][]model.Query, len(files)),
	}

	for i, f := range files {
		plan.results[i].File = f

		fp, ok := store.Fingerprint(f.Path)
		if !ok {
			plan.misses = append(plan.misses, i)
			continue
		}
		plan.fingerprints[i] = fp

		if cached, hit := previous[fp]; hit {
			plan.results[i].Queries = cached
			plan.fresh[fp] = cached
			continue
		}
		plan.misses = append(plan.misses, i)
	}

	return plan
}
