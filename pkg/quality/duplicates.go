package quality

import (
	"sort"

	"github.com/vestige-dev/vestige/pkg/models"
)

// Fragment is one hashable code block, produced per function during
// analysis. Hash and Statements come from Fingerprint.
type Fragment struct {
	File       string `json:"file"`
	Function   string `json:"function"`
	StartLine  uint32 `json:"start_line"`
	EndLine    uint32 `json:"end_line"`
	Hash       string `json:"hash"`
	Statements int    `json:"statements"`
}

// Cluster groups fragments whose normalized hashes match. Fragments below
// minStatements never participate, and a hash seen only once never forms
// a cluster. Output ordering is deterministic regardless of input order.
func Cluster(fragments []Fragment, minStatements int) []models.DuplicateCluster {
	byHash := make(map[string][]Fragment)
	for _, f := range fragments {
		if f.Statements < minStatements {
			continue
		}
		byHash[f.Hash] = append(byHash[f.Hash], f)
	}

	clusters := make([]models.DuplicateCluster, 0)
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			if members[i].File != members[j].File {
				return members[i].File < members[j].File
			}
			return members[i].StartLine < members[j].StartLine
		})

		instances := make([]models.CloneInstance, len(members))
		for i, m := range members {
			instances[i] = models.CloneInstance{
				File:      m.File,
				Function:  m.Function,
				StartLine: m.StartLine,
				EndLine:   m.EndLine,
			}
		}
		clusters = append(clusters, models.DuplicateCluster{
			Hash:      hash,
			Instances: instances,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Hash < clusters[j].Hash
	})
	return clusters
}
