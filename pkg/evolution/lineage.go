package evolution

import (
	"sort"
)

// Lineage reconstructs the ancestry of an individual by walking parent ids
// depth-first through the snapshot history. The result is ordered by
// generation, oldest to newest, and contains no duplicates. Ancestors that
// were rolled back or never snapshotted are silently skipped.
func (s *Store) Lineage(id string) []*Individual {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := make(map[string]bool)
	var found []*Individual

	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		ind := s.findInHistory(id)
		if ind == nil {
			return
		}
		found = append(found, ind)
		for _, parentID := range ind.ParentIDs {
			walk(parentID)
		}
	}
	walk(id)

	// DFS discovery order interleaves branches of unequal depth; sort by
	// generation, keeping discovery order within a generation.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Generation < found[j].Generation
	})
	return found
}

// findInHistory searches each snapshot's population for a matching id.
// Caller must hold at least a read lock.
func (s *Store) findInHistory(id string) *Individual {
	for i := len(s.history) - 1; i >= 0; i-- {
		for _, ind := range s.history[i].Population {
			if ind.ID == id {
				return ind
			}
		}
	}
	return nil
}

// Statistics summarizes convergence, diversity, and improvement across the
// whole snapshot history.
type Statistics struct {
	BestFitness      float64 `json:"best_fitness"`
	AverageDiversity float64 `json:"average_diversity"`
	ImprovementRate  float64 `json:"improvement_rate"`
	ConvergenceRate  float64 `json:"convergence_rate"`
}

// Statistics computes run statistics from the snapshot history.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Statistics
	if len(s.history) == 0 {
		return stats
	}

	diversitySum := 0.0
	improvements := 0
	for i, snap := range s.history {
		if snap.BestFitness > stats.BestFitness {
			stats.BestFitness = snap.BestFitness
		}
		diversitySum += snap.Diversity
		if i > 0 && snap.BestFitness > s.history[i-1].BestFitness {
			improvements++
		}
	}

	stats.AverageDiversity = diversitySum / float64(len(s.history))
	if len(s.history) > 1 {
		stats.ImprovementRate = float64(improvements) / float64(len(s.history)-1)
	}

	first := s.history[0].Diversity
	last := s.history[len(s.history)-1].Diversity
	if first != 0 {
		stats.ConvergenceRate = (first - last) / first
	}
	return stats
}
