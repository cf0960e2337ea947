package notes

// Stats holds derived counts and a bounded most-recent projection over the
// note collection. It is recomputed from a snapshot, never stored, so
// Total == Completed + Pending always holds.
type Stats struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Pending   int     `json:"pending"`
	Recent    []*Note `json:"recent"`
}

// ComputeStats derives stats from a snapshot ordered newest first. The Recent
// projection keeps at most recentLimit entries from the head of the snapshot.
func ComputeStats(list []*Note, recentLimit int) Stats {
	stats := Stats{
		Total:  len(list),
		Recent: []*Note{},
	}

	for _, n := range list {
		if n.Done {
			stats.Completed++
		} else {
			stats.Pending++
		}
	}

	if recentLimit > len(list) {
		recentLimit = len(list)
	}
	if recentLimit > 0 {
		stats.Recent = append(stats.Recent, list[:recentLimit]...)
	}

	return stats
}
