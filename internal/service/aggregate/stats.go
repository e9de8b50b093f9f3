package aggregate

// FetchStats holds running counters for an Aggregator instance. Counters
// accumulate across calls until ResetStats; only the coordinating goroutine
// mutates them as source results are merged back.
type FetchStats struct {
	TotalFetches      int                `json:"total_fetches"`
	SuccessfulFetches int                `json:"successful_fetches"`
	FailedFetches     int                `json:"failed_fetches"`
	TotalPosts        int                `json:"total_posts"`
	SuccessRate       float64            `json:"success_rate"`
	FetchTimes        map[string]float64 `json:"fetch_times"`
}

func newFetchStats() FetchStats {
	return FetchStats{FetchTimes: make(map[string]float64)}
}

// snapshot copies the stats and fills in the derived success rate. A zero
// total yields 0, never a division error.
func (s FetchStats) snapshot() FetchStats {
	out := s
	out.FetchTimes = make(map[string]float64, len(s.FetchTimes))
	for k, v := range s.FetchTimes {
		out.FetchTimes[k] = v
	}
	if s.TotalFetches > 0 {
		out.SuccessRate = float64(s.SuccessfulFetches) / float64(s.TotalFetches)
	}
	return out
}
