package workflow

import "sort"

// MetricsSummary is derived from the metrics log by a full scan. It is
// never persisted.
type MetricsSummary struct {
	TotalEvents        int               `json:"totalEvents"`
	EventCounts        map[string]int    `json:"eventCounts"`
	WorkflowsStarted   int               `json:"workflowsStarted"`
	WorkflowsCompleted int               `json:"workflowsCompleted"`
	Transitions        int               `json:"transitions"`
	FeedbackLoops      int               `json:"feedbackLoops"`
	StageVisits        map[Stage]int     `json:"stageVisits"`
	AvgStageDuration   map[Stage]float64 `json:"avgStageDuration"`
	AvgWorkflowMillis  float64           `json:"avgWorkflowDuration"`
	FeedbackRoutes     map[string]int    `json:"feedbackRoutes"`
}

// Metrics loads the metrics log and summarizes it.
func (e *Engine) Metrics() (*MetricsSummary, error) {
	entries, err := e.store.LoadMetrics()
	if err != nil {
		return nil, err
	}
	return SummarizeMetrics(entries), nil
}

// SummarizeMetrics computes totals, averages and per-stage visit counts.
// A stage visit is counted when a workflow starts in it or transitions
// into it; stage durations come from the "from" side of transitions.
func SummarizeMetrics(entries []MetricEntry) *MetricsSummary {
	s := &MetricsSummary{
		EventCounts:      make(map[string]int),
		StageVisits:      make(map[Stage]int),
		AvgStageDuration: make(map[Stage]float64),
		FeedbackRoutes:   make(map[string]int),
	}
	durTotals := make(map[Stage]float64)
	durCounts := make(map[Stage]int)
	var workflowTotal float64

	for _, m := range entries {
		s.TotalEvents++
		s.EventCounts[m.Name]++
		switch m.Name {
		case MetricWorkflowStarted:
			s.WorkflowsStarted++
			if st, ok := stringField(m.Data, "stage"); ok {
				s.StageVisits[Stage(st)]++
			}
		case MetricStageTransition:
			s.Transitions++
			if to, ok := stringField(m.Data, "to"); ok {
				s.StageVisits[Stage(to)]++
			}
			if from, ok := stringField(m.Data, "from"); ok {
				if d, ok := numberField(m.Data, "duration"); ok {
					durTotals[Stage(from)] += d
					durCounts[Stage(from)]++
				}
			}
		case MetricFeedbackLoop:
			s.FeedbackLoops++
			from, _ := stringField(m.Data, "from")
			to, _ := stringField(m.Data, "to")
			s.FeedbackRoutes[from+"→"+to]++
		case MetricWorkflowCompleted:
			s.WorkflowsCompleted++
			if d, ok := numberField(m.Data, "totalDuration"); ok {
				workflowTotal += d
			}
		}
	}

	for st, total := range durTotals {
		s.AvgStageDuration[st] = total / float64(durCounts[st])
	}
	if s.WorkflowsCompleted > 0 {
		s.AvgWorkflowMillis = workflowTotal / float64(s.WorkflowsCompleted)
	}
	return s
}

// MostVisited returns stages ordered by visit count, highest first.
func (s *MetricsSummary) MostVisited() []Stage {
	out := make([]Stage, 0, len(s.StageVisits))
	for st := range s.StageVisits {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.StageVisits[out[i]] != s.StageVisits[out[j]] {
			return s.StageVisits[out[i]] > s.StageVisits[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func stringField(data map[string]any, key string) (string, bool) {
	v, ok := data[key].(string)
	return v, ok
}

// numberField reads a numeric payload value. Values round-tripped
// through JSON arrive as float64; in-memory values may be integers.
func numberField(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
