package workflow

import "testing"

func TestSummarizeMetrics_FromEngineRun(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Init("feat: x", InitOptions{})
	e.TransitionTo("design", "")
	e.TransitionWithFeedback("requirements", "gap")
	e.TransitionTo("design", "")
	e.Complete("")

	s, err := e.Metrics()
	if err != nil {
		t.Fatal(err)
	}
	if s.WorkflowsStarted != 1 || s.WorkflowsCompleted != 1 {
		t.Errorf("started/completed = %d/%d", s.WorkflowsStarted, s.WorkflowsCompleted)
	}
	if s.Transitions != 3 {
		t.Errorf("transitions = %d, want 3", s.Transitions)
	}
	if s.FeedbackLoops != 1 {
		t.Errorf("feedbackLoops = %d, want 1", s.FeedbackLoops)
	}
	if s.StageVisits[StageDesign] != 2 || s.StageVisits[StageRequirements] != 2 {
		t.Errorf("visits = %v", s.StageVisits)
	}
	if s.FeedbackRoutes["design→requirements"] != 1 {
		t.Errorf("routes = %v", s.FeedbackRoutes)
	}
	if s.AvgWorkflowMillis <= 0 {
		t.Errorf("avg workflow duration = %v", s.AvgWorkflowMillis)
	}
	if s.MostVisited()[0] != StageDesign {
		t.Errorf("most visited = %v", s.MostVisited())
	}
}

func TestSummarizeMetrics_Empty(t *testing.T) {
	s := SummarizeMetrics(nil)
	if s.TotalEvents != 0 || s.AvgWorkflowMillis != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestSummarizeMetrics_ToleratesMissingFinalMetric(t *testing.T) {
	entries := []MetricEntry{
		{Name: MetricWorkflowStarted, Data: map[string]any{"stage": "requirements"}},
		{Name: MetricStageTransition, Data: map[string]any{"from": "requirements", "to": "design", "duration": float64(1000)}},
	}
	s := SummarizeMetrics(entries)
	if s.WorkflowsCompleted != 0 || s.AvgStageDuration[StageRequirements] != 1000 {
		t.Errorf("summary = %+v", s)
	}
}
