package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.TaskCompleted(PathRotating)
	m.TaskCompleted(PathRotating)
	m.TaskCompleted(PathSingle)
	m.TaskRotated()
	m.TokensAwarded(5)
	m.TokensAwarded(0)
	m.Redemption(RedeemInsufficient)
	m.ActivityRecorded("task_completed")

	if got := testutil.ToFloat64(m.taskCompletions.WithLabelValues(PathRotating)); got != 2 {
		t.Errorf("rotating completions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.tokensAwarded); got != 5 {
		t.Errorf("tokens awarded = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.redemptions.WithLabelValues(RedeemInsufficient)); got != 1 {
		t.Errorf("insufficient redemptions = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.TaskCompleted(PathSingle)
	m.TaskRotated()
	m.TokensAwarded(3)
	m.Redemption(RedeemOK)
	m.ActivityRecorded("task_created")
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.TaskRotated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "chorewheel_task_rotations_total 1") {
		t.Errorf("metrics output missing rotation counter:\n%s", body)
	}
}
