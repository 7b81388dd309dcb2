package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStorageFailure(t *testing.T) {
	before := testutil.ToFloat64(StorageFailures.WithLabelValues("progress", "save"))

	RecordStorageFailure("progress", "save")

	after := testutil.ToFloat64(StorageFailures.WithLabelValues("progress", "save"))
	if after != before+1 {
		t.Errorf("storage failures = %v, want %v", after, before+1)
	}
}

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(ProgressEvents.WithLabelValues("exercise.completed"))

	RecordEvent("exercise.completed")
	RecordEvent("exercise.completed")

	after := testutil.ToFloat64(ProgressEvents.WithLabelValues("exercise.completed"))
	if after != before+2 {
		t.Errorf("progress events = %v, want %v", after, before+2)
	}
}
