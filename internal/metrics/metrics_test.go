package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCaptureOutcome(t *testing.T) {
	before := testutil.ToFloat64(pipelineOutcomes.WithLabelValues("unprocessable", "fields"))
	CaptureOutcome("unprocessable", "fields")
	assert.Equal(t, before+1, testutil.ToFloat64(pipelineOutcomes.WithLabelValues("unprocessable", "fields")))
}

func TestCaptureOCRPage(t *testing.T) {
	okBefore := testutil.ToFloat64(ocrPages.WithLabelValues("fake", "ok"))
	errBefore := testutil.ToFloat64(ocrPages.WithLabelValues("fake", "error"))
	CaptureOCRPage("fake", nil)
	CaptureOCRPage("fake", errors.New("boom"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(ocrPages.WithLabelValues("fake", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(ocrPages.WithLabelValues("fake", "error")))
}

func TestHistogramsAccept(t *testing.T) {
	CaptureStage("extract", 120*time.Millisecond)
	CaptureDependency("gemini", time.Second)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(stageDuration), 1)
}
