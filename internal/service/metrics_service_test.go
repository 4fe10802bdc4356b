package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramSampleCount(t *testing.T, m *MetricsService, name, labelName, labelValue string) uint64 {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestMetricsServiceObservesClassifierCalls(t *testing.T) {
	metrics := NewMetricsService()
	llmMock := &completerMock{response: `{"operation": "READ", "confidence": 0.9}`}
	svc := NewClassifierService(llmMock, &pendingCheckerMock{}, "test-model", nil)
	svc.SetMetrics(metrics)

	svc.Classify(context.Background(), "show fees for STU001", "919876543210")

	assert.Equal(t, uint64(1), histogramSampleCount(t, metrics, "llm_call_duration_seconds", "purpose", "classify"))
}

func TestMetricsServiceObservesParserCalls(t *testing.T) {
	metrics := NewMetricsService()
	llmMock := &completerMock{response: `{"Installments":[{"stud_id":"STU001","installment_amount":"4000"}],"Logs":[]}`}
	svc := NewParserService(llmMock, "test-model", nil)
	svc.SetMetrics(metrics)

	svc.Parse(context.Background(), "STU001 paid 4000")

	assert.Equal(t, uint64(1), histogramSampleCount(t, metrics, "llm_call_duration_seconds", "purpose", "parse"))
}

func TestMetricsServiceNilReceiverIsSafe(t *testing.T) {
	var metrics *MetricsService
	assert.NotPanics(t, func() {
		metrics.ObserveLLMCall("classify", time.Millisecond)
	})
}
