package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestRecordAlertRaised(t *testing.T) {
	before := value(t, safetyAlertsRaisedTotal.WithLabelValues("proximity", "CRITICAL"))
	RecordAlertRaised("proximity", "CRITICAL")
	after := value(t, safetyAlertsRaisedTotal.WithLabelValues("proximity", "CRITICAL"))
	assert.Equal(t, before+1, after)
}

func TestRecordSafetyTickSetsActiveConditions(t *testing.T) {
	RecordSafetyTick(time.Millisecond, 3)
	assert.Equal(t, 3.0, value(t, safetyActiveConditions))
}

func TestRecordMonitoring(t *testing.T) {
	RecordMonitoring(true)
	assert.Equal(t, 1.0, value(t, safetyMonitoring))
	RecordMonitoring(false)
	assert.Equal(t, 0.0, value(t, safetyMonitoring))
}

func TestCueDeliveryStatusLabel(t *testing.T) {
	before := value(t, cueDeliveryTotal.WithLabelValues("fcm", "error"))
	RecordCueDelivery("fcm", errors.New("boom"))
	assert.Equal(t, before+1, value(t, cueDeliveryTotal.WithLabelValues("fcm", "error")))
}
