package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/railwright/amhs-core/internal/lockmgr"
	"github.com/railwright/amhs-core/internal/metrics"
)

func TestRegisterAddsAllInstruments(t *testing.T) {
	c := metrics.NewCollector("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestObserveTickAndActiveVehicles(t *testing.T) {
	c := metrics.NewCollector("test")
	c.ObserveTick(0.002)
	c.SetActiveVehicles(42)

	var gauge dto.Metric
	require.NoError(t, c.ActiveVehicles.Write(&gauge))
	require.Equal(t, 42.0, gauge.GetGauge().GetValue())
}

func TestSampleLockManagerPopulatesPerNodeGauges(t *testing.T) {
	lm := lockmgr.NewManager(lockmgr.Config{RequestDistanceStr: -1}, []string{"M1"})
	lm.RequestLock("M1", "E1", "V1", 0)
	lm.RequestLock("M1", "E2", "V2", 1)

	c := metrics.NewCollector("test")
	c.SampleLockManager(lm)

	var granted dto.Metric
	require.NoError(t, c.GrantedCount.WithLabelValues("M1").Write(&granted))
	require.Equal(t, 1.0, granted.GetGauge().GetValue())

	var queued dto.Metric
	require.NoError(t, c.QueueDepth.WithLabelValues("M1").Write(&queued))
	require.Equal(t, 1.0, queued.GetGauge().GetValue())
}
