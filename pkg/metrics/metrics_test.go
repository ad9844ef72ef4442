package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	register("test", reg)

	Inc(ModerationDecisions, "event", "approved")
	Inc(ModerationDecisions, "event", "approved")
	assert.Equal(t, 2.0, testutil.ToFloat64(ModerationDecisions.WithLabelValues("event", "approved")))

	TrackDBOperation("noop")(time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(DBOperationDuration))
}

func TestInc_NilCollectorIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Inc(nil, "x") })
}
