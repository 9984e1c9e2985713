package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordsByOutcome(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("foxcap", reg, nil)

	c.RecordEval(time.Millisecond, nil)
	c.RecordEval(time.Millisecond, nil)
	c.RecordEval(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.evalTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evalTotal.WithLabelValues("error")))
}

func TestCollector_WaitAndRedirects(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("foxcap", reg, nil)

	c.RecordWait(2*time.Second, false)
	c.RecordWait(300*time.Second, true)
	c.RecordRedirectHop()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.waitTimeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.redirectHops))
}

func TestCollector_ElementsAndCheckers(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("foxcap", reg, nil)

	c.RecordElement("Link")
	c.RecordElement("Link")
	c.RecordChecker(nil)
	c.RecordConnectAttempt(errors.New("refused"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.elementsResolved.WithLabelValues("Link")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkerRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectAttempts.WithLabelValues("error")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordEval(time.Second, nil)
		c.RecordConnectAttempt(nil)
		c.RecordWait(time.Second, true)
		c.RecordRedirectHop()
		c.RecordElement("Div")
		c.RecordChecker(errors.New("x"))
	})
}
