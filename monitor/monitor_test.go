package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rooms := 3
	m := NewMetrics("test", reg, func() int { return rooms })

	m.Guesses.WithLabelValues("hit").Inc()
	m.Rounds.WithLabelValues("loss").Add(2)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.ActiveRooms))
	rooms = 5
	assert.Equal(t, float64(5), testutil.ToFloat64(m.ActiveRooms))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Guesses.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Rounds.WithLabelValues("loss")))
}

func TestMonitor(t *testing.T) {
	m := NewMonitor("hangman", func() int { return 1 })

	m.IncOnlineSessions()
	m.IncOnlineSessions()
	m.DecOnlineSessions()
	m.IncMessagesReceived()
	m.ObserveGuess(true)
	m.ObserveGuess(false)
	m.ObserveGuess(false)
	m.ObserveRound(true)
	m.ObserveMessageLatency(5 * time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.OnlineSessions))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.metrics.Guesses.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.Rounds.WithLabelValues("win")))
	assert.Equal(t, int64(1), m.RequestCount())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "hangman_active_rooms 1"))
	assert.True(t, strings.Contains(body, `hangman_letter_guesses_total{result="hit"} 1`))
}

func TestMonitor_NilIsNoop(t *testing.T) {
	var m *Monitor
	assert.NotPanics(t, func() {
		m.IncOnlineSessions()
		m.IncMessagesReceived()
		m.ObserveGuess(true)
		m.ObserveRound(false)
		m.ObserveMessageLatency(time.Second)
	})
	assert.Zero(t, m.RequestCount())
}
