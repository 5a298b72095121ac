package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/metrics"
)

func newService(t *testing.T) (*metrics.Service, *events.Emitter, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := metrics.NewService(reg)
	emitter := events.NewEmitter()
	s.Attach(emitter)
	return s, emitter, reg
}

func TestSettlementMetrics(t *testing.T) {
	s, emitter, _ := newService(t)

	emitter.Emit(events.Event{Type: events.EventGameSettled, Data: map[string]any{
		"draw": false, "tournament_id": "", "asset": core.NativeAsset, "fee": uint64(10),
	}})
	emitter.Emit(events.Event{Type: events.EventGameSettled, Data: map[string]any{
		"draw": true, "tournament_id": "cup", "asset": "", "fee": uint64(0),
	}})
	emitter.Emit(events.Event{Type: events.EventPayout, Data: map[string]any{
		"asset": core.NativeAsset, "amount": uint64(1_990), "pending": false,
	}})
	emitter.Emit(events.Event{Type: events.EventPayout, Data: map[string]any{
		"asset": core.NativeAsset, "amount": uint64(5), "pending": true,
	}})

	assert.Equal(t, 1.0, promtest.ToFloat64(s.GamesSettled.WithLabelValues("decisive", "staked")))
	assert.Equal(t, 1.0, promtest.ToFloat64(s.GamesSettled.WithLabelValues("draw", "tournament")))
	assert.Equal(t, 10.0, promtest.ToFloat64(s.FeesAccrued.WithLabelValues(core.NativeAsset)))
	assert.Equal(t, 1990.0, promtest.ToFloat64(s.PayoutVolume.WithLabelValues(core.NativeAsset, "push")))
	assert.Equal(t, 5.0, promtest.ToFloat64(s.PayoutVolume.WithLabelValues(core.NativeAsset, "pull")))
}

func TestLifecycleCounters(t *testing.T) {
	s, emitter, _ := newService(t)

	emitter.Emit(events.Event{Type: events.EventGameCreated})
	emitter.Emit(events.Event{Type: events.EventGameCreated})
	emitter.Emit(events.Event{Type: events.EventDisputeRaised})
	emitter.Emit(events.Event{Type: events.EventWithdrawal})
	emitter.Emit(events.Event{Type: events.EventGameCancelled, Data: map[string]any{"reason": "agreement"}})
	emitter.Emit(events.Event{Type: events.EventPolicyChanged, Data: map[string]any{"param": "oracle"}})
	emitter.Emit(events.Event{Type: events.EventTxExecuted, Data: map[string]any{"type": "join_game"}})
	emitter.Emit(events.Event{Type: events.EventBlockCommit, BlockHeight: 12, Data: map[string]any{"dropped": 2}})

	assert.Equal(t, 2.0, promtest.ToFloat64(s.GamesCreated))
	assert.Equal(t, 1.0, promtest.ToFloat64(s.DisputesRaised))
	assert.Equal(t, 1.0, promtest.ToFloat64(s.Withdrawals))
	assert.Equal(t, 1.0, promtest.ToFloat64(s.GamesCancelled.WithLabelValues("agreement")))
	assert.Equal(t, 1.0, promtest.ToFloat64(s.PolicyChanges.WithLabelValues("oracle")))
	assert.Equal(t, 1.0, promtest.ToFloat64(s.TxExecuted.WithLabelValues("join_game")))
	assert.Equal(t, 12.0, promtest.ToFloat64(s.BlockHeight))
	assert.Equal(t, 2.0, promtest.ToFloat64(s.DroppedTxs))
}

func TestHandlerServesRegistry(t *testing.T) {
	_, emitter, reg := newService(t)
	emitter.Emit(events.Event{Type: events.EventGameCreated})

	rec := httptest.NewRecorder()
	metrics.NewHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "tolarena_games_created_total 1"))
}
