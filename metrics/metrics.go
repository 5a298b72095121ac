// Package metrics exposes ledger activity as Prometheus metrics. The
// Service is fed entirely from the event emitter, so the execution path
// never calls into it directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tolelom/tolarena/events"
)

// Service holds all the Prometheus metrics for the ledger.
type Service struct {
	TxExecuted     *prometheus.CounterVec
	GamesCreated   prometheus.Counter
	GamesSettled   *prometheus.CounterVec
	GamesCancelled *prometheus.CounterVec
	DisputesRaised prometheus.Counter
	PayoutVolume   *prometheus.CounterVec
	FeesAccrued    *prometheus.CounterVec
	Withdrawals    prometheus.Counter
	PolicyChanges  *prometheus.CounterVec
	BlockHeight    prometheus.Gauge
	DroppedTxs     prometheus.Counter
}

// NewHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		TxExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolarena_tx_executed_total",
			Help: "Transactions executed successfully, by type.",
		}, []string{"type"}),
		GamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tolarena_games_created_total",
			Help: "Staked games opened.",
		}),
		GamesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolarena_games_settled_total",
			Help: "Games settled, by outcome (decisive, draw) and kind (staked, tournament).",
		}, []string{"outcome", "kind"}),
		GamesCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolarena_games_cancelled_total",
			Help: "Games cancelled, by reason.",
		}, []string{"reason"}),
		DisputesRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tolarena_disputes_raised_total",
			Help: "Disputes raised against submitted outcomes.",
		}),
		PayoutVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolarena_payout_amount_total",
			Help: "Amount paid out of escrow, by asset and mode (push, pull).",
		}, []string{"asset", "mode"}),
		FeesAccrued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolarena_fees_accrued_total",
			Help: "Protocol and draw fees booked into the fee vault, by asset.",
		}, []string{"asset"}),
		Withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tolarena_withdrawals_total",
			Help: "Pending balances withdrawn.",
		}),
		PolicyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tolarena_policy_changes_total",
			Help: "Policy parameter changes, by parameter.",
		}, []string{"param"}),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tolarena_block_height",
			Help: "Height of the last committed block.",
		}),
		DroppedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tolarena_dropped_txs_total",
			Help: "Pending transactions dropped because they failed to execute.",
		}),
	}

	reg.MustRegister(
		s.TxExecuted,
		s.GamesCreated,
		s.GamesSettled,
		s.GamesCancelled,
		s.DisputesRaised,
		s.PayoutVolume,
		s.FeesAccrued,
		s.Withdrawals,
		s.PolicyChanges,
		s.BlockHeight,
		s.DroppedTxs,
	)
	return s
}

// Attach subscribes s to every event it tracks.
func (s *Service) Attach(emitter *events.Emitter) {
	emitter.Subscribe(events.EventTxExecuted, s.onTxExecuted)
	emitter.Subscribe(events.EventGameCreated, func(events.Event) { s.GamesCreated.Inc() })
	emitter.Subscribe(events.EventGameSettled, s.onGameSettled)
	emitter.Subscribe(events.EventGameCancelled, s.onGameCancelled)
	emitter.Subscribe(events.EventDisputeRaised, func(events.Event) { s.DisputesRaised.Inc() })
	emitter.Subscribe(events.EventPayout, s.onPayout)
	emitter.Subscribe(events.EventWithdrawal, func(events.Event) { s.Withdrawals.Inc() })
	emitter.Subscribe(events.EventPolicyChanged, s.onPolicyChanged)
	emitter.Subscribe(events.EventBlockCommit, s.onBlockCommit)
}

func (s *Service) onTxExecuted(ev events.Event) {
	typ, _ := ev.Data["type"].(string)
	s.TxExecuted.WithLabelValues(typ).Inc()
}

func (s *Service) onGameSettled(ev events.Event) {
	outcome := "decisive"
	if draw, _ := ev.Data["draw"].(bool); draw {
		outcome = "draw"
	}
	kind := "staked"
	if tid, _ := ev.Data["tournament_id"].(string); tid != "" {
		kind = "tournament"
	}
	s.GamesSettled.WithLabelValues(outcome, kind).Inc()

	if fee, _ := ev.Data["fee"].(uint64); fee > 0 {
		asset, _ := ev.Data["asset"].(string)
		s.FeesAccrued.WithLabelValues(asset).Add(float64(fee))
	}
}

func (s *Service) onGameCancelled(ev events.Event) {
	reason, _ := ev.Data["reason"].(string)
	s.GamesCancelled.WithLabelValues(reason).Inc()
}

func (s *Service) onPayout(ev events.Event) {
	asset, _ := ev.Data["asset"].(string)
	amount, _ := ev.Data["amount"].(uint64)
	mode := "push"
	if pending, _ := ev.Data["pending"].(bool); pending {
		mode = "pull"
	}
	s.PayoutVolume.WithLabelValues(asset, mode).Add(float64(amount))
}

func (s *Service) onPolicyChanged(ev events.Event) {
	param, _ := ev.Data["param"].(string)
	s.PolicyChanges.WithLabelValues(param).Inc()
}

func (s *Service) onBlockCommit(ev events.Event) {
	s.BlockHeight.Set(float64(ev.BlockHeight))
	if dropped, _ := ev.Data["dropped"].(int); dropped > 0 {
		s.DroppedTxs.Add(float64(dropped))
	}
}
