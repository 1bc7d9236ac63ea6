// Package evaluation decides which offer wins each requested item. One
// evaluation runs per request at a time, bounded by a deadline, and its
// outcome is committed atomically: every adjudication, every offer state
// change and the request transition land in one transaction or none do.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"repuestos_backend/internal/events"
	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
)

// ItemSnapshot is a requested item as seen by one evaluation run.
type ItemSnapshot struct {
	ID       uuid.UUID
	Name     string
	Quantity int
}

// DetailSnapshot is one offer line competing for an item.
type DetailSnapshot struct {
	ID             uuid.UUID
	OfferID        uuid.UUID
	RequestItemID  uuid.UUID
	UnitPriceCents int64
	Quantity       int
	WarrantyMonths int
	DeliveryDays   int
}

// OfferSnapshot is one active offer with its lines.
type OfferSnapshot struct {
	ID          uuid.UUID
	AdvisorID   uuid.UUID
	SubmittedAt time.Time
	Details     []DetailSnapshot
}

// Snapshot is the frozen view of a request an evaluation runs against.
type Snapshot struct {
	RequestID uuid.UUID
	State     lifecycle.RequestState
	Items     []ItemSnapshot
	Offers    []OfferSnapshot
}

// Adjudication awards one request item to one offer line.
type Adjudication struct {
	ID             uuid.UUID
	RequestID      uuid.UUID
	RequestItemID  uuid.UUID
	OfferID        uuid.UUID
	OfferDetailID  uuid.UUID
	AdvisorID      uuid.UUID
	UnitPriceCents int64
	Quantity       int
	TotalCents     int64
	Score          float64
}

// Outcome is the committed result of one evaluation run.
type Outcome struct {
	RequestID             uuid.UUID
	ClosedWithoutOffers   bool
	Adjudications         []Adjudication
	WinningOffers         []uuid.UUID
	LosingOffers          []uuid.UUID
	TotalCents            int64
	SingleProvider        bool
	AggregateDeliveryDays int
	AggregateWarrantyMos  int
	EvaluatedAt           time.Time
}

// TimeoutError reports an evaluation aborted by its deadline. Nothing was
// committed; the request stays open in the recoverable failed sub-state.
type TimeoutError struct {
	RequestID uuid.UUID
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("evaluation of request %s exceeded its deadline", e.RequestID)
}

// StateDetailEvaluationFailed marks a request whose evaluation aborted.
const StateDetailEvaluationFailed = "evaluacion_fallida"

// store is the persistence surface the engine needs.
type store interface {
	LoadSnapshot(ctx context.Context, requestID uuid.UUID) (*Snapshot, error)
	CommitEvaluation(ctx context.Context, outcome *Outcome) error
	MarkEvaluationFailed(ctx context.Context, requestID uuid.UUID, note string) error
	CloseWithoutOffers(ctx context.Context, requestID uuid.UUID) error
}

// Engine runs evaluations.
type Engine struct {
	store store
	bus   events.Bus
	log   *logger.Logger
}

// NewEngine creates an evaluation engine.
func NewEngine(store store, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{store: store, bus: bus, log: log}
}

// Evaluate scores every active offer line against its item, adjudicates
// winners and commits the outcome. The context deadline is honored between
// items: once exceeded, zero adjudications are committed and the request is
// flagged for a retry.
func (e *Engine) Evaluate(ctx context.Context, requestID uuid.UUID, settings params.Settings) (*Outcome, error) {
	snap, err := e.store.LoadSnapshot(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if snap.State != lifecycle.RequestAbierta {
		return nil, apperr.Conflict(fmt.Sprintf("request is %s, only open requests can be evaluated", snap.State))
	}

	if len(snap.Offers) == 0 {
		if err := e.store.CloseWithoutOffers(ctx, requestID); err != nil {
			return nil, err
		}
		e.log.Info("request closed without offers", "request_id", requestID)
		return &Outcome{RequestID: requestID, ClosedWithoutOffers: true, EvaluatedAt: time.Now()}, nil
	}

	outcome, err := e.adjudicate(ctx, snap, settings.EvaluationWeights)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, e.abortOnTimeout(requestID)
		}
		return nil, err
	}

	if err := e.store.CommitEvaluation(ctx, outcome); err != nil {
		// The deadline can also fire mid-commit; the transaction rolled back,
		// so the request needs the same recoverable failed sub-state.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, e.abortOnTimeout(requestID)
		}
		return nil, err
	}

	e.bus.Publish(ctx, events.EvaluationDone{
		BaseEvent:      events.NewBaseEvent(),
		RequestID:      requestID,
		WinningOffers:  outcome.WinningOffers,
		TotalCents:     outcome.TotalCents,
		SingleProvider: outcome.SingleProvider,
	})
	e.log.Info("evaluation committed",
		"request_id", requestID,
		"adjudications", len(outcome.Adjudications),
		"total_cents", outcome.TotalCents,
		"single_provider", outcome.SingleProvider)
	return outcome, nil
}

// abortOnTimeout records the recoverable failed sub-state with a fresh
// context; the expired evaluation context cannot carry the write.
func (e *Engine) abortOnTimeout(requestID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.MarkEvaluationFailed(ctx, requestID, "evaluation deadline exceeded"); err != nil {
		e.log.Error("failed to mark evaluation as failed", "request_id", requestID, "error", err)
	}
	e.bus.Publish(ctx, events.EvaluationFailed{
		BaseEvent: events.NewBaseEvent(),
		RequestID: requestID,
		Reason:    "deadline exceeded",
	})

	tErr := &TimeoutError{RequestID: requestID}
	return apperr.Wrap(apperr.KindTimeout, tErr.Error(), tErr)
}

func (e *Engine) adjudicate(ctx context.Context, snap *Snapshot, weights params.EvaluationWeights) (*Outcome, error) {
	offersByID := make(map[uuid.UUID]*OfferSnapshot, len(snap.Offers))
	detailsByItem := make(map[uuid.UUID][]DetailSnapshot)
	for i := range snap.Offers {
		offer := &snap.Offers[i]
		offersByID[offer.ID] = offer
		for _, d := range offer.Details {
			detailsByItem[d.RequestItemID] = append(detailsByItem[d.RequestItemID], d)
		}
	}

	outcome := &Outcome{RequestID: snap.RequestID, EvaluatedAt: time.Now()}
	winners := make(map[uuid.UUID]bool)
	advisors := make(map[uuid.UUID]bool)

	aggDelivery := 0
	aggWarranty := -1

	for _, item := range snap.Items {
		// Deadline checked between items, never mid-score.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates := detailsByItem[item.ID]
		if len(candidates) == 0 {
			continue
		}

		best, score := e.pickWinner(candidates, offersByID, weights)
		qty := best.Quantity
		if qty > item.Quantity {
			qty = item.Quantity
		}

		winner := offersByID[best.OfferID]
		adj := Adjudication{
			ID:             uuid.New(),
			RequestID:      snap.RequestID,
			RequestItemID:  item.ID,
			OfferID:        best.OfferID,
			OfferDetailID:  best.ID,
			AdvisorID:      winner.AdvisorID,
			UnitPriceCents: best.UnitPriceCents,
			Quantity:       qty,
			TotalCents:     best.UnitPriceCents * int64(qty),
			Score:          score,
		}
		outcome.Adjudications = append(outcome.Adjudications, adj)
		outcome.TotalCents += adj.TotalCents
		winners[best.OfferID] = true
		advisors[winner.AdvisorID] = true

		if best.DeliveryDays > aggDelivery {
			aggDelivery = best.DeliveryDays
		}
		if aggWarranty < 0 || best.WarrantyMonths < aggWarranty {
			aggWarranty = best.WarrantyMonths
		}
	}

	if len(outcome.Adjudications) == 0 {
		return nil, apperr.Conflict("no offer line matches any requested item")
	}

	for _, offer := range snap.Offers {
		if winners[offer.ID] {
			outcome.WinningOffers = append(outcome.WinningOffers, offer.ID)
		} else {
			outcome.LosingOffers = append(outcome.LosingOffers, offer.ID)
		}
	}
	outcome.SingleProvider = len(advisors) == 1
	outcome.AggregateDeliveryDays = aggDelivery
	outcome.AggregateWarrantyMos = aggWarranty
	return outcome, nil
}

// pickWinner scores every candidate line and returns the best one. Ties break
// toward the earliest submitted offer, then the lower offer id.
func (e *Engine) pickWinner(candidates []DetailSnapshot, offers map[uuid.UUID]*OfferSnapshot, weights params.EvaluationWeights) (DetailSnapshot, float64) {
	bestPrice := candidates[0].UnitPriceCents
	bestDelivery := candidates[0].DeliveryDays
	maxWarranty := candidates[0].WarrantyMonths
	for _, c := range candidates[1:] {
		if c.UnitPriceCents < bestPrice {
			bestPrice = c.UnitPriceCents
		}
		if c.DeliveryDays < bestDelivery {
			bestDelivery = c.DeliveryDays
		}
		if c.WarrantyMonths > maxWarranty {
			maxWarranty = c.WarrantyMonths
		}
	}

	scored := make([]float64, len(candidates))
	for i, c := range candidates {
		scored[i] = weights.Price*priceScore(bestPrice, c.UnitPriceCents) +
			weights.Delivery*deliveryScore(bestDelivery, c.DeliveryDays) +
			weights.Warranty*warrantyScore(maxWarranty, c.WarrantyMonths)
	}

	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := candidates[idx[a]], candidates[idx[b]]
		if scored[idx[a]] != scored[idx[b]] {
			return scored[idx[a]] > scored[idx[b]]
		}
		oa, ob := offers[ca.OfferID], offers[cb.OfferID]
		if !oa.SubmittedAt.Equal(ob.SubmittedAt) {
			return oa.SubmittedAt.Before(ob.SubmittedAt)
		}
		return ca.OfferID.String() < cb.OfferID.String()
	})

	winner := idx[0]
	return candidates[winner], scored[winner]
}

// priceScore normalizes against the cheapest candidate: best = 1.0, every
// other line scores proportionally below it.
func priceScore(best, price int64) float64 {
	if price <= 0 {
		return 0
	}
	return float64(best) / float64(price)
}

// deliveryScore works like priceScore but shifts by one day because same-day
// delivery is a legitimate zero.
func deliveryScore(best, days int) float64 {
	return float64(best+1) / float64(days+1)
}

// warrantyScore is linear against the longest warranty offered; no warranty
// anywhere means the component does not differentiate.
func warrantyScore(max, months int) float64 {
	if max <= 0 {
		return 1.0
	}
	return float64(months) / float64(max)
}
