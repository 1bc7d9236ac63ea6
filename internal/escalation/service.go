// Package escalation widens a request's advisor audience in timed waves.
// Candidates are ranked once at request creation and frozen into a tier map;
// each wave notifies one more tier until enough offers arrive or the tiers
// run out.
package escalation

import (
	"context"
	"time"

	"repuestos_backend/internal/events"
	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/internal/matching"
	"repuestos_backend/internal/params"
	reqrepo "repuestos_backend/internal/requests/repository"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const notifyConcurrency = 8

// Ranker produces the scored candidate list for an origin city.
type Ranker interface {
	RankCandidates(ctx context.Context, originCity string, settings params.Settings) ([]matching.ScoredAdvisor, error)
}

// RequestSource is the slice of the requests repository the service needs.
type RequestSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*reqrepo.Request, error)
}

// OfferCounter counts a request's offers still in play.
type OfferCounter interface {
	CountActiveByRequest(ctx context.Context, requestID uuid.UUID) (int, error)
}

// candidateStore is the persistence surface the service needs.
type candidateStore interface {
	SaveCandidates(ctx context.Context, requestID uuid.UUID, candidates []Candidate) error
	ListCandidates(ctx context.Context, requestID uuid.UUID) ([]Candidate, error)
	AdvanceTier(ctx context.Context, requestID uuid.UUID, tier int) (bool, error)
}

// Notifier delivers a wave notification to one advisor.
type Notifier interface {
	NotifyAdvisor(ctx context.Context, advisorID uuid.UUID, summary, channel string) error
}

// AdvanceScheduler enqueues the delayed check that fires the next wave.
type AdvanceScheduler interface {
	ScheduleAdvance(ctx context.Context, requestID uuid.UUID, delay time.Duration) error
}

// EvaluationScheduler enqueues an evaluation run once enough offers arrived.
type EvaluationScheduler interface {
	EnqueueEvaluation(ctx context.Context, requestID uuid.UUID, timeoutSeconds int) error
}

// SettingsSource hands out configuration snapshots.
type SettingsSource interface {
	Snapshot() params.Settings
}

// Service runs the escalation waves.
type Service struct {
	store       candidateStore
	requests    RequestSource
	offers      OfferCounter
	ranker      Ranker
	notifier    Notifier
	scheduler   AdvanceScheduler
	evaluations EvaluationScheduler
	settings    SettingsSource
	bus         events.Bus
	log         *logger.Logger
}

// SetEvaluationScheduler wires the evaluation trigger. Without it a request
// that meets its offer threshold simply stops escalating.
func (s *Service) SetEvaluationScheduler(e EvaluationScheduler) {
	s.evaluations = e
}

// New creates an escalation service.
func New(store candidateStore, requests RequestSource, offers OfferCounter, ranker Ranker, notifier Notifier, scheduler AdvanceScheduler, settings SettingsSource, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		requests:  requests,
		offers:    offers,
		ranker:    ranker,
		notifier:  notifier,
		scheduler: scheduler,
		settings:  settings,
		bus:       bus,
		log:       log,
	}
}

// Start ranks the candidates for a new request, persists the tier map and
// fires the first wave. A request with no eligible advisors stays open with
// an empty map; closure is a separate, explicit decision.
func (s *Service) Start(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.State != lifecycle.RequestAbierta {
		return nil
	}

	settings := s.settings.Snapshot()
	ranked, err := s.ranker.RankCandidates(ctx, req.OriginCity, settings)
	if err != nil {
		return err
	}

	candidates := make([]Candidate, 0, len(ranked))
	for _, r := range ranked {
		candidates = append(candidates, Candidate{
			AdvisorID: r.Advisor.ID,
			Tier:      r.Tier,
			Composite: r.Composite,
		})
	}
	if err := s.store.SaveCandidates(ctx, requestID, candidates); err != nil {
		return err
	}

	if len(candidates) == 0 {
		s.log.Warn("request has no eligible advisors", "request_id", requestID, "origin_city", req.OriginCity)
		return nil
	}

	first := lowestTierAbove(candidates, 0)
	return s.fireWave(ctx, requestID, 0, first, candidates, settings)
}

// Advance is the delayed wave check. It stops when the request left ABIERTA,
// when enough offers arrived, or when no deeper tier has candidates.
func (s *Service) Advance(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.State != lifecycle.RequestAbierta {
		s.log.JobEvent("escalation", "stopped", "request_id", requestID, "reason", "request no longer open")
		return nil
	}

	count, err := s.offers.CountActiveByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if count >= req.MinDesiredOffers {
		s.log.JobEvent("escalation", "stopped", "request_id", requestID, "reason", "offer threshold met", "offers", count)
		if s.evaluations != nil {
			return s.evaluations.EnqueueEvaluation(ctx, requestID, 0)
		}
		return nil
	}

	candidates, err := s.store.ListCandidates(ctx, requestID)
	if err != nil {
		return err
	}
	next := lowestTierAbove(candidates, req.CurrentTier)
	if next == 0 {
		s.log.JobEvent("escalation", "exhausted", "request_id", requestID, "tier", req.CurrentTier)
		return nil
	}

	settings := s.settings.Snapshot()
	return s.fireWave(ctx, requestID, req.CurrentTier, next, candidates, settings)
}

// fireWave advances the tier pointer and notifies the advisors that became
// visible with it. Losing the monotonic update means another worker already
// fired this wave; the wave is then skipped, not repeated.
func (s *Service) fireWave(ctx context.Context, requestID uuid.UUID, prevTier, tier int, candidates []Candidate, settings params.Settings) error {
	advanced, err := s.store.AdvanceTier(ctx, requestID, tier)
	if err != nil {
		return err
	}
	if !advanced {
		s.log.JobEvent("escalation", "skipped", "request_id", requestID, "tier", tier)
		return nil
	}

	channel := settings.TierChannels[tier-1]
	wave := make([]Candidate, 0)
	for _, c := range candidates {
		if c.Tier > prevTier && c.Tier <= tier {
			wave = append(wave, c)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, c := range wave {
		g.Go(func() error {
			return s.notifier.NotifyAdvisor(gctx, c.AdvisorID, "nueva solicitud de repuestos disponible", channel)
		})
	}
	if err := g.Wait(); err != nil {
		// Notification failures do not roll the wave back; the tier pointer
		// already moved and the next wave is still scheduled.
		s.log.Error("wave notification incomplete", "request_id", requestID, "tier", tier, "error", err)
	}

	s.bus.Publish(ctx, events.WaveNotified{
		BaseEvent: events.NewBaseEvent(),
		RequestID: requestID,
		Tier:      tier,
		Notified:  len(wave),
		Channel:   channel,
	})
	s.log.JobEvent("escalation", "wave fired",
		"request_id", requestID, "tier", tier, "notified", len(wave), "channel", channel)

	if lowestTierAbove(candidates, tier) == 0 {
		return nil
	}
	wait := time.Duration(settings.TierWaitsMinutes[tier-1]) * time.Minute
	if err := s.scheduler.ScheduleAdvance(ctx, requestID, wait); err != nil {
		return err
	}
	return nil
}

// lowestTierAbove returns the smallest tier greater than prev that has
// candidates, or 0 when none exists.
func lowestTierAbove(candidates []Candidate, prev int) int {
	best := 0
	for _, c := range candidates {
		if c.Tier <= prev {
			continue
		}
		if best == 0 || c.Tier < best {
			best = c.Tier
		}
	}
	return best
}
