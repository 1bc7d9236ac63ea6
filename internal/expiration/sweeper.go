// Package expiration retires offers whose response window ran out. The sweep
// runs periodically, warns advisors once before the deadline, and expires
// overdue offers idempotently.
package expiration

import (
	"context"
	"fmt"
	"time"

	"repuestos_backend/internal/events"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const warningMarkerPrefix = "oferta:warning:"

// sweepStore is the persistence surface the sweeper needs.
type sweepStore interface {
	ListNearingExpiry(ctx context.Context, warnBefore, expireBefore time.Time) ([]SweepOffer, error)
	ListExpired(ctx context.Context, expireBefore time.Time) ([]SweepOffer, error)
	Expire(ctx context.Context, offerID uuid.UUID) (bool, error)
}

// Notifier delivers the pre-expiration warning.
type Notifier interface {
	NotifyAdvisor(ctx context.Context, advisorID uuid.UUID, summary, channel string) error
}

// SettingsSource hands out configuration snapshots.
type SettingsSource interface {
	Snapshot() params.Settings
}

// Result summarizes one sweep pass.
type Result struct {
	Warned  int
	Expired int
}

// Sweeper runs the warning and expiration passes.
type Sweeper struct {
	store    sweepStore
	markers  redis.UniversalClient
	notifier Notifier
	settings SettingsSource
	bus      events.Bus
	log      *logger.Logger
}

// NewSweeper creates an expiration sweeper.
func NewSweeper(store sweepStore, markers redis.UniversalClient, notifier Notifier, settings SettingsSource, bus events.Bus, log *logger.Logger) *Sweeper {
	return &Sweeper{store: store, markers: markers, notifier: notifier, settings: settings, bus: bus, log: log}
}

// Sweep runs both passes. timeoutHoursOverride <= 0 uses the configured
// timeout. Running the sweep twice in a row is harmless: expiration is
// guarded in SQL and warnings are deduplicated by a Redis marker.
func (s *Sweeper) Sweep(ctx context.Context, timeoutHoursOverride int) (Result, error) {
	settings := s.settings.Snapshot()
	timeoutHours := settings.OfferTimeoutHours
	if timeoutHoursOverride > 0 {
		timeoutHours = timeoutHoursOverride
	}

	now := time.Now()
	timeout := time.Duration(timeoutHours) * time.Hour
	lead := time.Duration(settings.WarningLeadHours) * time.Hour
	expireBefore := now.Add(-timeout)
	warnBefore := now.Add(-(timeout - lead))

	var result Result

	warned, err := s.warningPass(ctx, warnBefore, expireBefore, timeout, settings.WarningChannel)
	if err != nil {
		return result, err
	}
	result.Warned = warned

	expired, err := s.expirationPass(ctx, expireBefore)
	if err != nil {
		return result, err
	}
	result.Expired = expired

	s.bus.Publish(ctx, events.ExpirationSweep{
		BaseEvent: events.NewBaseEvent(),
		Expired:   result.Expired,
		Warned:    result.Warned,
	})
	s.log.JobEvent("expiration_sweep", "finished", "warned", result.Warned, "expired", result.Expired)
	return result, nil
}

// warningPass notifies advisors whose offers are about to expire. The SET NX
// marker guarantees one warning per offer even across overlapping sweeps;
// its TTL outlives the offer's remaining window so it never re-arms.
func (s *Sweeper) warningPass(ctx context.Context, warnBefore, expireBefore time.Time, timeout time.Duration, channel string) (int, error) {
	offers, err := s.store.ListNearingExpiry(ctx, warnBefore, expireBefore)
	if err != nil {
		return 0, err
	}

	warned := 0
	for _, offer := range offers {
		marker := warningMarkerPrefix + offer.ID.String()
		fresh, err := s.markers.SetNX(ctx, marker, 1, timeout).Result()
		if err != nil {
			// Marker store down: skip warnings this round rather than spam
			// advisors on every sweep.
			s.log.Warn("warning marker store unreachable, skipping warning pass", "error", err)
			return warned, nil
		}
		if !fresh {
			continue
		}

		expiresAt := offer.CreatedAt.Add(timeout)
		if err := s.notifier.NotifyAdvisor(ctx, offer.AdvisorID,
			fmt.Sprintf("tu oferta vence el %s", expiresAt.Format(time.RFC3339)), channel); err != nil {
			s.log.Error("failed to deliver expiration warning", "offer_id", offer.ID, "error", err)
		}
		s.bus.Publish(ctx, events.OfferWarning{
			BaseEvent: events.NewBaseEvent(),
			OfferID:   offer.ID,
			RequestID: offer.RequestID,
			AdvisorID: offer.AdvisorID,
			ExpiresAt: expiresAt,
		})
		warned++
	}
	return warned, nil
}

func (s *Sweeper) expirationPass(ctx context.Context, expireBefore time.Time) (int, error) {
	offers, err := s.store.ListExpired(ctx, expireBefore)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offer := range offers {
		changed, err := s.store.Expire(ctx, offer.ID)
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}
