// AngelaMos | 2026
// scanner.go

package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/metrics"
)

const DefaultWindow = 14 * 24 * time.Hour

type Store interface {
	ListExpiring(ctx context.Context, cutoff time.Time) ([]catalog.Entry, error)
	MarkLeavingSoon(ctx context.Context, id string, cutoff time.Time) (bool, error)
}

type Result struct {
	Cutoff     time.Time `json:"cutoff"`
	Candidates int       `json:"candidates"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

// Scanner moves entries whose leaving date falls inside the window to
// leaving_soon. It never moves an entry back.
type Scanner struct {
	store     Store
	publisher events.Publisher
	clock     core.Clock
	window    time.Duration
	logger    *slog.Logger
}

func NewScanner(
	store Store,
	publisher events.Publisher,
	clock core.Clock,
	cfg config.ExpiryConfig,
	logger *slog.Logger,
) *Scanner {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if clock == nil {
		clock = core.SystemClock{}
	}

	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	return &Scanner{
		store:     store,
		publisher: publisher,
		clock:     clock,
		window:    window,
		logger:    logger.With("component", "expiry"),
	}
}

func (s *Scanner) Window() time.Duration {
	return s.window
}

// Scan runs one sweep. A failure on a single entry is counted and the
// sweep continues; only a failed listing aborts it.
func (s *Scanner) Scan(ctx context.Context) (res Result, err error) {
	now := s.clock.Now()
	res.Cutoff = now.Add(s.window)

	ctx, span := core.StartSpan(ctx, nil, "expiry.scan",
		attribute.String("cutoff", res.Cutoff.Format(time.RFC3339)),
	)
	defer func() { core.EndSpan(span, err) }()

	candidates, err := s.store.ListExpiring(ctx, res.Cutoff)
	if err != nil {
		return res, fmt.Errorf("expiry scan: %w", err)
	}
	res.Candidates = len(candidates)

	for _, e := range candidates {
		changed, markErr := s.store.MarkLeavingSoon(ctx, e.ID, res.Cutoff)
		if markErr != nil {
			res.Errors++
			s.logger.Error("mark leaving soon failed", "entry_id", e.ID, "error", markErr)
			continue
		}
		if !changed {
			res.Skipped++
			continue
		}

		res.Updated++
		metrics.ExpiryTransitions.Inc()

		pubErr := s.publisher.PublishEntryChanged(ctx, events.EntryChanged{
			EntryID:        e.ID,
			GameID:         e.GameID,
			SubscriptionID: e.SubscriptionID,
			Platform:       e.Platform,
			Tier:           e.Tier,
			Status:         string(catalog.StatusLeavingSoon),
			PreviousStatus: string(e.Status),
			Origin:         events.OriginExpiry,
			At:             now,
		})
		if pubErr != nil {
			s.logger.Warn("publish entry change failed", "entry_id", e.ID, "error", pubErr)
		}
	}

	span.SetAttributes(
		attribute.Int("candidates", res.Candidates),
		attribute.Int("updated", res.Updated),
	)

	s.logger.Info("expiry scan complete",
		"cutoff", res.Cutoff,
		"candidates", res.Candidates,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"errors", res.Errors,
	)

	return res, nil
}
