package weather

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-tracker/internal/observability"
)

// Deps bundles the collaborators shared by every tracker.
type Deps struct {
	Observations ObservationService
	Mailer       Mailer
	Resolver     *LocationResolver
	Icons        *IconResolver
	PlaceNamer   PlaceNamer // optional
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	Clock        clockwork.Clock
}

// Service creates trackers and owns their shared collaborators.
type Service struct {
	observations ObservationService
	mailer       Mailer
	resolver     *LocationResolver
	icons        *IconResolver
	namer        PlaceNamer
	metrics      *observability.Metrics
	logger       *slog.Logger
	clock        clockwork.Clock
}

// NewService creates a new Service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetricsForTesting()
	}
	if d.Icons == nil {
		d.Icons = NewIconResolver("", IconModeSingle)
	}
	if d.Resolver == nil {
		d.Resolver = NewLocationResolver(nil, ResolverConfig{}, d.Clock, d.Logger)
	}
	return &Service{
		observations: d.Observations,
		mailer:       d.Mailer,
		resolver:     d.Resolver,
		icons:        d.Icons,
		namer:        d.PlaceNamer,
		metrics:      d.Metrics,
		logger:       d.Logger,
		clock:        d.Clock,
	}
}

// NewTracker creates a tracker bound to recordID (which may be empty).
// Coordinate mode is the default input mode.
func (s *Service) NewTracker(id, recordID string) *Tracker {
	now := s.clock.Now()
	return &Tracker{
		svc:       s,
		id:        id,
		recordID:  recordID,
		createdAt: now,
		touchedAt: now,
	}
}

// Icons exposes the configured icon resolver.
func (s *Service) Icons() *IconResolver {
	return s.icons
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}
