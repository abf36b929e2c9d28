package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/repository"
)

// FinalizedBucketID is the chart bucket all final statuses collapse into.
const FinalizedBucketID = "finalized"

const (
	recentTicketCount = 5
	adminDashboardKey = "admin"
)

// AggregateCache stores computed dashboards between ticket changes.
type AggregateCache interface {
	Load(ctx context.Context, key string, dest any) (bool, error)
	Store(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// DashboardKPIs are the headline counters of the admin dashboard.
type DashboardKPIs struct {
	Total      int
	Open       int
	InProgress int
	Finalized  int
	Others     int
}

// ChartBucket is one bar of a dashboard chart.
type ChartBucket struct {
	ID    string
	Name  string
	Count int
}

// AdminDashboard is the aggregate view shown to administrators.
type AdminDashboard struct {
	KPIs         DashboardKPIs
	StatusChart  []ChartBucket
	ProblemTypes []ChartBucket
	Recent       []domain.TicketView
}

// RequesterDashboard summarizes the caller's own tickets.
type RequesterDashboard struct {
	Open      int
	Finalized int
}

// DashboardService computes ticket aggregates.
type DashboardService struct {
	dashboards repository.DashboardRepository
	tickets    repository.TicketRepository
	cache      AggregateCache
	logger     *zap.Logger
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	DashboardRepo repository.DashboardRepository
	TicketRepo    repository.TicketRepository
	Cache         AggregateCache
	Logger        *zap.Logger
}

// NewDashboardService builds the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		dashboards: deps.DashboardRepo,
		tickets:    deps.TicketRepo,
		cache:      deps.Cache,
		logger:     orNop(deps.Logger),
	}
}

// Admin returns the administrator dashboard, from cache when fresh.
func (s *DashboardService) Admin(ctx context.Context, caller domain.Caller) (*AdminDashboard, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	var cached AdminDashboard
	if s.load(ctx, adminDashboardKey, &cached) {
		return &cached, nil
	}

	counts, err := s.dashboards.StatusCounts(ctx, nil)
	if err != nil {
		return nil, err
	}
	problemTypes, err := s.dashboards.ProblemTypeCounts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.tickets.List(ctx, repository.TicketFilter{Limit: recentTicketCount})
	if err != nil {
		return nil, err
	}

	dash := &AdminDashboard{
		KPIs:        kpis(counts),
		StatusChart: statusChart(counts),
		Recent:      recent,
	}
	for _, pc := range problemTypes {
		dash.ProblemTypes = append(dash.ProblemTypes, ChartBucket{ID: pc.ProblemType.ID, Name: pc.ProblemType.Name, Count: pc.Count})
	}

	s.store(ctx, adminDashboardKey, dash)
	return dash, nil
}

// Requester returns open and finalized counts for the caller's tickets.
func (s *DashboardService) Requester(ctx context.Context, caller domain.Caller) (*RequesterDashboard, error) {
	key := "requester:" + caller.ID
	var cached RequesterDashboard
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}
	counts, err := s.dashboards.StatusCounts(ctx, &caller.ID)
	if err != nil {
		return nil, err
	}
	dash := &RequesterDashboard{}
	for _, c := range counts {
		if c.Status.IsFinal() {
			dash.Finalized += c.Count
		} else {
			dash.Open += c.Count
		}
	}
	s.store(ctx, key, dash)
	return dash, nil
}

// RegisterInvalidation drops cached dashboards whenever tickets or the catalog change.
func (s *DashboardService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	invalidate := func(ctx context.Context, event events.Event) error {
		return s.cache.Invalidate(ctx)
	}
	for _, t := range events.TicketEventTypes() {
		dispatcher.Subscribe(t, invalidate)
	}
	dispatcher.Subscribe(events.EventCatalogChanged, invalidate)
}

func (s *DashboardService) load(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Load(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *DashboardService) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(ctx, key, value); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func kpis(counts []repository.StatusCount) DashboardKPIs {
	var k DashboardKPIs
	for _, c := range counts {
		k.Total += c.Count
		switch {
		case c.Status.IsInitial():
			k.Open += c.Count
		case c.Status.IsInProgress():
			k.InProgress += c.Count
		case c.Status.IsFinal():
			k.Finalized += c.Count
		}
	}
	k.Others = k.Total - k.Open - k.InProgress - k.Finalized
	return k
}

// statusChart keeps non-final statuses as their own bars and folds every final
// status into one trailing bucket.
func statusChart(counts []repository.StatusCount) []ChartBucket {
	var chart []ChartBucket
	finalized := ChartBucket{ID: FinalizedBucketID, Name: "Finalized"}
	for _, c := range counts {
		if c.Status.IsFinal() {
			finalized.Count += c.Count
			continue
		}
		chart = append(chart, ChartBucket{ID: c.Status.ID, Name: c.Status.Name, Count: c.Count})
	}
	return append(chart, finalized)
}
