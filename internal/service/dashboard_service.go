package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type dashboardDepartmentCounter interface {
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.DepartmentDetail, int, error)
}

type dashboardStudentCounter interface {
	CountByCollege(ctx context.Context, collegeID string) (int, error)
}

type dashboardUserLister interface {
	ListByRole(ctx context.Context, collegeID string, role models.UserRole) ([]models.User, error)
}

type dashboardAchievements interface {
	CountPending(ctx context.Context, scope policy.Scope) (int, error)
}

type dashboardPermissionRequests interface {
	CountPending(ctx context.Context, scope policy.Scope) (int, error)
	Recent(ctx context.Context, scope policy.Scope, limit int) ([]models.PermissionRequestDetail, error)
}

type dashboardEvents interface {
	CountPendingRequests(ctx context.Context, scope policy.Scope) (int, error)
	Recent(ctx context.Context, collegeID string, limit int) ([]models.EventDetail, error)
}

type dbQueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Departments        dashboardDepartmentCounter
	Students           dashboardStudentCounter
	Users              dashboardUserLister
	Achievements       dashboardAchievements
	PermissionRequests dashboardPermissionRequests
	Events             dashboardEvents
	Cache              *CacheService
	Metrics            dbQueryObserver
	Logger             *zap.Logger
	Config             DashboardServiceConfig
}

// DashboardService composes the principal dashboard of a college.
type DashboardService struct {
	departments  dashboardDepartmentCounter
	students     dashboardStudentCounter
	users        dashboardUserLister
	achievements dashboardAchievements
	permissions  dashboardPermissionRequests
	events       dashboardEvents
	cache        *CacheService
	metrics      dbQueryObserver
	logger       *zap.Logger
	now          func() time.Time
	cfg          DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		departments:  params.Departments,
		students:     params.Students,
		users:        params.Users,
		achievements: params.Achievements,
		permissions:  params.PermissionRequests,
		events:       params.Events,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Principal returns the dashboard of the principal's college and reports whether it
// came from cache. Superusers pass the college explicitly.
func (s *DashboardService) Principal(ctx context.Context, actor *models.User, collegeID string) (*models.PrincipalDashboard, bool, error) {
	if err := requireActor(actor); err != nil {
		return nil, false, err
	}
	switch actor.Role {
	case models.RolePrincipal:
		collegeID = actor.College()
	case models.RoleSuperuser:
		if collegeID == "" {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "college_id is required")
		}
	default:
		return nil, false, forbidden("only principals can view the dashboard")
	}
	if !policy.Authorize(actor, policy.ActionViewDashboard, &policy.Target{CollegeID: collegeID}) {
		return nil, false, forbidden("not allowed to view this dashboard")
	}

	key := DashboardCacheKey(collegeID)
	if s.cache != nil {
		var cached models.PrincipalDashboard
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	dashboard, err := s.compose(ctx, collegeID)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return dashboard, false, nil
}

func (s *DashboardService) compose(ctx context.Context, collegeID string) (*models.PrincipalDashboard, error) {
	scope := policy.Scope{Kind: policy.ScopeCollege, CollegeID: collegeID}
	out := &models.PrincipalDashboard{CollegeID: collegeID, GeneratedAt: s.now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.timed("dashboard_departments", func() (err error) {
		_, out.DepartmentsCount, err = s.departments.List(gctx, models.ListFilter{PageSize: 1}, scope)
		return err
	}))
	g.Go(s.timed("dashboard_students", func() (err error) {
		out.StudentsCount, err = s.students.CountByCollege(gctx, collegeID)
		return err
	}))
	g.Go(s.timed("dashboard_hods", func() error {
		users, err := s.users.ListByRole(gctx, collegeID, models.RoleHOD)
		out.HODs = userInfos(users)
		return err
	}))
	g.Go(s.timed("dashboard_faculty", func() error {
		users, err := s.users.ListByRole(gctx, collegeID, models.RoleFaculty)
		out.Faculty = userInfos(users)
		return err
	}))
	g.Go(s.timed("dashboard_pending_achievements", func() (err error) {
		out.PendingAchievements, err = s.achievements.CountPending(gctx, scope)
		return err
	}))
	g.Go(s.timed("dashboard_pending_permissions", func() (err error) {
		out.PendingPermissionRequests, err = s.permissions.CountPending(gctx, scope)
		return err
	}))
	g.Go(s.timed("dashboard_pending_event_requests", func() (err error) {
		out.PendingEventRequests, err = s.events.CountPendingRequests(gctx, scope)
		return err
	}))
	g.Go(s.timed("dashboard_recent_events", func() (err error) {
		out.RecentEvents, err = s.events.Recent(gctx, collegeID, s.cfg.RecentLimit)
		return err
	}))
	g.Go(s.timed("dashboard_recent_permissions", func() (err error) {
		out.RecentPermissionRequests, err = s.permissions.Recent(gctx, scope, s.cfg.RecentLimit)
		return err
	}))
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
	}
	if out.RecentEvents == nil {
		out.RecentEvents = []models.EventDetail{}
	}
	if out.RecentPermissionRequests == nil {
		out.RecentPermissionRequests = []models.PermissionRequestDetail{}
	}
	return out, nil
}

func (s *DashboardService) timed(label string, fn func() error) func() error {
	return func() error {
		start := time.Now()
		err := fn()
		if s.metrics != nil {
			s.metrics.ObserveDBQuery(label, time.Since(start))
		}
		return err
	}
}

func userInfos(users []models.User) []models.UserInfo {
	out := make([]models.UserInfo, 0, len(users))
	for i := range users {
		out = append(out, models.NewUserInfo(&users[i]))
	}
	return out
}
