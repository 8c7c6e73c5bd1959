package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	"github.com/noah-isme/college-hub-api/internal/workflow"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type achievementRepository interface {
	List(ctx context.Context, filter models.AchievementFilter, scope policy.Scope) ([]models.AchievementDetail, int, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.AchievementDetail, error)
	Create(ctx context.Context, achievement *models.Achievement) error
	Update(ctx context.Context, achievement *models.Achievement) error
	Resolve(ctx context.Context, id string, approval models.Approval) error
	Delete(ctx context.Context, id string) error
}

type studentProfileLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error)
}

// AchievementService runs the achievement upload and approval flow.
type AchievementService struct {
	repo     achievementRepository
	students studentProfileLookup
	deps     ApprovalDeps
}

// NewAchievementService constructs the service.
func NewAchievementService(repo achievementRepository, students studentProfileLookup, deps ApprovalDeps) *AchievementService {
	return &AchievementService{repo: repo, students: students, deps: deps.withDefaults()}
}

// List returns achievements visible to the actor.
func (s *AchievementService) List(ctx context.Context, actor *models.User, filter models.AchievementFilter) ([]models.AchievementDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceAchievements))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list achievements")
	}
	return items, paginate(filter.ListFilter, total), nil
}

// Pending lists achievements awaiting a decision inside the actor's scope. Staff only.
func (s *AchievementService) Pending(ctx context.Context, actor *models.User, filter models.AchievementFilter) ([]models.AchievementDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	if !actor.IsFaculty && actor.Role != models.RoleSuperuser {
		return nil, nil, forbidden("only staff can review pending achievements")
	}
	filter.ListFilter = pendingFilter(filter.ListFilter)
	return s.List(ctx, actor, filter)
}

// Get returns an achievement inside the actor's scope.
func (s *AchievementService) Get(ctx context.Context, actor *models.User, id string) (*models.AchievementDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceAchievements))
	if err != nil {
		return nil, lookupError(err, "achievement")
	}
	return item, nil
}

// Create records an achievement for the acting student in pending state.
func (s *AchievementService) Create(ctx context.Context, actor *models.User, req models.AchievementRequest, evidence *FileUpload, meta RequestMeta) (*models.AchievementDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !policy.Authorize(actor, policy.ActionUploadAchievement, nil) || actor.Role != models.RoleStudent {
		return nil, forbidden("only students can upload achievements")
	}
	profile, err := s.students.FindByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, forbidden("create your student profile before uploading achievements")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	achievement := &models.Achievement{StudentProfileID: profile.ID, Approval: workflow.Pending()}
	if err := s.apply(achievement, req); err != nil {
		return nil, err
	}
	if achievement.EvidenceFile, err = storeUpload(s.deps.Files, FileEvidence, evidence); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, achievement); err != nil {
		discardUpload(s.deps.Files, achievement.EvidenceFile)
		return nil, saveError(err, "create achievement")
	}
	s.deps.hooks().changed(ctx, profile.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionApprovalCreate, "achievement", achievement.ID,
		map[string]interface{}{"title": achievement.Title, "category": achievement.Category}, meta)
	return s.reload(ctx, achievement.ID)
}

// Update lets the owning student edit an achievement while it is still pending.
// A new evidence file replaces the old one.
func (s *AchievementService) Update(ctx context.Context, actor *models.User, id string, req models.AchievementRequest, evidence *FileUpload, meta RequestMeta) (*models.AchievementDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.StudentUserID != actor.ID {
		return nil, forbidden("only the owning student can edit an achievement")
	}
	if current.Status != models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "achievement is already "+string(current.Status))
	}
	achievement := current.Achievement
	if err := s.apply(&achievement, req); err != nil {
		return nil, err
	}
	previous := current.EvidenceFile
	if evidence != nil {
		if achievement.EvidenceFile, err = storeUpload(s.deps.Files, FileEvidence, evidence); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, &achievement); err != nil {
		if evidence != nil {
			discardUpload(s.deps.Files, achievement.EvidenceFile)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "achievement is no longer pending")
		}
		return nil, saveError(err, "update achievement")
	}
	if evidence != nil {
		discardUpload(s.deps.Files, previous)
	}
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionRecordUpdate, "achievement", id,
		map[string]interface{}{"title": achievement.Title}, meta)
	return s.reload(ctx, id)
}

// Delete removes an achievement. Owners may delete while pending; approvers of the
// student's department at any time.
func (s *AchievementService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	owner := current.StudentUserID == actor.ID && current.Status == models.ApprovalPending
	if !owner && !policy.CanApprove(actor, models.CategoryAchievement, achievementTarget(current)) {
		return forbidden("not allowed to delete this achievement")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "achievement")
	}
	discardUpload(s.deps.Files, current.EvidenceFile)
	s.deps.hooks().changed(ctx, current.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionRecordDelete, "achievement", id,
		map[string]interface{}{"title": current.Title, "status": current.Status}, meta)
	return nil
}

// Approve resolves a pending achievement. Out-of-scope ids are NotFound, in-scope
// ids the actor cannot approve are Forbidden, and already resolved ones are Conflict.
func (s *AchievementService) Approve(ctx context.Context, actor *models.User, id string, decision models.ApprovalDecisionRequest, meta RequestMeta) (*models.AchievementDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanApprove(actor, models.CategoryAchievement, achievementTarget(current)) {
		return nil, forbidden("not allowed to approve this achievement")
	}
	if err := s.deps.Validate.Struct(decision); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}
	next, err := workflow.Resolve(current.Approval, decision, actor.ID, s.deps.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Resolve(ctx, id, next); err != nil {
		return nil, resolveError(err, "achievement")
	}
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionApprovalReview, "achievement", id,
		map[string]interface{}{"status": next.Status, "rejection_reason": next.RejectionReason}, meta)
	s.deps.hooks().decided(ctx, models.CategoryAchievement, next, current.CollegeID, current.StudentUserID,
		"Your achievement \""+current.Title+"\"")
	return s.reload(ctx, id)
}

// EvidenceLink returns a signed download link for the evidence file.
func (s *AchievementService) EvidenceLink(ctx context.Context, actor *models.User, id string) (*FileLink, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.deps.Files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage unavailable")
	}
	return s.deps.Files.Link(id, current.EvidenceFile)
}

func (s *AchievementService) apply(achievement *models.Achievement, req models.AchievementRequest) error {
	if err := s.deps.Validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.Category.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown achievement category")
	}
	achieved, err := parseDate(req.DateAchieved, "date_achieved")
	if err != nil {
		return err
	}
	if achieved.After(s.deps.Now()) {
		return appErrors.Clone(appErrors.ErrValidation, "date_achieved cannot be in the future")
	}
	achievement.Title = strings.TrimSpace(req.Title)
	achievement.Description = strings.TrimSpace(req.Description)
	achievement.Category = req.Category
	achievement.DateAchieved = achieved
	return nil
}

func (s *AchievementService) reload(ctx context.Context, id string) (*models.AchievementDetail, error) {
	item, err := s.repo.FindByID(ctx, id, policy.Scope{Kind: policy.ScopeAll})
	if err != nil {
		return nil, lookupError(err, "achievement")
	}
	return item, nil
}

func achievementTarget(a *models.AchievementDetail) *policy.Target {
	return &policy.Target{CollegeID: a.CollegeID, DepartmentID: a.DepartmentID}
}
