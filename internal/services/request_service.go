package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"maintenance-app/internal/models"
	"maintenance-app/internal/repository"
	"maintenance-app/internal/utils"
)

const (
	cacheKeyAllRequests   = "requests:all"
	cacheKeyRequesterMask = "requests:requester:%s"
)

// Notifier delivers lifecycle events to the automation webhook. Delivery is
// best-effort: the outcome is reported, never raised.
type Notifier interface {
	Notify(ctx context.Context, action utils.WebhookAction, data map[string]interface{}) utils.WebhookResult
}

// Cache is the read-cache surface the service needs from redis.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	Del(ctx context.Context, keys ...string)
}

// MutationResult carries the committed record plus a non-fatal notification
// warning. The warning never implies the mutation failed.
type MutationResult struct {
	Request             *models.MaintenanceRequest `json:"request"`
	NotificationWarning string                     `json:"notification_warning,omitempty"`
}

type RequestService interface {
	CreateRequest(ctx context.Context, sess models.Session, draft models.RequestDraft) (*MutationResult, error)
	AcceptRequest(ctx context.Context, sess models.Session, id primitive.ObjectID) (*MutationResult, error)
	UpdateRequest(ctx context.Context, sess models.Session, id primitive.ObjectID, patch models.RequestPatch) (*MutationResult, error)
	ListRequests(ctx context.Context, sess models.Session) ([]models.MaintenanceRequest, error)
	MyRequests(ctx context.Context, sess models.Session) ([]models.MaintenanceRequest, error)
}

type requestService struct {
	repo     repository.RequestRepository
	cache    Cache
	notifier Notifier
}

func NewRequestService(repo repository.RequestRepository, cache Cache, notifier Notifier) RequestService {
	return &requestService{repo: repo, cache: cache, notifier: notifier}
}

// CreateRequest files a new request on behalf of the session user. The route
// surface only offers the form to requesters; the service itself does not
// block other roles from filing.
func (s *requestService) CreateRequest(ctx context.Context, sess models.Session, draft models.RequestDraft) (*MutationResult, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Insert(ctx, sess.UserID, &draft)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, created.RequesterID)
	warning := s.dispatch(ctx, utils.ActionCreateRequest, created, sess)
	return &MutationResult{Request: created, NotificationWarning: warning}, nil
}

// AcceptRequest assigns the calling technician to a request still in "new".
// The status precondition is enforced by the repository's conditional update,
// not by a check here, so two racing accepts cannot both win.
func (s *requestService) AcceptRequest(ctx context.Context, sess models.Session, id primitive.ObjectID) (*MutationResult, error) {
	if sess.Role != models.RoleTechnician {
		return nil, fmt.Errorf("%w: only technicians can accept requests", models.ErrForbidden)
	}

	updated, err := s.repo.AcceptIfNew(ctx, id, repository.TechnicianRef{
		ID:    sess.UserID,
		Name:  sess.FullName,
		Email: sess.Email,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.RequesterID)
	warning := s.dispatch(ctx, utils.ActionAcceptRequest, updated, sess)
	return &MutationResult{Request: updated, NotificationWarning: warning}, nil
}

// UpdateRequest applies a sparse patch of status, team and time duration.
// Managers may update any request; technicians only requests they own or
// requests still in "new". Status can never go back to "new".
func (s *requestService) UpdateRequest(ctx context.Context, sess models.Session, id primitive.ObjectID, patch models.RequestPatch) (*MutationResult, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Status != nil && *patch.Status == models.StatusNew {
		return nil, fmt.Errorf("%w: status cannot be set back to new", models.ErrInvalidTransition)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeUpdate(sess, existing); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateByID(ctx, id, &patch)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.RequesterID)

	action := utils.ActionUpdateRequest
	if patch.Status != nil && patch.Status.IsTerminal() {
		action = utils.ActionCompleteRequest
	}
	warning := s.dispatch(ctx, action, updated, sess)
	return &MutationResult{Request: updated, NotificationWarning: warning}, nil
}

func authorizeUpdate(sess models.Session, request *models.MaintenanceRequest) error {
	switch sess.Role {
	case models.RoleManager:
		return nil
	case models.RoleTechnician:
		if request.AssignedTechnicianID != nil && *request.AssignedTechnicianID == sess.UserID {
			return nil
		}
		if request.Status == models.StatusNew {
			return nil
		}
		return fmt.Errorf("%w: request is assigned to another technician", models.ErrForbidden)
	default:
		return fmt.Errorf("%w: role %s cannot update requests", models.ErrForbidden, sess.Role)
	}
}

func (s *requestService) ListRequests(ctx context.Context, sess models.Session) ([]models.MaintenanceRequest, error) {
	if cached, ok := s.cachedList(ctx, cacheKeyAllRequests); ok {
		return cached, nil
	}

	requests, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s.storeList(ctx, cacheKeyAllRequests, requests)
	return requests, nil
}

func (s *requestService) MyRequests(ctx context.Context, sess models.Session) ([]models.MaintenanceRequest, error) {
	key := fmt.Sprintf(cacheKeyRequesterMask, sess.UserID)
	if cached, ok := s.cachedList(ctx, key); ok {
		return cached, nil
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]models.MaintenanceRequest, 0)
	for _, r := range all {
		if r.RequesterID == sess.UserID {
			mine = append(mine, r)
		}
	}
	s.storeList(ctx, key, mine)
	return mine, nil
}

func (s *requestService) cachedList(ctx context.Context, key string) ([]models.MaintenanceRequest, bool) {
	val, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var requests []models.MaintenanceRequest
	if err := json.Unmarshal([]byte(val), &requests); err != nil {
		return nil, false
	}
	return requests, true
}

func (s *requestService) storeList(ctx context.Context, key string, requests []models.MaintenanceRequest) {
	data, err := json.Marshal(requests)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, string(data), utils.CacheTTL)
}

func (s *requestService) invalidate(ctx context.Context, requesterID string) {
	s.cache.Del(ctx, cacheKeyAllRequests, fmt.Sprintf(cacheKeyRequesterMask, requesterID))
}

// dispatch sends one lifecycle event after the write has committed. A failed
// delivery is logged and returned as a warning; the state change stands.
func (s *requestService) dispatch(ctx context.Context, action utils.WebhookAction, request *models.MaintenanceRequest, sess models.Session) string {
	result := s.notifier.Notify(ctx, action, notificationPayload(request, sess))
	if result.Success {
		return ""
	}
	log.Printf("[WEBHOOK] %s delivery failed: %s", action, result.Error)
	return result.Error
}

// notificationPayload is the full record plus the acting identity. The actor
// fields travel only in the notification, they are never persisted.
func notificationPayload(request *models.MaintenanceRequest, sess models.Session) map[string]interface{} {
	data, err := json.Marshal(request)
	if err != nil {
		return map[string]interface{}{"actor_email": sess.Email, "actor_name": sess.FullName}
	}
	payload := make(map[string]interface{})
	_ = json.Unmarshal(data, &payload)
	payload["actor_email"] = sess.Email
	payload["actor_name"] = sess.FullName
	return payload
}
