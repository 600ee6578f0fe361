package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"maintenance-app/internal/models"
	"maintenance-app/internal/repository"
	"maintenance-app/internal/utils"
)

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]models.MaintenanceRequest
	order    []primitive.ObjectID
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[primitive.ObjectID]models.MaintenanceRequest)}
}

func (f *fakeRequestRepo) ListAll(ctx context.Context) ([]models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MaintenanceRequest, 0, len(f.order))
	// newest first
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.requests[f.order[i]])
	}
	return out, nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRequestRepo) Insert(ctx context.Context, requesterID string, draft *models.RequestDraft) (*models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	r := models.MaintenanceRequest{
		ID:                 primitive.NewObjectID(),
		RequesterID:        requesterID,
		EquipmentName:      draft.EquipmentName,
		SerialNumber:       draft.SerialNumber,
		ProblemDescription: draft.ProblemDescription,
		Location:           draft.Location,
		PurchaseDate:       draft.PurchaseDate,
		WarrantyDuration:   draft.WarrantyDuration,
		Status:             models.StatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.requests[r.ID] = r
	f.order = append(f.order, r.ID)
	return &r, nil
}

func (f *fakeRequestRepo) UpdateByID(ctx context.Context, id primitive.ObjectID, patch *models.RequestPatch) (*models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.TechnicianTeam != nil {
		team := *patch.TechnicianTeam
		r.TechnicianTeam = &team
	}
	if patch.TimeDuration != nil {
		duration := *patch.TimeDuration
		r.TimeDuration = &duration
	}
	r.UpdatedAt = time.Now().UTC()
	f.requests[id] = r
	return &r, nil
}

func (f *fakeRequestRepo) AcceptIfNew(ctx context.Context, id primitive.ObjectID, tech repository.TechnicianRef) (*models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if r.Status != models.StatusNew {
		return nil, models.ErrInvalidTransition
	}
	techID, techName, techEmail := tech.ID, tech.Name, tech.Email
	r.AssignedTechnicianID = &techID
	r.AssignedTechnicianName = &techName
	r.AssignedTechnicianEmail = &techEmail
	r.Status = models.StatusInProgress
	r.UpdatedAt = time.Now().UTC()
	f.requests[id] = r
	return &r, nil
}

type notifiedEvent struct {
	Action utils.WebhookAction
	Data   map[string]interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
	fail   bool
}

func (f *fakeNotifier) Notify(ctx context.Context, action utils.WebhookAction, data map[string]interface{}) utils.WebhookResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifiedEvent{Action: action, Data: data})
	if f.fail {
		return utils.WebhookResult{Success: false, Error: "webhook returned status 500"}
	}
	return utils.WebhookResult{Success: true}
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string) (string, bool)            { return "", false }
func (noopCache) Set(ctx context.Context, key, value string, ttl time.Duration) {}
func (noopCache) Del(ctx context.Context, keys ...string)                       {}

func newTestService() (RequestService, *fakeRequestRepo, *fakeNotifier) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	return NewRequestService(repo, noopCache{}, notifier), repo, notifier
}

var (
	requesterSess = models.Session{UserID: "user-1", Email: "user@example.com", FullName: "Plain User", Role: models.RoleUser}
	techSess      = models.Session{UserID: "tech-1", Email: "tech@example.com", FullName: "Terry Tech", Role: models.RoleTechnician}
	tech2Sess     = models.Session{UserID: "tech-2", Email: "tech2@example.com", FullName: "Tina Tech", Role: models.RoleTechnician}
	managerSess   = models.Session{UserID: "mgr-1", Email: "mgr@example.com", FullName: "Mandy Manager", Role: models.RoleManager}
)

func laptopDraft() models.RequestDraft {
	return models.RequestDraft{
		EquipmentName:      models.EquipmentLaptop,
		SerialNumber:       "SN-1",
		ProblemDescription: "won't boot",
		Location:           "Bldg A",
	}
}

func TestCreateRequest(t *testing.T) {
	svc, _, notifier := newTestService()

	result, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	r := result.Request
	if r.Status != models.StatusNew {
		t.Errorf("status = %s, want new", r.Status)
	}
	if r.AssignedTechnicianID != nil {
		t.Errorf("assigned technician = %v, want nil", *r.AssignedTechnicianID)
	}
	if r.RequesterID != requesterSess.UserID {
		t.Errorf("requester = %s, want %s", r.RequesterID, requesterSess.UserID)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.count())
	}
	event := notifier.events[0]
	if event.Action != utils.ActionCreateRequest {
		t.Errorf("action = %s, want create_request", event.Action)
	}
	if event.Data["actor_email"] != requesterSess.Email {
		t.Errorf("actor_email = %v, want %s", event.Data["actor_email"], requesterSess.Email)
	}
	if event.Data["actor_name"] != requesterSess.FullName {
		t.Errorf("actor_name = %v, want %s", event.Data["actor_name"], requesterSess.FullName)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _, notifier := newTestService()

	draft := laptopDraft()
	draft.SerialNumber = ""
	if _, err := svc.CreateRequest(context.Background(), requesterSess, draft); !errors.Is(err, models.ErrValidation) {
		t.Errorf("missing serial: err = %v, want ErrValidation", err)
	}

	draft = laptopDraft()
	draft.EquipmentName = "toaster"
	if _, err := svc.CreateRequest(context.Background(), requesterSess, draft); !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown equipment: err = %v, want ErrValidation", err)
	}

	if notifier.count() != 0 {
		t.Errorf("notifications = %d, want 0 for failed creates", notifier.count())
	}
}

func TestAcceptRequest(t *testing.T) {
	svc, _, notifier := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.AcceptRequest(context.Background(), techSess, created.Request.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	r := result.Request
	if r.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in_progress", r.Status)
	}
	if r.AssignedTechnicianID == nil || *r.AssignedTechnicianID != techSess.UserID {
		t.Errorf("assigned technician = %v, want %s", r.AssignedTechnicianID, techSess.UserID)
	}

	// second accept must lose, not reassign
	if _, err := svc.AcceptRequest(context.Background(), tech2Sess, created.Request.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("second accept: err = %v, want ErrInvalidTransition", err)
	}

	if notifier.count() != 2 { // create + first accept only
		t.Errorf("notifications = %d, want 2", notifier.count())
	}
	if notifier.events[1].Action != utils.ActionAcceptRequest {
		t.Errorf("action = %s, want accept_request", notifier.events[1].Action)
	}
}

func TestAcceptRequestForbiddenRoles(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}

	for _, sess := range []models.Session{requesterSess, managerSess} {
		if _, err := svc.AcceptRequest(context.Background(), sess, created.Request.ID); !errors.Is(err, models.ErrForbidden) {
			t.Errorf("accept as %s: err = %v, want ErrForbidden", sess.Role, err)
		}
	}
}

func TestAcceptRequestNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.AcceptRequest(context.Background(), techSess, primitive.NewObjectID()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAcceptRequestRace(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}
	id := created.Request.ID

	var wg sync.WaitGroup
	results := make([]error, 2)
	sessions := []models.Session{techSess, tech2Sess}
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.AcceptRequest(context.Background(), sessions[i], id)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrInvalidTransition):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("wins = %d, losses = %d, want exactly one of each", wins, losses)
	}
}

func TestUpdateRequestAsManager(t *testing.T) {
	svc, _, notifier := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AcceptRequest(context.Background(), techSess, created.Request.ID); err != nil {
		t.Fatal(err)
	}

	status := models.StatusRepaired
	team := models.TeamMechanical
	duration := "3 hours"
	result, err := svc.UpdateRequest(context.Background(), managerSess, created.Request.ID, models.RequestPatch{
		Status:         &status,
		TechnicianTeam: &team,
		TimeDuration:   &duration,
	})
	if err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}

	r := result.Request
	if r.Status != models.StatusRepaired {
		t.Errorf("status = %s, want repaired", r.Status)
	}
	if r.TechnicianTeam == nil || *r.TechnicianTeam != models.TeamMechanical {
		t.Errorf("team = %v, want mechanical", r.TechnicianTeam)
	}
	if r.TimeDuration == nil || *r.TimeDuration != "3 hours" {
		t.Errorf("time_duration = %v, want 3 hours", r.TimeDuration)
	}

	// terminal status is reported as a completion event
	last := notifier.events[notifier.count()-1]
	if last.Action != utils.ActionCompleteRequest {
		t.Errorf("action = %s, want complete_request", last.Action)
	}
}

func TestUpdateRequestNonTerminalAction(t *testing.T) {
	svc, _, notifier := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}

	team := models.TeamITSupport
	if _, err := svc.UpdateRequest(context.Background(), managerSess, created.Request.ID, models.RequestPatch{TechnicianTeam: &team}); err != nil {
		t.Fatal(err)
	}
	last := notifier.events[notifier.count()-1]
	if last.Action != utils.ActionUpdateRequest {
		t.Errorf("action = %s, want update_request", last.Action)
	}
}

func TestUpdateRequestAuthorization(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}
	id := created.Request.ID
	status := models.StatusInProgress

	// requesters cannot update at all
	if _, err := svc.UpdateRequest(context.Background(), requesterSess, id, models.RequestPatch{Status: &status}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("update as user: err = %v, want ErrForbidden", err)
	}

	// any technician may touch a request still in "new"
	team := models.TeamElectrical
	if _, err := svc.UpdateRequest(context.Background(), techSess, id, models.RequestPatch{TechnicianTeam: &team}); err != nil {
		t.Errorf("technician update on new request: %v", err)
	}

	// once assigned to tech-1, tech-2 is locked out
	if _, err := svc.AcceptRequest(context.Background(), techSess, id); err != nil {
		t.Fatal(err)
	}
	duration := "1 hour"
	if _, err := svc.UpdateRequest(context.Background(), tech2Sess, id, models.RequestPatch{TimeDuration: &duration}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("unassigned technician update: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.UpdateRequest(context.Background(), techSess, id, models.RequestPatch{TimeDuration: &duration}); err != nil {
		t.Errorf("assigned technician update: %v", err)
	}
}

func TestUpdateRequestNeverBackToNew(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AcceptRequest(context.Background(), techSess, created.Request.ID); err != nil {
		t.Fatal(err)
	}

	status := models.StatusNew
	if _, err := svc.UpdateRequest(context.Background(), managerSess, created.Request.ID, models.RequestPatch{Status: &status}); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateRequestEmptyPatch(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateRequest(context.Background(), managerSess, created.Request.ID, models.RequestPatch{}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestNotificationFailureDoesNotFailMutation(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{fail: true}
	svc := NewRequestService(repo, noopCache{}, notifier)

	result, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if result.NotificationWarning == "" {
		t.Error("expected a notification warning")
	}
	if result.Request.Status != models.StatusNew {
		t.Errorf("status = %s, want new", result.Request.Status)
	}
	if notifier.count() != 1 {
		t.Errorf("notifications = %d, want exactly 1 attempt", notifier.count())
	}
}

func TestMyRequestsFiltersByRequester(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.CreateRequest(context.Background(), requesterSess, laptopDraft()); err != nil {
		t.Fatal(err)
	}
	other := models.Session{UserID: "user-2", Email: "other@example.com", FullName: "Other User", Role: models.RoleUser}
	if _, err := svc.CreateRequest(context.Background(), other, laptopDraft()); err != nil {
		t.Fatal(err)
	}

	mine, err := svc.MyRequests(context.Background(), requesterSess)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 {
		t.Fatalf("len = %d, want 1", len(mine))
	}
	if mine[0].RequesterID != requesterSess.UserID {
		t.Errorf("requester = %s, want %s", mine[0].RequesterID, requesterSess.UserID)
	}

	all, err := svc.ListRequests(context.Background(), managerSess)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("len = %d, want 2", len(all))
	}
}
