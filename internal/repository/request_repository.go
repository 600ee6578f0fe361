package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maintenance-app/internal/models"
)

// TechnicianRef is the assignee triple written when a technician accepts a
// request. The three fields are always set together.
type TechnicianRef struct {
	ID    string
	Name  string
	Email string
}

type RequestRepository interface {
	ListAll(ctx context.Context) ([]models.MaintenanceRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error)
	Insert(ctx context.Context, requesterID string, draft *models.RequestDraft) (*models.MaintenanceRequest, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, patch *models.RequestPatch) (*models.MaintenanceRequest, error)
	AcceptIfNew(ctx context.Context, id primitive.ObjectID, tech TechnicianRef) (*models.MaintenanceRequest, error)
}

type requestRepository struct {
	collection *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) RequestRepository {
	return &requestRepository{collection: db.Collection("maintenance_requests")}
}

func (r *requestRepository) ListAll(ctx context.Context) ([]models.MaintenanceRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	var requests []models.MaintenanceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	return requests, nil
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	var request models.MaintenanceRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	return &request, nil
}

func (r *requestRepository) Insert(ctx context.Context, requesterID string, draft *models.RequestDraft) (*models.MaintenanceRequest, error) {
	now := time.Now().UTC()
	request := &models.MaintenanceRequest{
		ID:                 primitive.NewObjectID(),
		RequesterID:        requesterID,
		EquipmentName:      draft.EquipmentName,
		SerialNumber:       draft.SerialNumber,
		ProblemDescription: draft.ProblemDescription,
		PurchaseDate:       draft.PurchaseDate,
		WarrantyDuration:   draft.WarrantyDuration,
		Location:           draft.Location,
		Status:             models.StatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := r.collection.InsertOne(ctx, request); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	return request, nil
}

func (r *requestRepository) UpdateByID(ctx context.Context, id primitive.ObjectID, patch *models.RequestPatch) (*models.MaintenanceRequest, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.TechnicianTeam != nil {
		set["technician_team"] = *patch.TechnicianTeam
	}
	if patch.TimeDuration != nil {
		set["time_duration"] = *patch.TimeDuration
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.MaintenanceRequest
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	return &updated, nil
}

// AcceptIfNew assigns a technician with a conditional update matching both id
// and the "new" status. Two racing accepts hit the same filter and only one
// matches; the loser gets ErrInvalidTransition, not a silent overwrite.
func (r *requestRepository) AcceptIfNew(ctx context.Context, id primitive.ObjectID, tech TechnicianRef) (*models.MaintenanceRequest, error) {
	filter := bson.M{"_id": id, "status": models.StatusNew}
	update := bson.M{"$set": bson.M{
		"assigned_technician_id":    tech.ID,
		"assigned_technician_name":  tech.Name,
		"assigned_technician_email": tech.Email,
		"status":                    models.StatusInProgress,
		"updated_at":                time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.MaintenanceRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}

	// No match: either the id does not exist or the request already left "new".
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.ErrInvalidTransition
}
