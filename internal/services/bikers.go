package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/apperr"
	"foodhub/internal/models"
	"foodhub/internal/store"
)

type BikerService struct {
	bikers store.BikerStore
	now    func() time.Time
}

func NewBikerService(bikers store.BikerStore) *BikerService {
	return &BikerService{bikers: bikers, now: time.Now}
}

type BikerInput struct {
	Name         string `json:"name" binding:"required,max=100"`
	Phone        string `json:"phone" binding:"required,max=20"`
	VehiclePlate string `json:"vehiclePlate" binding:"max=20"`
}

// BikerUpdate changes only the fields that are set.
type BikerUpdate struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	VehiclePlate *string `json:"vehiclePlate"`
	IsActive     *bool   `json:"isActive"`
}

func (s *BikerService) Add(ctx context.Context, in BikerInput) (*models.Biker, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.VehiclePlate = strings.ToUpper(strings.TrimSpace(in.VehiclePlate))
	if err := validate.Struct(in); err != nil {
		return nil, ValidationError(err)
	}

	now := s.now()
	biker := &models.Biker{
		ID:           primitive.NewObjectID(),
		Name:         in.Name,
		Phone:        in.Phone,
		VehiclePlate: in.VehiclePlate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.bikers.CreateBiker(ctx, biker); err != nil {
		return nil, internal("BIKER", "create biker", err)
	}
	log.Println("[BIKER] [INFO] biker added:", biker.ID.Hex())
	return biker, nil
}

func (s *BikerService) Update(ctx context.Context, id string, in BikerUpdate) (*models.Biker, error) {
	biker, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		biker.Name = name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone == "" {
			return nil, apperr.Validation("phone cannot be empty")
		}
		biker.Phone = phone
	}
	if in.VehiclePlate != nil {
		biker.VehiclePlate = strings.ToUpper(strings.TrimSpace(*in.VehiclePlate))
	}
	if in.IsActive != nil {
		biker.IsActive = *in.IsActive
	}
	biker.UpdatedAt = s.now()

	if err := s.replace(ctx, biker); err != nil {
		return nil, err
	}
	return biker, nil
}

// Remove deactivates the biker. Orders keep their reference.
func (s *BikerService) Remove(ctx context.Context, id string) error {
	inactive := false
	_, err := s.Update(ctx, id, BikerUpdate{IsActive: &inactive})
	return err
}

func (s *BikerService) List(ctx context.Context, activeOnly bool) ([]models.Biker, error) {
	bikers, err := s.bikers.ListBikers(ctx, activeOnly)
	if err != nil {
		return nil, internal("BIKER", "list bikers", err)
	}
	if bikers == nil {
		bikers = []models.Biker{}
	}
	return bikers, nil
}

func (s *BikerService) find(ctx context.Context, id string) (*models.Biker, error) {
	oid, err := parseObjectID(id, "biker id")
	if err != nil {
		return nil, err
	}
	biker, err := s.bikers.FindBikerByID(ctx, oid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Biker not found")
	}
	if err != nil {
		return nil, internal("BIKER", "find biker", err)
	}
	return biker, nil
}

func (s *BikerService) replace(ctx context.Context, biker *models.Biker) error {
	err := s.bikers.ReplaceBiker(ctx, biker)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Biker not found")
	}
	if err != nil {
		return internal("BIKER", "update biker", err)
	}
	return nil
}
