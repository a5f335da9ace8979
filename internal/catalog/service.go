package catalog

import (
	"context"
	"fmt"
	"strings"
)

// RepositoryPort describes the storage operations used by Service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Medicine, error)
	Insert(ctx context.Context, m Medicine) (Medicine, error)
	Update(ctx context.Context, id int64, m Medicine) (Medicine, error)
	ListActive(ctx context.Context) ([]Medicine, error)
	Search(ctx context.Context, query string) ([]Medicine, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service wraps catalog business rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns a medicine by id.
func (s *Service) Get(ctx context.Context, id int64) (Medicine, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a new catalog entry.
func (s *Service) Create(ctx context.Context, input MedicineInput) (Medicine, error) {
	if err := validateInput(input); err != nil {
		return Medicine{}, err
	}
	m := fromInput(input)
	m.IsActive = true
	if m.UnitOfMeasure == "" {
		m.UnitOfMeasure = m.DosageForm
	}
	return s.repo.Insert(ctx, m)
}

// Update validates and applies edits to an existing entry.
func (s *Service) Update(ctx context.Context, id int64, input MedicineInput) (Medicine, error) {
	if err := validateInput(input); err != nil {
		return Medicine{}, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Medicine{}, err
	}
	m := fromInput(input)
	m.ID = existing.ID
	m.IsActive = existing.IsActive
	m.CreatedAt = existing.CreatedAt
	if m.UnitOfMeasure == "" {
		m.UnitOfMeasure = m.DosageForm
	}
	return s.repo.Update(ctx, id, m)
}

// ListActive returns all active catalog entries.
func (s *Service) ListActive(ctx context.Context) ([]Medicine, error) {
	return s.repo.ListActive(ctx)
}

// Search matches query case-insensitively against name or generic name.
func (s *Service) Search(ctx context.Context, query string) ([]Medicine, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListActive(ctx)
	}
	return s.repo.Search(ctx, query)
}

// Deactivate soft-deletes a catalog entry.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}

func validateInput(input MedicineInput) error {
	required := map[string]string{
		"name":        input.Name,
		"brand":       input.Brand,
		"dosage form": input.DosageForm,
		"strength":    input.Strength,
		"composition": input.GenericName,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s required", ErrValidation, field)
		}
	}
	if input.GSTPercent < 0 {
		return fmt.Errorf("%w: gst percent must not be negative", ErrValidation)
	}
	return nil
}

func fromInput(input MedicineInput) Medicine {
	return Medicine{
		Name:          input.Name,
		GenericName:   input.GenericName,
		Brand:         input.Brand,
		Strength:      input.Strength,
		DosageForm:    input.DosageForm,
		Route:         input.Route,
		Category:      input.Category,
		HSNCode:       input.HSNCode,
		GSTPercent:    input.GSTPercent,
		UnitOfMeasure: input.UnitOfMeasure,
		Description:   input.Description,
	}
}
