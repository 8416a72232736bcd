package chore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

var (
	ErrEmptyName        = errors.New("chore name can't be empty")
	ErrInvalidFrequency = errors.New("unknown chore frequency")
	ErrChoreNotFound    = errors.New("chore not found")
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// Advance returns the next due date after from for the given frequency.
// Custom frequencies, and any value that slips past validation, fall back to
// a week explicitly.
func Advance(f Frequency, from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return from.AddDate(0, 0, 30)
	case FrequencyCustom:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 0, 7)
	}
}

type Chore struct {
	ID          uuid.UUID `json:"id"`
	HouseholdID uuid.UUID `json:"household_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Frequency   Frequency `json:"frequency"`
	AssignedTo  uuid.UUID `json:"assigned_to"`
	LastDone    time.Time `json:"last_done"`
	NextDue     time.Time `json:"next_due"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, c *Chore) error
	FindByID(ctx context.Context, id uuid.UUID) (*Chore, error)
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]Chore, error)
	Update(ctx context.Context, c *Chore) error
	// ListOverdue returns chores not yet completed whose due date has passed.
	ListOverdue(ctx context.Context, before time.Time) ([]Chore, error)
	// ResetRecurring flips completed chores whose next cycle has started back
	// to open, returning the chores it reset.
	ResetRecurring(ctx context.Context, before time.Time) ([]Chore, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, householdID uuid.UUID, name, description string, frequency Frequency, assignedTo uuid.UUID) (*Chore, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if !frequency.Valid() {
		return nil, ErrInvalidFrequency
	}

	now := s.now().UTC()
	chore := &Chore{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Name:        name,
		Description: description,
		Frequency:   frequency,
		AssignedTo:  assignedTo,
		LastDone:    now,
		NextDue:     Advance(frequency, now),
		Completed:   false,
		CreatedAt:   now,
	}
	if err := s.repo.Save(ctx, chore); err != nil {
		return nil, err
	}
	return chore, nil
}

func (s *Service) HouseholdChores(ctx context.Context, householdID uuid.UUID) ([]Chore, error) {
	return s.repo.ListByHousehold(ctx, householdID)
}

// Complete marks the chore done and schedules the next occurrence.
func (s *Service) Complete(ctx context.Context, choreID uuid.UUID) (*Chore, error) {
	chore, err := s.repo.FindByID(ctx, choreID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	chore.Completed = true
	chore.LastDone = now
	chore.NextDue = Advance(chore.Frequency, now)

	if err := s.repo.Update(ctx, chore); err != nil {
		return nil, err
	}
	return chore, nil
}
