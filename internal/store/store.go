package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"siteops-backend/internal/models"
)

// Fixed collection keys. Each key holds one whole collection serialized as JSON.
const (
	KeyOperators       = "operators"
	KeyTasks           = "tasks"
	KeyMachines        = "machines"
	KeySiteLocations   = "siteLocations"
	KeySafetyIncidents = "safetyIncidents"
)

// AllKeys lists every collection key managed by the store
var AllKeys = []string{KeyOperators, KeyTasks, KeyMachines, KeySiteLocations, KeySafetyIncidents}

// ErrNotFound is returned by backends for a missing key and by the store for
// a missing entity.
var ErrNotFound = errors.New("not found")

// Backend is a key-value slot holding serialized collections
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes whole entity collections. There are no partial
// updates: every mutation re-serializes the entire collection.
type Store struct {
	backend Backend
	mu      sync.Mutex
	now     func() time.Time
}

func New(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// SetClock overrides the time source used for update stamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// load reads a collection, falling back to defaults when the key was never written
func load[T any](ctx context.Context, s *Store, key string, defaults func(time.Time) []T) ([]T, error) {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return defaults(s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// update runs a read-modify-write cycle on one collection under the store lock
func update[T any](ctx context.Context, s *Store, key string, defaults func(time.Time) []T, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := load(ctx, s, key, defaults)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return save(ctx, s, key, items)
}

func (s *Store) Operators(ctx context.Context) ([]models.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s, KeyOperators, DefaultOperators)
}

func (s *Store) SaveOperators(ctx context.Context, operators []models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(ctx, s, KeyOperators, operators)
}

// UpdateOperators applies fn to the operators collection and writes the result back
func (s *Store) UpdateOperators(ctx context.Context, fn func([]models.Operator) ([]models.Operator, error)) error {
	return update(ctx, s, KeyOperators, DefaultOperators, fn)
}

func (s *Store) Machines(ctx context.Context) ([]models.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s, KeyMachines, DefaultMachines)
}

func (s *Store) SaveMachines(ctx context.Context, machines []models.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(ctx, s, KeyMachines, machines)
}

func (s *Store) UpdateMachines(ctx context.Context, fn func([]models.Machine) ([]models.Machine, error)) error {
	return update(ctx, s, KeyMachines, DefaultMachines, fn)
}

func (s *Store) Tasks(ctx context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s, KeyTasks, DefaultTasks)
}

func (s *Store) SaveTasks(ctx context.Context, tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(ctx, s, KeyTasks, tasks)
}

func (s *Store) UpdateTasks(ctx context.Context, fn func([]models.Task) ([]models.Task, error)) error {
	return update(ctx, s, KeyTasks, DefaultTasks, fn)
}

func (s *Store) SiteLocations(ctx context.Context) ([]models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s, KeySiteLocations, DefaultSiteLocations)
}

func (s *Store) SafetyIncidents(ctx context.Context) ([]models.SafetyIncident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s, KeySafetyIncidents, DefaultSafetyIncidents)
}

// Operator returns a single operator by id
func (s *Store) Operator(ctx context.Context, id int) (*models.Operator, error) {
	operators, err := s.Operators(ctx)
	if err != nil {
		return nil, err
	}
	for i := range operators {
		if operators[i].ID == id {
			return &operators[i], nil
		}
	}
	return nil, fmt.Errorf("operator %d: %w", id, ErrNotFound)
}

// OperatorByEmail finds the operator behind a login, matching case-insensitively
func (s *Store) OperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	operators, err := s.Operators(ctx)
	if err != nil {
		return nil, err
	}
	for i := range operators {
		if strings.EqualFold(operators[i].Email, email) {
			return &operators[i], nil
		}
	}
	return nil, fmt.Errorf("operator %s: %w", email, ErrNotFound)
}

// Machine returns a single machine by id
func (s *Store) Machine(ctx context.Context, id int) (*models.Machine, error) {
	machines, err := s.Machines(ctx)
	if err != nil {
		return nil, err
	}
	for i := range machines {
		if machines[i].ID == id {
			return &machines[i], nil
		}
	}
	return nil, fmt.Errorf("machine %d: %w", id, ErrNotFound)
}

// AddOperator appends an operator with the next free id
func (s *Store) AddOperator(ctx context.Context, op models.Operator) (*models.Operator, error) {
	var added models.Operator
	err := s.UpdateOperators(ctx, func(operators []models.Operator) ([]models.Operator, error) {
		next := 1
		for _, existing := range operators {
			if existing.ID >= next {
				next = existing.ID + 1
			}
		}
		op.ID = next
		if op.CurrentLocation != nil {
			op.LastLocationUpdate = s.timestamp()
		}
		added = op
		return append(operators, op), nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateOperatorLocation moves an operator and stamps lastLocationUpdate
func (s *Store) UpdateOperatorLocation(ctx context.Context, id int, location models.Coordinate) (*models.Operator, error) {
	var updated *models.Operator
	err := s.UpdateOperators(ctx, func(operators []models.Operator) ([]models.Operator, error) {
		for i := range operators {
			if operators[i].ID == id {
				loc := location
				operators[i].CurrentLocation = &loc
				operators[i].LastLocationUpdate = s.timestamp()
				op := operators[i]
				updated = &op
				return operators, nil
			}
		}
		return nil, fmt.Errorf("operator %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateMachineLocation moves a machine and stamps lastLocationUpdate
func (s *Store) UpdateMachineLocation(ctx context.Context, id int, location models.Coordinate) (*models.Machine, error) {
	var updated *models.Machine
	err := s.UpdateMachines(ctx, func(machines []models.Machine) ([]models.Machine, error) {
		for i := range machines {
			if machines[i].ID == id {
				loc := location
				machines[i].LocationCoordinates = &loc
				machines[i].LastLocationUpdate = s.timestamp()
				m := machines[i]
				updated = &m
				return machines, nil
			}
		}
		return nil, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetMachineStatus overwrites a machine's status
func (s *Store) SetMachineStatus(ctx context.Context, id int, status models.MachineStatus) (*models.Machine, error) {
	var updated *models.Machine
	err := s.UpdateMachines(ctx, func(machines []models.Machine) ([]models.Machine, error) {
		for i := range machines {
			if machines[i].ID == id {
				machines[i].Status = status
				m := machines[i]
				updated = &m
				return machines, nil
			}
		}
		return nil, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// InitializeDefaults writes the seed collection for every key never written
func (s *Store) InitializeDefaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	seeds := map[string]func() error{
		KeyOperators:       func() error { return save(ctx, s, KeyOperators, DefaultOperators(now)) },
		KeyTasks:           func() error { return save(ctx, s, KeyTasks, DefaultTasks(now)) },
		KeyMachines:        func() error { return save(ctx, s, KeyMachines, DefaultMachines(now)) },
		KeySiteLocations:   func() error { return save(ctx, s, KeySiteLocations, DefaultSiteLocations(now)) },
		KeySafetyIncidents: func() error { return save(ctx, s, KeySafetyIncidents, DefaultSafetyIncidents(now)) },
	}

	for _, key := range AllKeys {
		_, err := s.backend.Get(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to check %s: %w", key, err)
		}
		if err := seeds[key](); err != nil {
			return err
		}
		log.Printf("🌱 Seeded collection: %s", key)
	}
	return nil
}

// Reset deletes every collection and writes the seed data again
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	for _, key := range AllKeys {
		if err := s.backend.Delete(ctx, key); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	s.mu.Unlock()

	log.Println("🗑️  All collections cleared, re-seeding...")
	return s.InitializeDefaults(ctx)
}
