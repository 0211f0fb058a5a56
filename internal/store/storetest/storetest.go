// Package storetest provides in-memory store fakes for service and handler
// tests. Every fake supports error injection so failure paths can be driven
// deterministically.
package storetest

import (
	"context"
	"sort"
	"strings"
	"time"

	"habitly/internal/models"
	"habitly/internal/store"
)

type Stores struct {
	Users          *UserStore
	Questionnaires *QuestionnaireStore
	Habits         *HabitStore
	HabitLogs      *HabitLogStore
}

func New() *Stores {
	return &Stores{
		Users:          &UserStore{ByID: map[int]*models.User{}},
		Questionnaires: &QuestionnaireStore{ByID: map[int]*models.QuestionnaireResponse{}},
		Habits:         &HabitStore{ByID: map[int]*models.Habit{}},
		HabitLogs:      &HabitLogStore{ByID: map[int]*models.HabitLog{}},
	}
}

// Bundle adapts the fakes to the wiring type services expect.
func (s *Stores) Bundle() store.Stores {
	return store.Stores{
		Users:          s.Users,
		Questionnaires: s.Questionnaires,
		Habits:         s.Habits,
		HabitLogs:      s.HabitLogs,
	}
}

type UserStore struct {
	ByID      map[int]*models.User
	nextID    int
	CreateErr error
	FindErr   error
	DeleteErr error
}

func (s *UserStore) Create(_ context.Context, u *models.User) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if !u.IsGuest {
		for _, existing := range s.ByID {
			if !existing.IsGuest && strings.EqualFold(existing.Email, u.Email) {
				return store.ErrConflict
			}
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	cp := *u
	s.ByID[u.ID] = &cp
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	for _, u := range s.ByID {
		if !u.IsGuest && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *UserStore) FindByID(_ context.Context, id int) (*models.User, error) {
	u, ok := s.ByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) Delete(_ context.Context, id int) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.ByID, id)
	return nil
}

// Add seeds a user and returns its assigned id.
func (s *UserStore) Add(u models.User) int {
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	s.ByID[u.ID] = &u
	return u.ID
}

type QuestionnaireStore struct {
	ByID      map[int]*models.QuestionnaireResponse
	nextID    int
	CreateErr error
	FindErr   error
	DeleteErr error
}

func (s *QuestionnaireStore) Create(_ context.Context, q *models.QuestionnaireResponse) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextID++
	q.ID = s.nextID
	cp := *q
	s.ByID[q.ID] = &cp
	return nil
}

func (s *QuestionnaireStore) FindByUser(_ context.Context, userID int) ([]models.QuestionnaireResponse, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var out []models.QuestionnaireResponse
	for _, q := range s.ByID {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QuestionnaireStore) DeleteByUser(_ context.Context, userID int) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	for id, q := range s.ByID {
		if q.UserID == userID {
			delete(s.ByID, id)
		}
	}
	return nil
}

func (s *QuestionnaireStore) Add(q models.QuestionnaireResponse) int {
	s.nextID++
	q.ID = s.nextID
	s.ByID[q.ID] = &q
	return q.ID
}

type HabitStore struct {
	ByID      map[int]*models.Habit
	nextID    int
	CreateErr error
	FindErr   error
	DeleteErr error
}

func (s *HabitStore) Create(_ context.Context, h *models.Habit) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextID++
	h.ID = s.nextID
	cp := *h
	s.ByID[h.ID] = &cp
	return nil
}

func (s *HabitStore) FindByUser(_ context.Context, userID int) ([]models.Habit, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var out []models.Habit
	for _, h := range s.ByID {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *HabitStore) DeleteByUser(_ context.Context, userID int) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	for id, h := range s.ByID {
		if h.UserID == userID {
			delete(s.ByID, id)
		}
	}
	return nil
}

func (s *HabitStore) Add(h models.Habit) int {
	s.nextID++
	h.ID = s.nextID
	s.ByID[h.ID] = &h
	return h.ID
}

type HabitLogStore struct {
	ByID      map[int]*models.HabitLog
	nextID    int
	CreateErr error
	FindErr   error
	DeleteErr error
}

func (s *HabitLogStore) Create(_ context.Context, l *models.HabitLog) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextID++
	l.ID = s.nextID
	cp := *l
	s.ByID[l.ID] = &cp
	return nil
}

func (s *HabitLogStore) FindByUser(_ context.Context, userID int) ([]models.HabitLog, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var out []models.HabitLog
	for _, l := range s.ByID {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *HabitLogStore) DeleteByUser(_ context.Context, userID int) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	for id, l := range s.ByID {
		if l.UserID == userID {
			delete(s.ByID, id)
		}
	}
	return nil
}

func (s *HabitLogStore) Add(l models.HabitLog) int {
	s.nextID++
	l.ID = s.nextID
	s.ByID[l.ID] = &l
	return l.ID
}
