package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs local runs without
// a database and the tests. Returned values are copies.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	keys  map[string]domain.APIKeyRecord
	cvs   map[uuid.UUID]domain.CV

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: map[string]domain.User{},
		keys:  map[string]domain.APIKeyRecord{},
		cvs:   map[uuid.UUID]domain.CV{},
		now:   time.Now,
	}
}

func keyID(email, provider string) string { return email + "\x00" + provider }

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *u
	cp.CVContent = cloneMap(u.CVContent)
	s.users[u.Email] = cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.CVContent = cloneMap(u.CVContent)
	return &u, nil
}

func (s *MemoryStore) UpdateSettings(_ context.Context, email, provider, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return domain.ErrNotFound
	}
	u.Provider, u.Model, u.UpdatedAt = provider, model, s.now()
	s.users[email] = u
	return nil
}

func (s *MemoryStore) MergePersonalData(_ context.Context, email string, patch model.PersonalDataPatch) (model.PersonalData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return model.PersonalData{}, domain.ErrNotFound
	}
	u.PersonalData = u.PersonalData.Apply(patch)
	u.UpdatedAt = s.now()
	s.users[email] = u
	return u.PersonalData, nil
}

func (s *MemoryStore) UpdateCVContent(_ context.Context, email string, content map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return domain.ErrNotFound
	}
	u.CVContent = cloneMap(content)
	u.UpdatedAt = s.now()
	s.users[email] = u
	return nil
}

func (s *MemoryStore) UpsertAPIKey(_ context.Context, rec *domain.APIKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	k := keyID(rec.UserEmail, rec.Provider)
	cp := *rec
	if old, ok := s.keys[k]; ok {
		cp.CreatedAt = old.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.keys[k] = cp
	return nil
}

func (s *MemoryStore) GetAPIKey(_ context.Context, email, provider string) (*domain.APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.keys[keyID(email, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) DeleteAPIKey(_ context.Context, email, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyID(email, provider)
	if _, ok := s.keys[k]; !ok {
		return domain.ErrNotFound
	}
	delete(s.keys, k)
	return nil
}

func (s *MemoryStore) InsertCV(_ context.Context, cv *domain.CV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cvs[cv.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.cvs[cv.ID] = cloneCV(*cv)
	return nil
}

func (s *MemoryStore) GetCV(_ context.Context, id uuid.UUID) (*domain.CV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cv, ok := s.cvs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := cloneCV(cv)
	return &cp, nil
}

func (s *MemoryStore) ListCVs(_ context.Context, owner string) ([]domain.CV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.CV{}
	for _, cv := range s.cvs {
		if cv.UserEmail == owner {
			out = append(out, cloneCV(cv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) TransitionCV(_ context.Context, id uuid.UUID, t domain.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.cvs[id]
	if !ok || cv.Status != t.From {
		return false, nil
	}
	cv.Status = t.To
	if t.Result != nil {
		r := *t.Result
		cv.CVOptimized = &r
	}
	cv.ErrorMessage = t.ErrorMessage
	cv.UpdatedAt = t.At
	s.cvs[id] = cv
	return true, nil
}

func (s *MemoryStore) DeleteCV(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cvs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.cvs, id)
	return nil
}

func (s *MemoryStore) ListStaleCVs(_ context.Context, status domain.Status, before time.Time) ([]domain.CV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CV
	for _, cv := range s.cvs {
		if cv.Status == status && cv.UpdatedAt.Before(before) {
			out = append(out, cloneCV(cv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func cloneCV(cv domain.CV) domain.CV {
	if cv.CVOptimized != nil {
		r := *cv.CVOptimized
		if b, err := json.Marshal(cv.CVOptimized); err == nil {
			var deep model.CVContent
			if json.Unmarshal(b, &deep) == nil {
				r = deep
			}
		}
		cv.CVOptimized = &r
	}
	return cv
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return m
	}
	return out
}
