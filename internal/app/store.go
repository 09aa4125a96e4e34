package app

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// User is a demo user record
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore is an in-memory user repository shared by every request
type UserStore struct {
	mu    sync.RWMutex
	users map[string]User
	next  int
}

// NewUserStore creates an empty store
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]User)}
}

// Create stores a new user and returns it
func (s *UserStore) Create(name, email string) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	u := User{
		ID:        strconv.Itoa(s.next),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u
}

// Get returns the user with id
func (s *UserStore) Get(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Delete removes the user with id
func (s *UserStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// List returns every user ordered by id
func (s *UserStore) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}
