// Package repotest provides in-memory repositories that mirror the Postgres
// implementations closely enough for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/repository"
)

// Store is an in-memory backing for the repository interfaces, for tests.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*domain.User
	projects map[int64]*domain.Project
	prompts  map[int64]*domain.Prompt
	messages map[int64]*domain.Message
	files    map[int64]*domain.File
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    map[int64]*domain.User{},
		projects: map[int64]*domain.Project{},
		prompts:  map[int64]*domain.Prompt{},
		messages: map[int64]*domain.Message{},
		files:    map[int64]*domain.File{},
	}
}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

// Users returns a UserRepository over the store.
func (m *Store) Users() repository.UserRepository { return memUsers{m} }

// Projects returns a ProjectRepository over the store.
func (m *Store) Projects() repository.ProjectRepository { return memProjects{m} }

// Prompts returns a PromptRepository over the store.
func (m *Store) Prompts() repository.PromptRepository { return memPrompts{m} }

// Messages returns a MessageRepository over the store.
func (m *Store) Messages() repository.MessageRepository { return memMessages{m} }

// Files returns a FileRepository over the store.
func (m *Store) Files() repository.FileRepository { return memFiles{m} }

// FileCount reports how many file records remain.
func (m *Store) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type memUsers struct{ *Store }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	u.ID, u.CreatedAt = r.id(), time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memProjects struct{ *Store }

func (r memProjects) Create(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID, p.CreatedAt = r.id(), time.Now()
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r memProjects) ListByUser(_ context.Context, userID int64) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Project{}
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memProjects) GetForUser(_ context.Context, id, userID int64) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok && p.UserID == userID {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r memProjects) Rename(_ context.Context, id, userID int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok && p.UserID == userID {
		p.Name = name
		return nil
	}
	return repository.ErrNotFound
}

func (r memProjects) Delete(_ context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.projects, id)
	for k, v := range r.prompts {
		if v.ProjectID == id {
			delete(r.prompts, k)
		}
	}
	for k, v := range r.messages {
		if v.ProjectID == id {
			delete(r.messages, k)
		}
	}
	for k, v := range r.files {
		if v.ProjectID == id {
			delete(r.files, k)
		}
	}
	return nil
}

type memPrompts struct{ *Store }

func (r memPrompts) Create(_ context.Context, p *domain.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID, p.CreatedAt = r.id(), time.Now()
	cp := *p
	r.prompts[p.ID] = &cp
	return nil
}

func (r memPrompts) ListByProject(_ context.Context, projectID int64) ([]domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Prompt{}
	for _, p := range r.prompts {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memPrompts) Delete(_ context.Context, id, projectID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prompts[id]; ok && p.ProjectID == projectID {
		delete(r.prompts, id)
		return nil
	}
	return repository.ErrNotFound
}

type memMessages struct{ *Store }

func (r memMessages) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID, m.CreatedAt = r.id(), time.Now()
	cp := *m
	r.messages[m.ID] = &cp
	return nil
}

func (r memMessages) ListRecent(_ context.Context, projectID int64, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Message{}
	for _, m := range r.messages {
		if m.ProjectID == projectID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memFiles struct{ *Store }

func (r memFiles) Create(_ context.Context, f *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID, f.UploadedAt = r.id(), time.Now()
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r memFiles) ListByProject(_ context.Context, projectID int64) ([]domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.File{}
	for _, f := range r.files {
		if f.ProjectID == projectID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memFiles) GetForUser(_ context.Context, id, userID int64) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p, ok := r.projects[f.ProjectID]; !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r memFiles) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.files, id)
	return nil
}
