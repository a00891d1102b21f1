package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/pribylovaa/school-admin/internal/models"
)

// Memory — хранилище в памяти процесса.
type Memory struct {
	mu    sync.RWMutex
	creds models.Credentials
	now   func() time.Time
}

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) AccessToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.creds.Access(m.now()), nil
}

func (m *Memory) RefreshToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.creds.Refresh(m.now()), nil
}

func (m *Memory) SetAccessToken(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds.AccessToken = token
	m.creds.AccessExpiresAt = expiresAt
	return nil
}

func (m *Memory) SetPair(_ context.Context, creds models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = creds
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = models.Credentials{}
	return nil
}
