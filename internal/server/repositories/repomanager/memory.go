package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
)

// InMemoryRepositoryManager keeps everything in process memory. Nothing
// survives a restart.
type InMemoryRepositoryManager struct {
	quota       *quota.MemoryRepository
	credentials *credentials.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		quota:       quota.NewMemoryRepository(),
		credentials: credentials.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Quota() quota.Repository { return m.quota }

func (m *InMemoryRepositoryManager) Credentials() credentials.Repository { return m.credentials }

func (m *InMemoryRepositoryManager) Close() error { return nil }
