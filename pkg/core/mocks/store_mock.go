package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aretw0/notebook/pkg/core"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) FetchAll(ctx context.Context) ([]core.Note, error) {
	args := m.Called(ctx)
	notes, _ := args.Get(0).([]core.Note)
	return notes, args.Error(1)
}

func (m *MockStore) SaveAll(ctx context.Context, notes []core.Note) error {
	args := m.Called(ctx, notes)
	return args.Error(0)
}
