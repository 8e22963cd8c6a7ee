package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"epcsync/internal/domain"
)

// MockRecordRepo is a mock implementation of port.RecordRepository.
type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) Get(ctx context.Context, identity string) (*domain.ProcessingRecord, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingRecord), args.Error(1)
}

func (m *MockRecordRepo) Upsert(ctx context.Context, record *domain.ProcessingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepo) List(ctx context.Context) ([]domain.ProcessingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingRecord), args.Error(1)
}

func (m *MockRecordRepo) DeleteAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
