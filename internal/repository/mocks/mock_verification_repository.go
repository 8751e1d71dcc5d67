package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docverify/internal/model"
)

type MockVerificationRepository struct {
	mock.Mock
}

func (m *MockVerificationRepository) Save(ctx context.Context, rec *model.VerificationRecord) (*model.VerificationRecord, bool, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.VerificationRecord), args.Bool(1), args.Error(2)
}

func (m *MockVerificationRepository) FindByID(ctx context.Context, id string) (*model.VerificationRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationRecord), args.Error(1)
}
