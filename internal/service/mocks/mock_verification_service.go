package mocks

import (
	"context"
	"io"

	"docverify/internal/model"
	"docverify/internal/receiver"
	"docverify/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Verify(ctx context.Context, in receiver.Upload) (*service.Result, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockVerificationService) Get(ctx context.Context, id string) (*model.VerificationRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationRecord), args.Error(1)
}

func (m *MockVerificationService) Snapshot(ctx context.Context, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
