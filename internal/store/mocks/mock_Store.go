// Package mocks provides test doubles for the run store.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/outreach-cli/internal/model"
	store "github.com/sells-group/outreach-cli/internal/store"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// CreateRun provides a mock function with given fields: ctx, req, batchID, row
func (_m *MockStore) CreateRun(ctx context.Context, req model.RunRequest, batchID string, row int) (*model.Run, error) {
	ret := _m.Called(ctx, req, batchID, row)

	if len(ret) == 0 {
		panic("no return value specified for CreateRun")
	}

	var r0 *model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.RunRequest, string, int) (*model.Run, error)); ok {
		return rf(ctx, req, batchID, row)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Run)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// UpdateRunStatus provides a mock function with given fields: ctx, runID, status
func (_m *MockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	ret := _m.Called(ctx, runID, status)

	if len(ret) == 0 {
		panic("no return value specified for UpdateRunStatus")
	}

	return ret.Error(0)
}

// CompleteRun provides a mock function with given fields: ctx, runID, result, runErr
func (_m *MockStore) CompleteRun(ctx context.Context, runID string, result *model.PipelineResult, runErr string) error {
	ret := _m.Called(ctx, runID, result, runErr)

	if len(ret) == 0 {
		panic("no return value specified for CompleteRun")
	}

	return ret.Error(0)
}

// GetRun provides a mock function with given fields: ctx, runID
func (_m *MockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for GetRun")
	}

	var r0 *model.Run
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Run)
	}
	return r0, ret.Error(1)
}

// ListRuns provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListRuns")
	}

	var r0 []model.Run
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Run)
	}
	return r0, ret.Error(1)
}

// RecordStage provides a mock function with given fields: ctx, runID, outcome
func (_m *MockStore) RecordStage(ctx context.Context, runID string, outcome model.StageOutcome) error {
	ret := _m.Called(ctx, runID, outcome)

	if len(ret) == 0 {
		panic("no return value specified for RecordStage")
	}

	return ret.Error(0)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	return ret.Error(0)
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ store.Store = (*MockStore)(nil)
