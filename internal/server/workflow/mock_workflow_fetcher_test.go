package workflow

import (
	"context"

	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowFetcher is a mock implementation of WorkflowFetcher.
type MockWorkflowFetcher struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, req
func (_m *MockWorkflowFetcher) Fetch(ctx context.Context, req deployment.Request) ([]byte, error) {
	ret := _m.Called(ctx, req)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, deployment.Request) []byte); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, deployment.Request) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
