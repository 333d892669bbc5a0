package deployment

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"
)

// MockRequester is a mock implementation of Requester.
type MockRequester struct {
	mock.Mock
}

// RequestMsgWithContext provides a mock function with given fields: ctx, msg
func (_m *MockRequester) RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error) {
	ret := _m.Called(ctx, msg)

	var r0 *nats.Msg
	if rf, ok := ret.Get(0).(func(context.Context, *nats.Msg) *nats.Msg); ok {
		r0 = rf(ctx, msg)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*nats.Msg)
	}

	return r0, ret.Error(1)
}
