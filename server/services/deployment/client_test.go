package deployment

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestFetchRetriesUntilResponderAppears(t *testing.T) {
	answer, err := msgpack.Marshal(&Response{Found: true, Key: 3, Version: 1, BpmnProcessID: "order-process"})
	require.NoError(t, err)

	req := &MockRequester{}
	isLookup := mock.MatchedBy(func(msg *nats.Msg) bool {
		sent := &Request{}
		return msg.Subject == messages.DeploymentLookup && msgpack.Unmarshal(msg.Data, sent) == nil && sent.Key == 3
	})
	req.On("RequestMsgWithContext", mock.Anything, isLookup).Return(nil, nats.ErrNoResponders).Once()
	req.On("RequestMsgWithContext", mock.Anything, isLookup).Return(&nats.Msg{Data: answer}, nil).Once()

	c := NewClient(req, time.Second)
	b, err := c.Fetch(context.Background(), ByKey(3))
	require.NoError(t, err)
	res, err := DecodeResponse(b)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "order-process", res.BpmnProcessID)
	req.AssertExpectations(t)
}

func TestFetchGivesUpWithoutResponders(t *testing.T) {
	clk := clock.NewMock()
	req := &MockRequester{}
	req.On("RequestMsgWithContext", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { clk.Add(time.Minute) }).
		Return(nil, nats.ErrNoResponders)

	c := NewClient(req, time.Second, WithClock(clk), WithRetryFor(30*time.Second))
	_, err := c.Fetch(context.Background(), LatestByProcessID("order-process"))
	assert.ErrorIs(t, err, errors.ErrLookupUnavailable)
	assert.ErrorIs(t, err, nats.ErrNoResponders)
}

func TestFetchFailsOnEmptyAnswer(t *testing.T) {
	req := &MockRequester{}
	req.On("RequestMsgWithContext", mock.Anything, mock.Anything).Return(&nats.Msg{}, nil).Once()

	_, err := NewClient(req, time.Second).Fetch(context.Background(), ByKey(1))
	assert.ErrorContains(t, err, "responder failed to answer")
}

func TestRequestConstructors(t *testing.T) {
	assert.Equal(t, Request{Key: 7}, ByKey(7))
	assert.Equal(t, Request{BpmnProcessID: "p", Version: 2}, ByProcessIDAndVersion("p", 2))
	assert.Equal(t, Request{BpmnProcessID: "p", Version: -1}, LatestByProcessID("p"))
}
