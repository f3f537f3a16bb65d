package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/graph"
)

type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) ReadHandler(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *MockTarget) WriteHandler(name, value string) error {
	args := m.Called(name, value)
	return args.Error(0)
}

func (m *MockTarget) Handlers() []element.HandlerInfo {
	args := m.Called()
	return args.Get(0).([]element.HandlerInfo)
}

func (m *MockTarget) Stats() []graph.ElementStats {
	args := m.Called()
	return args.Get(0).([]graph.ElementStats)
}

func handlerRequest(t *testing.T, method, name, value string) Request {
	t.Helper()
	params, err := json.Marshal(HandlerParams{Handler: name, Value: value})
	assert.NoError(t, err)
	return Request{Method: method, Params: params, ID: 7}
}

func TestHandleWriteErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"missing", fmt.Errorf("x.y: %w", core.ErrHandlerNotFound), ErrCodeHandlerNotFound},
		{"read only", fmt.Errorf("chk.drops: %w", core.ErrHandlerNotWritable), ErrCodeHandlerAccess},
		{"bad value", fmt.Errorf("paint :: Paint: %w", core.ErrConfigInvalid), ErrCodeConfigInvalid},
		{"stopped", core.ErrGraphStopped, ErrCodeGraphStopped},
		{"other", errors.New("disk full"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := new(MockTarget)
			target.On("WriteHandler", "paint.config", "300").Return(tt.err)

			resp := NewHandler(target).Handle(handlerRequest(t, MethodHandlerWrite, "paint.config", "300"))

			if assert.NotNil(t, resp.Error) {
				assert.Equal(t, tt.code, resp.Error.Code)
				assert.Equal(t, tt.err.Error(), resp.Error.Message)
			}
			assert.Equal(t, 7, resp.ID)
			target.AssertExpectations(t)
		})
	}
}

func TestHandleReadPassesValueThrough(t *testing.T) {
	target := new(MockTarget)
	target.On("ReadHandler", "chk.drops").Return("12\n", nil)

	resp := NewHandler(target).Handle(handlerRequest(t, MethodHandlerRead, "chk.drops", ""))

	assert.Nil(t, resp.Error)
	assert.Equal(t, "12\n", resp.Result)
	target.AssertExpectations(t)
}

func TestHandleInvalidParamsNeverReachTarget(t *testing.T) {
	target := new(MockTarget)
	h := NewHandler(target)

	for _, req := range []Request{
		{Method: MethodHandlerRead, ID: 1},
		{Method: MethodHandlerWrite, Params: json.RawMessage(`{"value":"1"}`), ID: 2},
		{Method: MethodHandlerRead, Params: json.RawMessage(`[1,2]`), ID: 3},
	} {
		resp := h.Handle(req)
		if assert.NotNil(t, resp.Error, "request %v", req.ID) {
			assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
		}
	}
	target.AssertNotCalled(t, "ReadHandler", mock.Anything)
	target.AssertNotCalled(t, "WriteHandler", mock.Anything, mock.Anything)
}

func TestHandleStatsWithoutRunner(t *testing.T) {
	target := new(MockTarget)
	target.On("Stats").Return([]graph.ElementStats{{Name: "chk", Class: "CheckIPHeader", Received: 2}})

	resp := NewHandler(target).Handle(Request{Method: MethodGraphStats, ID: "s"})

	res, ok := resp.Result.(StatsResult)
	if assert.True(t, ok) {
		assert.Nil(t, res.Runner)
		assert.Len(t, res.Elements, 1)
		assert.Equal(t, uint64(2), res.Elements[0].Received)
	}
	target.AssertExpectations(t)
}
