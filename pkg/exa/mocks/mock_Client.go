// Package mocks provides test doubles for the exa client.
package mocks

import (
	"context"
	"encoding/json"

	exa "github.com/sells-group/signal-research/pkg/exa"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, req
func (_m *MockClient) Search(ctx context.Context, req exa.SearchRequest) (*exa.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *exa.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, exa.SearchRequest) (*exa.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, exa.SearchRequest) *exa.SearchResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*exa.SearchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, exa.SearchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Contents provides a mock function with given fields: ctx, req
func (_m *MockClient) Contents(ctx context.Context, req exa.ContentsRequest) (*exa.ContentsResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Contents")
	}

	var r0 *exa.ContentsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, exa.ContentsRequest) (*exa.ContentsResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, exa.ContentsRequest) *exa.ContentsResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*exa.ContentsResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, exa.ContentsRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Proxy provides a mock function with given fields: ctx, endpoint, body
func (_m *MockClient) Proxy(ctx context.Context, endpoint string, body json.RawMessage) (json.RawMessage, error) {
	ret := _m.Called(ctx, endpoint, body)

	if len(ret) == 0 {
		panic("no return value specified for Proxy")
	}

	var r0 json.RawMessage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, json.RawMessage) (json.RawMessage, error)); ok {
		return rf(ctx, endpoint, body)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, json.RawMessage) json.RawMessage); ok {
		r0 = rf(ctx, endpoint, body)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(json.RawMessage)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, json.RawMessage) error); ok {
		r1 = rf(ctx, endpoint, body)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
