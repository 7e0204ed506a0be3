// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/watanabekazunori/tonarino/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// NearbySearch provides a mock function with given fields: ctx, req
func (_m *MockClient) NearbySearch(ctx context.Context, req google.NearbySearchRequest) (*google.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for NearbySearch")
	}

	var r0 *google.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, google.NearbySearchRequest) (*google.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// TextSearch provides a mock function with given fields: ctx, query
func (_m *MockClient) TextSearch(ctx context.Context, query string) (*google.SearchResponse, error) {
	ret := _m.Called(ctx, query)

	if len(ret) == 0 {
		panic("no return value specified for TextSearch")
	}

	var r0 *google.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.SearchResponse, error)); ok {
		return rf(ctx, query)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Details provides a mock function with given fields: ctx, placeID, fields
func (_m *MockClient) Details(ctx context.Context, placeID string, fields ...string) (*google.DetailsResponse, error) {
	args := []any{ctx, placeID}
	for _, f := range fields {
		args = append(args, f)
	}
	ret := _m.Called(args...)

	if len(ret) == 0 {
		panic("no return value specified for Details")
	}

	var r0 *google.DetailsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, ...string) (*google.DetailsResponse, error)); ok {
		return rf(ctx, placeID, fields...)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.DetailsResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
