package fec

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockTableProvider is a mock of TableProvider interface.
type MockTableProvider struct {
	ctrl     *gomock.Controller
	recorder *MockTableProviderMockRecorder
	isgomock struct{}
}

// MockTableProviderMockRecorder is the mock recorder for MockTableProvider.
type MockTableProviderMockRecorder struct {
	mock *MockTableProvider
}

// NewMockTableProvider creates a new mock instance.
func NewMockTableProvider(ctrl *gomock.Controller) *MockTableProvider {
	mock := &MockTableProvider{ctrl: ctrl}
	mock.recorder = &MockTableProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTableProvider) EXPECT() *MockTableProviderMockRecorder {
	return m.recorder
}

// ShiftTable mocks base method.
func (m *MockTableProvider) ShiftTable(bg BaseGraph, setIndex int) (*ShiftTable, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ShiftTable", bg, setIndex)
	ret0, _ := ret[0].(*ShiftTable)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ShiftTable indicates an expected call of ShiftTable.
func (mr *MockTableProviderMockRecorder) ShiftTable(bg, setIndex any) *MockTableProviderShiftTableCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ShiftTable", reflect.TypeOf((*MockTableProvider)(nil).ShiftTable), bg, setIndex)
	return &MockTableProviderShiftTableCall{Call: call}
}

// MockTableProviderShiftTableCall wrap *gomock.Call
type MockTableProviderShiftTableCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return
func (c *MockTableProviderShiftTableCall) Return(arg0 *ShiftTable, arg1 error) *MockTableProviderShiftTableCall {
	c.Call = c.Call.Return(arg0, arg1)
	return c
}

// Do rewrite *gomock.Call.Do
func (c *MockTableProviderShiftTableCall) Do(f func(BaseGraph, int) (*ShiftTable, error)) *MockTableProviderShiftTableCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn
func (c *MockTableProviderShiftTableCall) DoAndReturn(f func(BaseGraph, int) (*ShiftTable, error)) *MockTableProviderShiftTableCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}
