// test/mock/directory.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDirectory is a mock implementation of directory.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) IsMember(ctx context.Context, subjectID, groupID string) (bool, error) {
	args := m.Called(ctx, subjectID, groupID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) HasRole(ctx context.Context, subjectID, roleID string) (bool, error) {
	args := m.Called(ctx, subjectID, roleID)
	return args.Bool(0), args.Error(1)
}
