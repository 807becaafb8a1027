package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConflictService is a mock for conflict.Service
type MockConflictService struct {
	mock.Mock
}

func (m *MockConflictService) GetPending(ctx context.Context, accountID string) ([]domain.SyncConflict, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncConflict), args.Error(1)
}

func (m *MockConflictService) Resolve(ctx context.Context, accountID string, conflictID string, resolution domain.ConflictResolution) (*domain.SyncConflict, error) {
	args := m.Called(ctx, accountID, conflictID, resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncConflict), args.Error(1)
}

func newConflictTestRouter(svc *MockConflictService) *chi.Mux {
	router := chi.NewRouter()
	newConflictHandler(encoder{}, svc).Routes(router)
	return router
}

func TestConflictHandler_ListPending(t *testing.T) {
	svc := new(MockConflictService)
	router := newConflictTestRouter(svc)

	conflicts := []domain.SyncConflict{
		{ID: "cfl-1", AccountID: "acct-1", ItemID: "item-1", ConflictType: domain.ConflictTypeEdit},
	}
	svc.On("GetPending", mock.Anything, "acct-1").Return(conflicts, nil)

	req := withAccount(httptest.NewRequest("GET", "/", nil), "acct-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got []domain.SyncConflict
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "cfl-1", got[0].ID)

	svc.AssertExpectations(t)
}

func TestConflictHandler_Resolve(t *testing.T) {
	svc := new(MockConflictService)
	router := newConflictTestRouter(svc)

	resolution := domain.ResolutionKeepRemote
	now := time.Now().UTC()
	resolved := &domain.SyncConflict{
		ID:           "cfl-1",
		AccountID:    "acct-1",
		ItemID:       "item-1",
		ConflictType: domain.ConflictTypeEdit,
		Resolution:   &resolution,
		ResolvedAt:   &now,
	}
	svc.On("Resolve", mock.Anything, "acct-1", "cfl-1", domain.ResolutionKeepRemote).Return(resolved, nil)

	body, err := json.Marshal(domain.ResolveConflictRequest{Resolution: domain.ResolutionKeepRemote})
	require.NoError(t, err)
	req := withAccount(httptest.NewRequest("POST", "/cfl-1/resolve", bytes.NewReader(body)), "acct-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got domain.SyncConflict
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.NotNil(t, got.Resolution)
	assert.Equal(t, domain.ResolutionKeepRemote, *got.Resolution)

	svc.AssertExpectations(t)
}

func TestConflictHandler_Resolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown conflict", errors.Wrapf(domain.ErrNotFound, "conflict %s not found", "cfl-x"), http.StatusNotFound},
		{"foreign conflict", errors.Wrapf(domain.ErrAuthorization, "conflict %s belongs to another account", "cfl-x"), http.StatusForbidden},
		{"already resolved", errors.Wrapf(domain.ErrInvalidOperation, "conflict %s is already resolved", "cfl-x"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockConflictService)
			router := newConflictTestRouter(svc)
			svc.On("Resolve", mock.Anything, "acct-1", "cfl-x", mock.Anything).Return(nil, tt.err)

			req := withAccount(httptest.NewRequest("POST", "/cfl-x/resolve", bytes.NewReader([]byte(`{"resolution":"KEEP_LOCAL"}`))), "acct-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
