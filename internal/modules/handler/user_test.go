package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

func TestUserHandler_SyncUser(t *testing.T) {
	user := testUser()

	tests := []struct {
		name     string
		body     interface{}
		setup    func(*MockUserService)
		wantCode int
	}{
		{
			name: "successful sync",
			body: SyncUserReq{Email: "alice@codecraft.dev", FirstName: "Alice"},
			setup: func(s *MockUserService) {
				s.On("Sync", mock.Anything, service.SyncUserInput{
					Subject:   user.Subject,
					Email:     "alice@codecraft.dev",
					FirstName: "Alice",
				}).Return(user, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "invalid email",
			body:     SyncUserReq{Email: "not-an-email"},
			setup:    func(s *MockUserService) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "service error",
			body: SyncUserReq{Email: "alice@codecraft.dev"},
			setup: func(s *MockUserService) {
				s.On("Sync", mock.Anything, mock.Anything).Return(nil, errors.New("database error"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &MockUserService{}
			tt.setup(mockSvc)

			h := NewUserHandler(mockSvc)
			r := gin.New()
			r.POST("/users/sync", withUser(user), h.SyncUser)

			w := doRequest(r, http.MethodPost, "/users/sync", jsonBody(t, tt.body))

			assert.Equal(t, tt.wantCode, w.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Me(t *testing.T) {
	user := &model.User{ID: uuid.New(), Subject: "user_2abc", Email: "alice@codecraft.dev"}

	h := NewUserHandler(&MockUserService{})
	r := gin.New()
	r.GET("/me", withUser(user), h.Me)

	w := doRequest(r, http.MethodGet, "/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@codecraft.dev")
}
