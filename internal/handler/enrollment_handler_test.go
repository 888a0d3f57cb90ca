package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll_Handler_Success(t *testing.T) {
	var gotKey string
	svc := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, eventID, key string) (*models.Enrollment, error) {
			gotKey = key
			return &models.Enrollment{ID: "enr-1", EventID: eventID, UserID: userID}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/events/evt-1/enrollment", strings.NewReader(`{"idempotency_key":"k1"}`), "frank")
	c.SetParamNames("id")
	c.SetParamValues("evt-1")

	require.NoError(t, middleware.RequireUser(NewEnrollmentHandler(svc).Enroll)(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "k1", gotKey)

	var resp dto.EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "evt-1", resp.EventID)
	assert.Equal(t, "frank", resp.UserID)
}

func TestEnroll_Handler_EmptyBody(t *testing.T) {
	svc := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, eventID, key string) (*models.Enrollment, error) {
			assert.Empty(t, key)
			return &models.Enrollment{ID: "enr-1", EventID: eventID, UserID: userID}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/events/evt-1/enrollment", nil, "frank")
	c.SetParamNames("id")
	c.SetParamValues("evt-1")

	require.NoError(t, middleware.RequireUser(NewEnrollmentHandler(svc).Enroll)(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestEnroll_Handler_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"already enrolled", service.ErrAlreadyEnrolled, http.StatusConflict},
		{"event full", service.ErrEventFull, http.StatusForbidden},
		{"event missing", service.ErrEventNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockEnrollmentService{
				enrollFn: func(ctx context.Context, userID, eventID, key string) (*models.Enrollment, error) {
					return nil, tt.err
				},
			}
			c, _ := newContext(http.MethodPost, "/api/v1/events/evt-1/enrollment", nil, "frank")
			c.SetParamNames("id")
			c.SetParamValues("evt-1")

			err := middleware.RequireUser(NewEnrollmentHandler(svc).Enroll)(c)

			he, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.code, he.Code)
		})
	}
}

func TestCancelEnrollment_Handler(t *testing.T) {
	svc := &mockEnrollmentService{
		cancelFn: func(ctx context.Context, userID, eventID string) error {
			if userID == "ghost" {
				return service.ErrNotEnrolled
			}
			return nil
		},
	}

	c, rec := newContext(http.MethodDelete, "/api/v1/events/evt-1/enrollment", nil, "frank")
	c.SetParamNames("id")
	c.SetParamValues("evt-1")
	require.NoError(t, middleware.RequireUser(NewEnrollmentHandler(svc).Cancel)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newContext(http.MethodDelete, "/api/v1/events/evt-1/enrollment", nil, "ghost")
	c.SetParamNames("id")
	c.SetParamValues("evt-1")
	err := middleware.RequireUser(NewEnrollmentHandler(svc).Cancel)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestListEnrollments_Handler(t *testing.T) {
	svc := &mockEnrollmentService{
		forEventFn: func(ctx context.Context, eventID string) ([]models.Enrollment, error) {
			return []models.Enrollment{{ID: "a", EventID: eventID, UserID: "u1"}, {ID: "b", EventID: eventID, UserID: "u2"}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/events/evt-1/enrollments", nil, "")
	c.SetParamNames("id")
	c.SetParamValues("evt-1")

	require.NoError(t, NewEnrollmentHandler(svc).ListForEvent(c))

	var resp []dto.EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}
