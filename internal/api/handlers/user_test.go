package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emontalvo/tienda-storefront/internal/api/handlers"
	"github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/services/mocks"
	"github.com/emontalvo/tienda-storefront/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUserHandler_Login(t *testing.T) {

	t.Run("returns a token for valid credentials", func(t *testing.T) {

		// Arrange
		mockService := new(mocks.UserService)
		handler := handlers.NewUserHandler(mockService)

		reqBody := models.LoginRequest{Email: "owner@tienda.local", Password: "correct-horse-battery"}
		result := &models.LoginResponse{
			Token:     "signed.jwt.token",
			ExpiresAt: time.Now().Add(24 * time.Hour),
			User:      &models.User{ID: uuid.New(), Email: "owner@tienda.local", Role: models.RoleOwner},
		}

		mockService.On("Login", mock.Anything, &reqBody).Return(result, nil).Once()

		payload, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload), nil)
		rec := httptest.NewRecorder()

		// Act
		handler.Login().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decodeAPIResponse(t, rec)
		assert.True(t, body.Success)

		data := body.Data.(map[string]any)
		assert.Equal(t, "signed.jwt.token", data["token"])
		mockService.AssertExpectations(t)
	})

	t.Run("returns 401 for bad credentials", func(t *testing.T) {

		// Arrange
		mockService := new(mocks.UserService)
		handler := handlers.NewUserHandler(mockService)

		mockService.On("Login", mock.Anything, mock.Anything).
			Return(nil, errors.UnauthorizedError("Invalid email or password")).Once()

		payload, _ := json.Marshal(models.LoginRequest{Email: "owner@tienda.local", Password: "wrong-password"})
		req := testutils.CreateTestRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload), nil)
		rec := httptest.NewRecorder()

		// Act
		handler.Login().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decodeAPIResponse(t, rec)
		assert.Equal(t, errors.ErrCodeUnauthorized, body.Error.Code)
	})

	t.Run("rejects a short password before hitting the service", func(t *testing.T) {

		// Arrange
		mockService := new(mocks.UserService)
		handler := handlers.NewUserHandler(mockService)

		payload := []byte(`{"email":"owner@tienda.local","password":"short"}`)
		req := testutils.CreateTestRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload), nil)
		rec := httptest.NewRecorder()

		// Act
		handler.Login().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Login")
	})
}

func TestUserHandler_RegisterStaff(t *testing.T) {

	t.Run("registers a staff account", func(t *testing.T) {

		// Arrange
		mockService := new(mocks.UserService)
		handler := handlers.NewUserHandler(mockService)

		reqBody := models.RegisterStaffRequest{
			Name: "Lucia", Email: "lucia@tienda.local", Password: "a-long-password", Role: models.RoleStaff,
		}

		mockService.On("RegisterStaff", mock.Anything, &reqBody).
			Return(&models.User{ID: uuid.New(), Email: "lucia@tienda.local", Role: models.RoleStaff}, nil).Once()

		payload, _ := json.Marshal(reqBody)
		req := testutils.CreateTestRequestWithClaims(http.MethodPost, "/api/v1/admin/users",
			bytes.NewReader(payload), models.RoleOwner, nil)
		rec := httptest.NewRecorder()

		// Act
		handler.RegisterStaff().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {

		// Arrange
		mockService := new(mocks.UserService)
		handler := handlers.NewUserHandler(mockService)

		payload := []byte(`{"name":"Lucia","email":"lucia@tienda.local","password":"a-long-password","role":"superadmin"}`)
		req := testutils.CreateTestRequestWithClaims(http.MethodPost, "/api/v1/admin/users",
			bytes.NewReader(payload), models.RoleOwner, nil)
		rec := httptest.NewRecorder()

		// Act
		handler.RegisterStaff().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RegisterStaff")
	})
}
