package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emontalvo/tienda-storefront/internal/config"
	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type UserService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	RegisterStaff(ctx context.Context, req *models.RegisterStaffRequest) (*models.User, error)
	VerifyToken(tokenString string) (*models.Claims, error)
}

type userService struct {
	userRepo repository.UserRepository
	jwtKey   []byte
	logger   *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, cfg *config.Security, logger *slog.Logger) UserService {
	return &userService{userRepo: userRepo, jwtKey: []byte(cfg.JWTKey), logger: logger}
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {

	user, err := s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.UnauthorizedError("Invalid email or password")
		}

		return nil, appErrors.DatabaseError("Failed to load user").WithError(err)
	}

	if !user.Active {
		return nil, appErrors.UnauthorizedError("Account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, appErrors.UnauthorizedError("Invalid email or password")
	}

	expiresAt := time.Now().Add(tokenTTL)

	claims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, appErrors.InternalError("Failed to sign token").WithError(err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("userID", user.ID.String()), slog.String("role", string(user.Role)))

	return &models.LoginResponse{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userService) RegisterStaff(ctx context.Context, req *models.RegisterStaffRequest) (*models.User, error) {

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.InternalError("Failed to hash password").WithError(err)
	}

	user := &models.User{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hash),
		Role:     req.Role,
		Active:   true,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, appErrors.DatabaseError("Failed to create user").WithError(err)
	}

	user.Password = ""

	return user, nil
}

func (s *userService) VerifyToken(tokenString string) (*models.Claims, error) {

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.UnauthorizedError("Invalid or expired token")
	}

	return claims, nil
}
