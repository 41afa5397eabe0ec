package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"airline/pkg/config"
	"airline/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService interface {
	Login(req models.LoginRequest) (models.AuthResponse, error)
	ParseToken(tokenStr string) (models.User, error)
}

type authService struct {
	operators map[string]config.Operator
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(operators []config.Operator, secret string, ttl time.Duration) AuthService {
	byName := make(map[string]config.Operator, len(operators))
	for _, op := range operators {
		byName[strings.ToLower(op.Username)] = op
	}
	return &authService{
		operators: byName,
		jwtSecret: []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *authService) Login(req models.LoginRequest) (models.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return models.AuthResponse{}, ErrInvalidCredentials
	}

	op, ok := s.operators[strings.ToLower(req.Username)]
	if !ok {
		return models.AuthResponse{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return models.AuthResponse{}, ErrInvalidCredentials
	}

	user := models.User{Username: op.Username, Role: op.Role}
	token, err := s.generateAccessToken(user)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return models.AuthResponse{
		AccessToken: token,
		User:        user,
		ExpiresIn:   int(s.ttl.Seconds()),
	}, nil
}

func (s *authService) ParseToken(tokenStr string) (models.User, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return models.User{}, ErrInvalidToken
	}

	claims := token.Claims.(*jwt.MapClaims)
	username, _ := (*claims)["sub"].(string)
	role, _ := (*claims)["role"].(string)
	if username == "" || role == "" {
		return models.User{}, ErrInvalidToken
	}
	return models.User{Username: username, Role: role}, nil
}

func (s *authService) generateAccessToken(user models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
