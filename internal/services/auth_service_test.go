package services_test

import (
	"fmt"
	"testing"
	"time"

	"tokoadmin/internal/models"
	"tokoadmin/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

const testJWTSecret = "test_jwt_secret"

func hashedUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return &models.User{
		ID:       "user-1",
		Username: username,
		Email:    username + "@example.com",
		Name:     "Test User",
		Password: string(hash),
	}
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewAuthService(mockRepo, testJWTSecret, 0)

	user := hashedUser(t, "admin", "password123")

	// Successful login returns a token and the user
	mockRepo.On("GetByUsername", "admin").Return(user, nil).Once()
	token, loggedIn, err := service.LoginUser("admin", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("GetByUsername", "admin").Return(user, nil).Once()
	_, _, err = service.LoginUser("admin", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Unknown username yields the same error as a wrong password
	mockRepo.On("GetByUsername", "ghost").Return(nil, fmt.Errorf("user with username ghost not found")).Once()
	_, _, err = service.LoginUser("ghost", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewAuthService(mockRepo, testJWTSecret, 0)

	user := hashedUser(t, "admin", "password123")
	mockRepo.On("GetByUsername", "admin").Return(user, nil).Once()
	token, _, err := service.LoginUser("admin", "password123")
	assert.NoError(t, err)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Username, claims["username"])

	// Expired token
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredString, err := expired.SignedString([]byte(testJWTSecret))
	assert.NoError(t, err)
	_, err = service.ValidateToken(expiredString)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	// Token signed with a different key
	tampered := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tamperedString, err := tampered.SignedString([]byte("other_secret"))
	assert.NoError(t, err)
	_, err = service.ValidateToken(tamperedString)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	// Garbage token
	_, err = service.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestAuthService_Authenticate(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewAuthService(mockRepo, testJWTSecret, 0)

	user := hashedUser(t, "admin", "password123")
	mockRepo.On("GetByUsername", "admin").Return(user, nil).Once()
	token, _, err := service.LoginUser("admin", "password123")
	assert.NoError(t, err)

	// Token resolves to a live user
	mockRepo.On("GetByID", user.ID).Return(user, nil).Once()
	resolved, err := service.Authenticate(token)
	assert.NoError(t, err)
	assert.Equal(t, user.Username, resolved.Username)
	mockRepo.AssertExpectations(t)

	// Same token fails once the account is gone
	mockRepo.On("GetByID", user.ID).Return(nil, fmt.Errorf("user with ID %s not found", user.ID)).Once()
	_, err = service.Authenticate(token)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	mockRepo.AssertExpectations(t)
}
