package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/ridepool/ridepool-api/api/handlers"
	"github.com/ridepool/ridepool-api/chat"
	"github.com/ridepool/ridepool-api/config"
	"github.com/ridepool/ridepool-api/databases/mocks"
	"github.com/ridepool/ridepool-api/models"
)

func TestUser_UserHandlerInvalidID(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	u := handlers.User{DB: userDB}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/user/{user_id}", u.UserHandler).Methods("GET")

	req, _ := http.NewRequest("GET", "/api/v1/user/asdf", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get objectID from Hex")
}

func TestUser_UserHandlerNotFound(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).
		Return(nil, errors.New("mongo: no documents in result"))

	u := handlers.User{DB: userDB}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/user/{user_id}", u.UserHandler).Methods("GET")

	req, _ := http.NewRequest("GET", "/api/v1/user/5fc51f36c72ff10004e1d639", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUser_UserHandlerStripsPassword(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.User{Username: "jungmin", Password: "hashed-secret"}, nil)

	u := handlers.User{DB: userDB}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/user/{user_id}", u.UserHandler).Methods("GET")

	req, _ := http.NewRequest("GET", "/api/v1/user/5fc51f36c72ff10004e1d639", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "jungmin")
	assert.NotContains(t, rr.Body.String(), "hashed-secret")
}

func TestUser_UserCreateHandlerInvalidRole(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	u := handlers.User{DB: userDB}

	body, _ := json.Marshal(models.User{Username: "jungmin", Email: "jungmin@example.com", Password: "pw", Role: "pilot"})
	req, _ := http.NewRequest("POST", "/api/v1/user/create-user", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "role must be driver or passenger")
}

func TestUser_UserCreateHandlerDriverNeedsVehicle(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	u := handlers.User{DB: userDB}

	body, _ := json.Marshal(models.User{Username: "jungmin", Email: "jungmin@example.com", Password: "pw", Role: "driver"})
	req, _ := http.NewRequest("POST", "/api/v1/user/create-user", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "vehicle details")
}

func TestUser_UserCreateHandlerDuplicate(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	userDB.On("CountDocuments", mock.Anything, mock.Anything).
		Return(int64(1), nil)

	u := handlers.User{DB: userDB}

	body, _ := json.Marshal(models.User{Username: "jungmin", Email: "jungmin@example.com", Password: "pw", Role: "passenger"})
	req, _ := http.NewRequest("POST", "/api/v1/user/create-user", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUser_UserCreateHandlerCreated(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	userDB.On("CountDocuments", mock.Anything, mock.Anything).
		Return(int64(0), nil)
	userDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(user models.User) bool {
		// password must be hashed and points zeroed before insert
		return user.Password != "pw" && user.Points == 0
	})).Return("mocked-id", nil)

	u := handlers.User{DB: userDB}

	body, _ := json.Marshal(models.User{
		Username: "haeun", Email: "haeun@example.com", Password: "pw", Role: "driver",
		VehicleModel: "Avante", LicensePlate: "12가3456", SeatingCapacity: 3,
	})
	req, _ := http.NewRequest("POST", "/api/v1/user/create-user", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	userDB.AssertExpectations(t)
}

func TestUser_UserSignInHandlerWrongPassword(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.User{Username: "jungmin", Password: string(hashed)}, nil)

	u := handlers.User{DB: userDB, Config: config.Config{ChatJWTSecret: "test-secret"}}

	body, _ := json.Marshal(models.SignInRequest{Username: "jungmin", Password: "wrong"})
	req, _ := http.NewRequest("POST", "/api/v1/user/signin", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserSignInHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUser_UserSignInHandlerIssuesChatToken(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.User{Username: "jungmin", Password: string(hashed)}, nil)

	u := handlers.User{DB: userDB, Config: config.Config{ChatJWTSecret: "test-secret"}}

	body, _ := json.Marshal(models.SignInRequest{Username: "jungmin", Password: "correct"})
	req, _ := http.NewRequest("POST", "/api/v1/user/signin", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserSignInHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.SignInResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)

	// the issued token must open a chat connection
	identity, err := chat.NewTokenVerifier([]byte("test-secret")).Verify(resp.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "jungmin", identity.Username)
}

func TestUser_UserCheckEmailHandlerExists(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.User{Email: "jungmin@example.com"}, nil)

	u := handlers.User{DB: userDB}

	body, _ := json.Marshal(models.User{Email: "jungmin@example.com"})
	req, _ := http.NewRequest("POST", "/api/v1/user/check-user", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCheckEmailHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}
