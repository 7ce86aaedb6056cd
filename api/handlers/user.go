package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ridepool/ridepool-api/config"
	"github.com/ridepool/ridepool-api/databases"
	"github.com/ridepool/ridepool-api/models"
)

// chatTokenTTL bounds how long a sign-in token can open chat connections
const chatTokenTTL = time.Hour

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	Config config.Config
}

// UserHandler returns a user given a userID
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	zap.S().Debugf("user_id: %v", userID)

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := u.DB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	dbResp.Password = ""

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UserCreateHandler creates a user
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var user models.User
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	if user.Role != "driver" && user.Role != "passenger" {
		config.ErrorStatus("role must be driver or passenger", http.StatusBadRequest, w, fmt.Errorf("invalid role %q", user.Role))
		return
	}
	if user.Role == "driver" && (user.VehicleModel == "" || user.LicensePlate == "" || user.SeatingCapacity < 1) {
		config.ErrorStatus("drivers must register vehicle details", http.StatusBadRequest, w, fmt.Errorf("missing vehicle details"))
		return
	}

	// check if the user already exists
	count, err := u.DB.CountDocuments(context.Background(), bson.M{"$or": []bson.M{
		{"email": user.Email},
		{"username": user.Username},
	}})
	if err != nil {
		config.ErrorStatus("failed to check for existing user", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("email or username already exists", http.StatusConflict, w, fmt.Errorf("duplicate user"))
		return
	}

	// hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	user.Password = string(hashedPassword)
	user.Points = 0
	user.CreatedAt = primitive.NewDateTimeFromTime(time.Now())

	// insert the user
	_, err = u.DB.InsertOne(context.Background(), user)
	if err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)

}

// UserCheckEmailHandler checks if an email exists using POST
func (u User) UserCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var user models.User
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	// check if the user already exists
	existingUser, _ := u.DB.FindOne(context.Background(), bson.M{"email": user.Email})
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// UserSignInHandler verifies a username and password and issues the signed
// token that the chat namespace accepts at connect time
func (u User) UserSignInHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req models.SignInRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := u.DB.FindOne(context.Background(), bson.M{"username": req.Username})
	if err != nil {
		config.ErrorStatus("invalid username or password", http.StatusUnauthorized, w, err)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(dbResp.Password), []byte(req.Password))
	if err != nil {
		config.ErrorStatus("invalid username or password", http.StatusUnauthorized, w, err)
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": dbResp.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(chatTokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(u.Config.ChatJWTSecret))
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.SignInResponse{AccessToken: signed})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
