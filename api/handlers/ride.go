package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ridepool/ridepool-api/config"
	"github.com/ridepool/ridepool-api/databases"
	"github.com/ridepool/ridepool-api/models"
	templates "github.com/ridepool/ridepool-api/templates/html"
)

// Page is the default page number used when the query param is missing
var Page int

// Ride exported for testing purposes
type Ride struct {
	DB  databases.RideDatabase
	PDB databases.RidePassengerDatabase
	UDB databases.UserDatabase
}

// CreateRideHandler creates a ride request and the chat room shared by the
// driver and confirmed passengers
func (rd Ride) CreateRideHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var ride models.RideRequest
	err := json.NewDecoder(r.Body).Decode(&ride)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	if ride.DriverID == "" || ride.Origin == "" || ride.Destination == "" {
		config.ErrorStatus("driverId, origin and destination are required", http.StatusBadRequest, w, fmt.Errorf("missing ride fields"))
		return
	}
	if ride.SeatsAvailable < 1 {
		config.ErrorStatus("seatsAvailable must be at least 1", http.StatusBadRequest, w, fmt.Errorf("invalid seat count"))
		return
	}
	if ride.DepartureTime.Time().Before(time.Now()) {
		config.ErrorStatus("departureTime must be in the future", http.StatusBadRequest, w, fmt.Errorf("departure in the past"))
		return
	}

	ride.ID = primitive.NewObjectID()
	ride.ChatRoom = "ride:" + ride.ID.Hex()
	ride.Status = models.RideStatusOpen
	ride.ReminderSentAt = nil
	ride.CreatedAt = primitive.NewDateTimeFromTime(time.Now())

	_, err = rd.DB.InsertOne(context.Background(), ride)
	if err != nil {
		config.ErrorStatus("failed to insert ride", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(ride)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// RidesHandler returns all rides, optionally filtered by status
func (rd Ride) RidesHandler(w http.ResponseWriter, r *http.Request) {
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", Limit|10, err))
	}
	limit64 := int64(Limit)
	Page = getPage(Page, r)
	skip64 := int64(Page * Limit)

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	dbResp, err := rd.DB.Find(context.Background(), filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get rides", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the data elements inside models.RideRequest
	// exist, if len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.RideRequest{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// RideByIDHandler returns a ride given a rideID
func (rd Ride) RideByIDHandler(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]

	zap.S().Debugf("ride_id: %v", rideID)

	rID, err := primitive.ObjectIDFromHex(rideID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := rd.DB.FindOne(context.Background(), bson.M{"_id": rID})
	if err != nil {
		config.ErrorStatus("failed to get ride by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CancelRideHandler marks a ride cancelled and notifies its pending and
// confirmed passengers
func (rd Ride) CancelRideHandler(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]

	rID, err := primitive.ObjectIDFromHex(rideID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ride, err := rd.DB.FindOne(context.Background(), bson.M{"_id": rID})
	if err != nil {
		config.ErrorStatus("failed to get ride by ID", http.StatusNotFound, w, err)
		return
	}
	if ride.Status == models.RideStatusCancelled || ride.Status == models.RideStatusDeparted {
		config.ErrorStatus("ride can no longer be cancelled", http.StatusConflict, w, fmt.Errorf("ride status is %s", ride.Status))
		return
	}

	_, err = rd.DB.UpdateOne(context.Background(),
		bson.M{"_id": rID},
		bson.M{"$set": bson.M{"status": models.RideStatusCancelled}},
	)
	if err != nil {
		config.ErrorStatus("failed to cancel ride", http.StatusInternalServerError, w, err)
		return
	}

	passengers, err := rd.PDB.Find(context.Background(), bson.M{
		"rideRequestId": rID,
		"status":        bson.M{"$ne": models.PassengerStatusCancelled},
	})
	if err == nil {
		for _, p := range passengers {
			sendNotificationToUser(p.PassengerID, "ride_cancelled", ride)
		}
		rd.sendRideCancelledEmails(ride, passengers)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "cancelled"}`))
}

// sendRideCancelledEmails emails every pending and confirmed passenger of a
// cancelled ride. Failures are logged and skipped; the cancellation already
// happened and the in-app notification is the primary channel.
func (rd Ride) sendRideCancelledEmails(ride *models.RideRequest, passengers []models.RidePassenger) {
	if os.Getenv("SENDGRID_API_KEY") == "" {
		zap.S().Warn("SENDGRID_API_KEY not set, skipping ride cancellation emails")
		return
	}

	for _, p := range passengers {
		pID, err := primitive.ObjectIDFromHex(p.PassengerID)
		if err != nil {
			zap.S().Errorw("invalid passenger id on cancelled ride", "error", err, "rideId", ride.ID.Hex())
			continue
		}
		user, err := rd.UDB.FindOne(context.Background(), bson.M{"_id": pID})
		if err != nil || user.Email == "" {
			zap.S().Warnw("no email for passenger on cancelled ride", "passengerId", p.PassengerID, "rideId", ride.ID.Hex())
			continue
		}

		from := mail.NewEmail("Ridepool", "no-reply@ridepool.app")
		to := mail.NewEmail(user.Username, user.Email)
		htmlContent := templates.RenderRideCancelledEmail(user.Username, ride.Origin, ride.Destination)
		plainText := "The ride from " + ride.Origin + " to " + ride.Destination + " has been cancelled by the driver."
		message := mail.NewSingleEmail(from, "Your ride was cancelled", to, plainText, htmlContent)

		client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
		response, err := client.Send(message)
		if err != nil {
			zap.S().Errorw("failed to send ride cancellation email", "error", err, "rideId", ride.ID.Hex())
			continue
		}
		if response.StatusCode >= 400 {
			zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		}
	}
}

// RequestSeatHandler records a pending seat request and notifies the driver
func (rd Ride) RequestSeatHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	rideID := mux.Vars(r)["ride_id"]

	rID, err := primitive.ObjectIDFromHex(rideID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var passenger models.RidePassenger
	err = json.NewDecoder(r.Body).Decode(&passenger)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if passenger.PassengerID == "" {
		config.ErrorStatus("passengerId is required", http.StatusBadRequest, w, fmt.Errorf("missing passengerId"))
		return
	}

	ride, err := rd.DB.FindOne(context.Background(), bson.M{"_id": rID})
	if err != nil {
		config.ErrorStatus("failed to get ride by ID", http.StatusNotFound, w, err)
		return
	}
	if ride.Status != models.RideStatusOpen {
		config.ErrorStatus("ride is not open for requests", http.StatusConflict, w, fmt.Errorf("ride status is %s", ride.Status))
		return
	}
	if ride.DriverID == passenger.PassengerID {
		config.ErrorStatus("drivers cannot request a seat on their own ride", http.StatusConflict, w, fmt.Errorf("driver seat request"))
		return
	}

	existing, _ := rd.PDB.FindOne(context.Background(), bson.M{
		"rideRequestId": rID,
		"passengerId":   passenger.PassengerID,
		"status":        bson.M{"$ne": models.PassengerStatusCancelled},
	})
	if existing != nil {
		config.ErrorStatus("seat already requested", http.StatusConflict, w, fmt.Errorf("duplicate seat request"))
		return
	}

	passenger.ID = primitive.NewObjectID()
	passenger.RideRequestID = rID
	passenger.Status = models.PassengerStatusPending
	passenger.CreatedAt = primitive.NewDateTimeFromTime(time.Now())

	_, err = rd.PDB.InsertOne(context.Background(), passenger)
	if err != nil {
		config.ErrorStatus("failed to insert seat request", http.StatusInternalServerError, w, err)
		return
	}

	sendNotificationToUser(ride.DriverID, "seat_requested", passenger)

	b, err := json.Marshal(passenger)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// UpdatePassengerStatusHandler confirms or cancels a seat request. Confirming
// the last open seat flips the ride to full; a confirmed passenger cancelling
// on a full ride reopens it.
func (rd Ride) UpdatePassengerStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	rideID := mux.Vars(r)["ride_id"]
	passengerID := mux.Vars(r)["passenger_id"]

	rID, err := primitive.ObjectIDFromHex(rideID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	pID, err := primitive.ObjectIDFromHex(passengerID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	err = json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if body.Status != models.PassengerStatusConfirmed && body.Status != models.PassengerStatusCancelled {
		config.ErrorStatus("status must be confirmed or cancelled", http.StatusBadRequest, w, fmt.Errorf("invalid status %q", body.Status))
		return
	}

	ride, err := rd.DB.FindOne(context.Background(), bson.M{"_id": rID})
	if err != nil {
		config.ErrorStatus("failed to get ride by ID", http.StatusNotFound, w, err)
		return
	}

	passenger, err := rd.PDB.FindOne(context.Background(), bson.M{"_id": pID, "rideRequestId": rID})
	if err != nil {
		config.ErrorStatus("failed to get seat request", http.StatusNotFound, w, err)
		return
	}

	if body.Status == models.PassengerStatusConfirmed {
		if ride.Status != models.RideStatusOpen {
			config.ErrorStatus("ride is not open for confirmations", http.StatusConflict, w, fmt.Errorf("ride status is %s", ride.Status))
			return
		}
		confirmed, err := rd.PDB.CountDocuments(context.Background(), bson.M{
			"rideRequestId": rID,
			"status":        models.PassengerStatusConfirmed,
		})
		if err != nil {
			config.ErrorStatus("failed to count confirmed passengers", http.StatusInternalServerError, w, err)
			return
		}
		if confirmed >= int64(ride.SeatsAvailable) {
			config.ErrorStatus("no seats left on this ride", http.StatusConflict, w, fmt.Errorf("ride is full"))
			return
		}

		_, err = rd.PDB.UpdateOne(context.Background(),
			bson.M{"_id": pID},
			bson.M{"$set": bson.M{"status": models.PassengerStatusConfirmed}},
		)
		if err != nil {
			config.ErrorStatus("failed to confirm seat request", http.StatusInternalServerError, w, err)
			return
		}

		if confirmed+1 >= int64(ride.SeatsAvailable) {
			_, err = rd.DB.UpdateOne(context.Background(),
				bson.M{"_id": rID},
				bson.M{"$set": bson.M{"status": models.RideStatusFull}},
			)
			if err != nil {
				config.ErrorStatus("failed to update ride status", http.StatusInternalServerError, w, err)
				return
			}
		}

		sendNotificationToUser(passenger.PassengerID, "seat_confirmed", ride)
	} else {
		_, err = rd.PDB.UpdateOne(context.Background(),
			bson.M{"_id": pID},
			bson.M{"$set": bson.M{"status": models.PassengerStatusCancelled}},
		)
		if err != nil {
			config.ErrorStatus("failed to cancel seat request", http.StatusInternalServerError, w, err)
			return
		}

		if passenger.Status == models.PassengerStatusConfirmed && ride.Status == models.RideStatusFull {
			_, err = rd.DB.UpdateOne(context.Background(),
				bson.M{"_id": rID},
				bson.M{"$set": bson.M{"status": models.RideStatusOpen}},
			)
			if err != nil {
				config.ErrorStatus("failed to update ride status", http.StatusInternalServerError, w, err)
				return
			}
		}

		sendNotificationToUser(passenger.PassengerID, "seat_cancelled", ride)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"status": "%s"}`, body.Status)))
}

// RidePassengersHandler returns every seat request for a ride
func (rd Ride) RidePassengersHandler(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]

	rID, err := primitive.ObjectIDFromHex(rideID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := rd.PDB.Find(context.Background(), bson.M{"rideRequestId": rID})
	if err != nil {
		config.ErrorStatus("failed to get ride passengers", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.RidePassenger{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}
