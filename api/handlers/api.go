package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ridepool/ridepool-api/api"
	"github.com/ridepool/ridepool-api/api/scheduler"
	"github.com/ridepool/ridepool-api/chat"
	"github.com/ridepool/ridepool-api/config"
	"github.com/ridepool/ridepool-api/databases"
	"github.com/ridepool/ridepool-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Chat      *socketio.Server
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	u := User{DB: databases.NewUserDatabase(a.dbHelper), Config: a.Config}
	rd := Ride{
		DB:  databases.NewRideDatabase(a.dbHelper),
		PDB: databases.NewRidePassengerDatabase(a.dbHelper),
		UDB: databases.NewUserDatabase(a.dbHelper),
	}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// realtime chat namespace
	a.Chat = InitializeChat(
		chat.NewTokenVerifier([]byte(a.Config.ChatJWTSecret)),
		chat.NewRegistry(),
	)
	r.PathPrefix("/socket.io/").Handler(a.Chat)

	// ride event notifications
	r.HandleFunc("/ws/notifications", HandleNotificationsWebSocket)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/signin", http.HandlerFunc(u.UserSignInHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")

	apiCreate.Handle("/ride", api.Middleware(http.HandlerFunc(rd.CreateRideHandler))).Methods("POST")
	apiCreate.Handle("/rides", api.Middleware(http.HandlerFunc(rd.RidesHandler))).Methods("GET")
	apiCreate.Handle("/ride/{ride_id}", api.Middleware(http.HandlerFunc(rd.RideByIDHandler))).Methods("GET")
	apiCreate.Handle("/ride/{ride_id}", api.Middleware(http.HandlerFunc(rd.CancelRideHandler))).Methods("DELETE")
	apiCreate.Handle("/ride/{ride_id}/passengers", api.Middleware(http.HandlerFunc(rd.RidePassengersHandler))).Methods("GET")
	apiCreate.Handle("/ride/{ride_id}/passengers", api.Middleware(http.HandlerFunc(rd.RequestSeatHandler))).Methods("POST")
	apiCreate.Handle("/ride/{ride_id}/passengers/{passenger_id}", api.Middleware(http.HandlerFunc(rd.UpdatePassengerStatusHandler))).Methods("PUT")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("ridepool-api has connected to the database")

	// start the ride lifecycle scheduler
	a.Scheduler = scheduler.NewScheduler(
		databases.NewRideDatabase(a.dbHelper),
		databases.NewRidePassengerDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
	)
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
