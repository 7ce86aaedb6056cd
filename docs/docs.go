// Package docs Ridepool API.
//
// Documentation of Ridepool API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://api.ridepool.app
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/ridepool/ridepool-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/v1/user/{user_id} user userByID
// Gets a single user by ID.
// responses:
//   200: userByIDResponse

// Shows a single user by the given {ID}
// swagger:response userByIDResponse
type userByIDResponseWrapper struct {
	// in:body
	Body models.User
}

// swagger:route POST /api/v1/user/signin auth signIn
// Verifies a username and password and issues a chat access token.
// responses:
//   200: signInResponse

// Carries the signed token accepted by the chat namespace at connect time.
// swagger:response signInResponse
type signInResponseWrapper struct {
	// in:body
	Body models.SignInResponse
}

// swagger:route GET /api/v1/ride/{ride_id} ride rideByID
// Gets a single ride request by ID.
// responses:
//   200: rideByIDResponse

// Shows a single ride request by the given {ID}
// swagger:response rideByIDResponse
type rideByIDResponseWrapper struct {
	// in:body
	Body models.RideRequest
}

// swagger:route GET /api/v1/rides ride ridesList
// Lists ride requests, optionally filtered by status.
// responses:
//   200: ridesListResponse

// Shows all ride requests matching the filter.
// swagger:response ridesListResponse
type ridesListResponseWrapper struct {
	// in:body
	Body []models.RideRequest
}

// swagger:route POST /api/v1/ride/{ride_id}/passengers ride requestSeat
// Records a pending seat request on a ride.
// responses:
//   201: seatRequestResponse

// Shows the recorded seat request.
// swagger:response seatRequestResponse
type seatRequestResponseWrapper struct {
	// in:body
	Body models.RidePassenger
}
