package templates

import (
	"fmt"
	"time"
)

// RenderRideReminderEmail generates the HTML for the departure reminder sent
// to a ride's driver and confirmed passengers the day before departure
func RenderRideReminderEmail(username, origin, destination string, departure time.Time) string {
	body := fmt.Sprintf(`Hi %s,

Your ride from %s to %s departs on %s.

Open the app to review the passenger list or message the group in the ride chat room.

If your plans changed, please cancel the ride or your seat as early as possible so others can take it.`,
		username, origin, destination, departure.Format("Monday, Jan 2 at 3:04 PM MST"))

	return RenderGenericEmail("Your ride departs tomorrow", body)
}

// RenderRideCancelledEmail generates the HTML for the notice sent to
// passengers when a driver cancels a ride
func RenderRideCancelledEmail(username, origin, destination string) string {
	body := fmt.Sprintf(`Hi %s,

The ride from %s to %s you had a seat on has been cancelled by the driver.

Open the app to find another ride on the same route.`,
		username, origin, destination)

	return RenderGenericEmail("Your ride was cancelled", body)
}
