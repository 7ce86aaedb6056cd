package scheduler

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridepool/ridepool-api/databases"
	"github.com/ridepool/ridepool-api/logging"
	"github.com/ridepool/ridepool-api/models"
	templates "github.com/ridepool/ridepool-api/templates/html"
)

// reminderWindow is how far ahead of departure the reminder email goes out
const reminderWindow = 24 * time.Hour

// Scheduler handles periodic background jobs for the ride lifecycle
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.SugaredLogger
	DB     databases.RideDatabase
	PDB    databases.RidePassengerDatabase
	UDB    databases.UserDatabase
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	rideDB databases.RideDatabase,
	passengerDB databases.RidePassengerDatabase,
	userDB databases.UserDatabase,
) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logging.New(),
		DB:     rideDB,
		PDB:    passengerDB,
		UDB:    userDB,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Sweep rides past their departure time every 15 minutes
	_, err := s.cron.AddFunc("*/15 * * * *", s.markDepartedRides)
	if err != nil {
		s.logger.Errorw("failed to register departed rides job", "error", err)
	}

	// Send departure reminders hourly
	_, err = s.cron.AddFunc("0 * * * *", s.sendDepartureReminders)
	if err != nil {
		s.logger.Errorw("failed to register reminder job", "error", err)
	}

	s.cron.Start()
	s.logger.Info("ride scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("ride scheduler stopped")
}

// markDepartedRides flips open and full rides whose departure time has passed
// to departed so they stop showing up in searches
func (s *Scheduler) markDepartedRides() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	resp, err := s.DB.UpdateMany(ctx,
		bson.M{
			"status":        bson.M{"$in": []string{models.RideStatusOpen, models.RideStatusFull}},
			"departureTime": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{"status": models.RideStatusDeparted}},
	)
	if err != nil {
		s.logger.Errorw("failed to mark departed rides", "error", err)
		return
	}
	if resp.ModifiedCount > 0 {
		s.logger.Infow("marked rides departed", "count", resp.ModifiedCount)
	}
}

// sendDepartureReminders emails the driver and every confirmed passenger of
// rides departing within the reminder window, once per ride
func (s *Scheduler) sendDepartureReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	rides, err := s.DB.Find(ctx, bson.M{
		"status": bson.M{"$in": []string{models.RideStatusOpen, models.RideStatusFull}},
		"departureTime": bson.M{
			"$gt": primitive.NewDateTimeFromTime(now),
			"$lt": primitive.NewDateTimeFromTime(now.Add(reminderWindow)),
		},
		"reminderSentAt": nil,
	})
	if err != nil {
		s.logger.Errorw("failed to find rides needing reminders", "error", err)
		return
	}

	for _, ride := range rides {
		s.remindRide(ctx, ride)
	}

	if len(rides) > 0 {
		s.logger.Infow("departure reminders processed", "rides", len(rides))
	}
}

func (s *Scheduler) remindRide(ctx context.Context, ride models.RideRequest) {
	recipients := []string{ride.DriverID}

	passengers, err := s.PDB.Find(ctx, bson.M{
		"rideRequestId": ride.ID,
		"status":        models.PassengerStatusConfirmed,
	})
	if err != nil {
		s.logger.Errorw("failed to find confirmed passengers", "error", err, "rideId", ride.ID.Hex())
	} else {
		for _, p := range passengers {
			recipients = append(recipients, p.PassengerID)
		}
	}

	for _, userID := range recipients {
		email, username := s.getUserEmail(ctx, userID)
		if email == "" {
			continue
		}
		htmlContent := templates.RenderRideReminderEmail(username, ride.Origin, ride.Destination, ride.DepartureTime.Time())
		plainText := "Your ride from " + ride.Origin + " to " + ride.Destination + " departs within 24 hours."
		if err := s.sendEmail(email, username, "Your ride departs tomorrow", htmlContent, plainText); err != nil {
			s.logger.Errorw("failed to send departure reminder", "error", err, "rideId", ride.ID.Hex())
		}
	}

	// Mark as reminded even when some sends failed; a second blast is worse
	// than a missed one.
	now := primitive.NewDateTimeFromTime(time.Now())
	_, err = s.DB.UpdateOne(ctx, bson.M{"_id": ride.ID}, bson.M{
		"$set": bson.M{"reminderSentAt": now},
	})
	if err != nil {
		s.logger.Errorw("failed to mark ride reminded", "error", err, "rideId", ride.ID.Hex())
	}
}

func (s *Scheduler) sendEmail(toEmail, toName, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("Ridepool", "no-reply@ridepool.app")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		s.logger.Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}

func (s *Scheduler) getUserEmail(ctx context.Context, userID string) (email, name string) {
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", ""
	}
	user, err := s.UDB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil || user.Email == "" {
		return "", ""
	}
	return user.Email, user.Username
}
