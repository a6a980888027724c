// Package ridestore owns the ride and driver collections. All mutation goes
// through Store methods, which validate, apply a lifecycle transition, arm or
// cancel the ride's automatic timer, persist both collections and emit a
// notification.
package ridestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/rapidryde/internal/lifecycle"
	"github.com/example/rapidryde/internal/models"
	"github.com/example/rapidryde/internal/observability"
	"github.com/example/rapidryde/internal/rating"
	"github.com/example/rapidryde/internal/storage"
)

// Notifier receives ride events after the mutation that produced them has
// been applied. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, ev models.RideEvent)
}

type Options struct {
	Clock      lifecycle.Clock
	Delays     lifecycle.Delays
	RidesKey   string
	DriversKey string
	// Seed is the driver roster used when storage has no drivers yet.
	Seed     []models.Driver
	Notifier Notifier
	Logger   *slog.Logger
	// ETA generates the pickup estimate attached on accept.
	ETA func() string
}

type Store struct {
	kv         storage.KV
	clock      lifecycle.Clock
	delays     lifecycle.Delays
	ridesKey   string
	driversKey string
	notifier   Notifier
	logger     *slog.Logger
	eta        func() string
	validate   *validator.Validate
	sched      *lifecycle.Scheduler

	mu      sync.Mutex
	rides   []models.Ride
	drivers []models.Driver
	ids     map[string]struct{}
}

// Open builds a Store and rehydrates it from kv. Unreadable or corrupt
// storage is logged and replaced by an empty ride list and the seed roster.
// Rides found in an automatic status get their timers re-armed.
func Open(ctx context.Context, kv storage.KV, opts Options) *Store {
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if opts.Clock == nil {
		opts.Clock = lifecycle.RealClock()
	}
	if opts.Delays == (lifecycle.Delays{}) {
		opts.Delays = lifecycle.DefaultDelays()
	}
	if opts.RidesKey == "" {
		opts.RidesKey = storage.DefaultRidesKey
	}
	if opts.DriversKey == "" {
		opts.DriversKey = storage.DefaultDriversKey
	}
	if opts.Seed == nil {
		opts.Seed = SeedDrivers()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ETA == nil {
		opts.ETA = lifecycle.RandomETA
	}
	s := &Store{
		kv:         kv,
		clock:      opts.Clock,
		delays:     opts.Delays,
		ridesKey:   opts.RidesKey,
		driversKey: opts.DriversKey,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		eta:        opts.ETA,
		validate:   validator.New(),
		sched:      lifecycle.NewScheduler(opts.Clock),
		ids:        make(map[string]struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers = s.loadDrivers(ctx, opts.Seed)
	s.rides = s.loadRides(ctx)
	for _, r := range s.rides {
		s.ids[r.ID] = struct{}{}
		s.armLocked(r)
	}
	s.updateGaugeLocked()
	return s
}

func (s *Store) loadDrivers(ctx context.Context, seed []models.Driver) []models.Driver {
	raw, ok, err := s.kv.Get(ctx, s.driversKey)
	if err != nil {
		s.logger.Warn("load drivers failed, using seed roster", "key", s.driversKey, "error", err)
	}
	if ok && err == nil {
		drivers, derr := storage.DecodeDrivers(raw)
		if derr == nil {
			return drivers
		}
		s.logger.Warn("stored drivers unreadable, using seed roster", "key", s.driversKey, "error", derr)
	}
	out := make([]models.Driver, len(seed))
	for i, d := range seed {
		out[i] = d.Clone()
	}
	return out
}

func (s *Store) loadRides(ctx context.Context) []models.Ride {
	raw, ok, err := s.kv.Get(ctx, s.ridesKey)
	if err != nil {
		s.logger.Warn("load rides failed, starting empty", "key", s.ridesKey, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	rides, err := storage.DecodeRides(raw)
	if err != nil {
		s.logger.Warn("stored rides unreadable, starting empty", "key", s.ridesKey, "error", err)
		return nil
	}
	return rides
}

// Close cancels every pending automatic transition.
func (s *Store) Close() {
	s.sched.Stop()
}

// Book creates a ride awaiting driver approval.
func (s *Store) Book(ctx context.Context, details models.BookingDetails, user models.User) (models.Ride, error) {
	details = trimDetails(details)
	if err := s.validate.Struct(details); err != nil {
		observability.RejectedOperations.WithLabelValues("book", "validation").Inc()
		return models.Ride{}, validationError(err)
	}
	s.mu.Lock()
	r := s.newRideLocked(details, user, models.StatusPendingApproval)
	s.rides = append(s.rides, r)
	s.persistLocked(ctx)
	s.updateGaugeLocked()
	out := r.Clone()
	s.mu.Unlock()

	observability.RidesBooked.WithLabelValues(string(r.Status)).Inc()
	s.logger.Info("ride booked", "ride_id", r.ID, "user_id", user.ID)
	s.emit(ctx, rideEvent(models.EventBookingRequested, r, s.clock.Now(),
		"Booking Requested", "Waiting for a driver to accept your ride."))
	return out, nil
}

// Schedule creates a ride for a future pickup time.
func (s *Store) Schedule(ctx context.Context, details models.ScheduledBookingDetails, user models.User) (models.Ride, error) {
	details.BookingDetails = trimDetails(details.BookingDetails)
	if err := s.validate.Struct(details); err != nil {
		observability.RejectedOperations.WithLabelValues("schedule", "validation").Inc()
		return models.Ride{}, validationError(err)
	}
	if !details.DateTime.After(s.clock.Now()) {
		observability.RejectedOperations.WithLabelValues("schedule", "validation").Inc()
		return models.Ride{}, fmt.Errorf("%w: scheduled time must be in the future", ErrValidation)
	}
	s.mu.Lock()
	r := s.newRideLocked(details.BookingDetails, user, models.StatusScheduled)
	at := details.DateTime
	r.ScheduledTime = &at
	s.rides = append(s.rides, r)
	s.persistLocked(ctx)
	s.updateGaugeLocked()
	out := r.Clone()
	s.mu.Unlock()

	observability.RidesBooked.WithLabelValues(string(r.Status)).Inc()
	s.logger.Info("ride scheduled", "ride_id", r.ID, "user_id", user.ID, "scheduled_time", at)
	s.emit(ctx, rideEvent(models.EventRideScheduled, r, s.clock.Now(),
		"Ride Scheduled", fmt.Sprintf("Your ride for %s is confirmed.", at.Format(time.RFC1123))))
	return out, nil
}

// Accept assigns driverID to a ride awaiting approval.
func (s *Store) Accept(ctx context.Context, rideID, driverID string) (models.Ride, error) {
	s.mu.Lock()
	di := s.driverIndexLocked(driverID)
	if di < 0 {
		s.mu.Unlock()
		return s.reject("accept", rideID, fmt.Errorf("%w: %s", ErrDriverNotFound, driverID))
	}
	ri := s.rideIndexLocked(rideID)
	if ri < 0 {
		s.mu.Unlock()
		return s.reject("accept", rideID, fmt.Errorf("%w: %s", ErrRideNotFound, rideID))
	}
	cur := s.rides[ri]
	next, ok := lifecycle.Accept(cur, s.drivers[di], s.eta())
	if !ok {
		s.mu.Unlock()
		return s.rejectTransition("accept", cur)
	}
	s.applyLocked(ctx, ri, next)
	s.mu.Unlock()

	s.emit(ctx, rideEvent(models.EventRideAccepted, next, s.clock.Now(),
		"Ride Accepted!", fmt.Sprintf("%s will pick you up.", next.Driver.Name)))
	return next.Clone(), nil
}

// Complete finishes a ride that is in progress.
func (s *Store) Complete(ctx context.Context, rideID string) (models.Ride, error) {
	return s.transition(ctx, "complete", rideID, lifecycle.Complete, models.EventRideCompleted,
		"Ride Completed!", "The driver has marked the ride as completed.")
}

// Cancel cancels any ride that is not completed or already cancelled.
func (s *Store) Cancel(ctx context.Context, rideID string) (models.Ride, error) {
	return s.transition(ctx, "cancel", rideID, lifecycle.Cancel, models.EventRideCancelled,
		"Ride Cancelled", "The ride has been cancelled.")
}

func (s *Store) transition(ctx context.Context, op, rideID string, fn func(models.Ride) (models.Ride, bool),
	evType models.EventType, title, msg string) (models.Ride, error) {
	s.mu.Lock()
	ri := s.rideIndexLocked(rideID)
	if ri < 0 {
		s.mu.Unlock()
		return s.reject(op, rideID, fmt.Errorf("%w: %s", ErrRideNotFound, rideID))
	}
	cur := s.rides[ri]
	next, ok := fn(cur)
	if !ok {
		s.mu.Unlock()
		return s.rejectTransition(op, cur)
	}
	s.applyLocked(ctx, ri, next)
	s.mu.Unlock()

	s.emit(ctx, rideEvent(evType, next, s.clock.Now(), title, msg))
	return next.Clone(), nil
}

// SubmitRating records userID's rating of driverID for a completed ride and
// refreshes the driver's average and tier. Rating the same ride again
// overwrites the earlier value.
func (s *Store) SubmitRating(ctx context.Context, rideID, driverID, userID string, value int) (models.Driver, error) {
	req := ratingRequest{RideID: rideID, DriverID: driverID, UserID: userID, Value: value}
	if err := s.validate.Struct(req); err != nil {
		observability.RejectedOperations.WithLabelValues("rate", "validation").Inc()
		return models.Driver{}, validationError(err)
	}
	s.mu.Lock()
	di := s.driverIndexLocked(driverID)
	if di < 0 {
		s.mu.Unlock()
		_, err := s.reject("rate", rideID, fmt.Errorf("%w: %s", ErrDriverNotFound, driverID))
		return models.Driver{}, err
	}
	ri := s.rideIndexLocked(rideID)
	if ri < 0 {
		s.mu.Unlock()
		_, err := s.reject("rate", rideID, fmt.Errorf("%w: %s", ErrRideNotFound, rideID))
		return models.Driver{}, err
	}
	if d := s.rides[ri].Driver; d != nil && d.ID != driverID {
		s.mu.Unlock()
		observability.RejectedOperations.WithLabelValues("rate", "validation").Inc()
		return models.Driver{}, fmt.Errorf("%w: ride %s was not driven by %s", ErrValidation, rideID, driverID)
	}
	rated, ok := lifecycle.Rate(s.rides[ri], value)
	if !ok {
		cur := s.rides[ri]
		s.mu.Unlock()
		_, err := s.rejectTransition("rate", cur)
		return models.Driver{}, err
	}
	drv := rating.Apply(s.drivers[di], models.Rating{RideID: rideID, UserID: userID, Rating: value})
	s.drivers = replaceDriver(s.drivers, di, drv)
	s.rides = replaceRide(s.rides, ri, rated)
	s.persistLocked(ctx)
	s.mu.Unlock()

	observability.RatingsSubmitted.Inc()
	s.logger.Info("rating submitted", "ride_id", rideID, "driver_id", driverID, "rating", value,
		"average", drv.AverageRating, "tier", drv.Tier)
	ev := rideEvent(models.EventRatingSubmitted, rated, s.clock.Now(),
		"Rating Submitted", fmt.Sprintf("You rated the driver %d stars.", value))
	ev.DriverID = driverID
	s.emit(ctx, ev)
	return drv.Clone(), nil
}

// onTimer applies the automatic step armed for a ride in status from. The
// step is dropped when the task was replaced or cancelled, or when the ride
// has left from in the meantime.
func (s *Store) onTimer(tok lifecycle.Token, from models.RideStatus) {
	ctx := context.Background()
	s.mu.Lock()
	if !s.sched.Claim(tok) {
		s.mu.Unlock()
		observability.StaleTimersDropped.Inc()
		return
	}
	ri := s.rideIndexLocked(tok.RideID)
	if ri < 0 || s.rides[ri].Status != from {
		s.mu.Unlock()
		observability.StaleTimersDropped.Inc()
		return
	}
	next, ok := lifecycle.Advance(s.rides[ri])
	if !ok {
		s.mu.Unlock()
		return
	}
	s.applyLocked(ctx, ri, next)
	s.mu.Unlock()

	var ev models.RideEvent
	now := s.clock.Now()
	name := "Your driver"
	if next.Driver != nil {
		name = next.Driver.Name
	}
	switch next.Status {
	case models.StatusEnRoutePickup:
		ev = rideEvent(models.EventDriverEnRoute, next, now, "Driver En Route", name+" is coming to pick you up.")
	case models.StatusArrivedPickup:
		ev = rideEvent(models.EventDriverArrived, next, now, "Driver Arrived", name+" has arrived.")
	default:
		ev = rideEvent(models.EventRideStarted, next, now, "Ride Started", "Your trip is now in progress.")
	}
	s.emit(ctx, ev)
}

// applyLocked replaces ride ri with next, re-arms its timer and persists.
func (s *Store) applyLocked(ctx context.Context, ri int, next models.Ride) {
	prev := s.rides[ri].Status
	s.rides = replaceRide(s.rides, ri, next)
	s.armLocked(next)
	s.persistLocked(ctx)
	s.updateGaugeLocked()
	observability.RideTransitionsTotal.WithLabelValues(string(next.Status)).Inc()
	s.logger.Info("ride transition", "ride_id", next.ID, "from", prev, "to", next.Status)
}

// armLocked schedules the automatic step for r, or cancels any pending one
// when r's status only changes on an explicit action.
func (s *Store) armLocked(r models.Ride) {
	delay, ok := s.delays.For(r.Status)
	if !ok {
		s.sched.Cancel(r.ID)
		return
	}
	from := r.Status
	s.sched.Schedule(r.ID, delay, func(tok lifecycle.Token) { s.onTimer(tok, from) })
}

// persistLocked writes both collections. Failures are logged and counted;
// the in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	rides, err := storage.EncodeRides(s.rides)
	if err == nil {
		err = s.kv.Set(ctx, s.ridesKey, rides)
	}
	if err != nil {
		observability.PersistErrors.Inc()
		s.logger.Warn("persist rides failed", "key", s.ridesKey, "error", err)
	}
	drivers, err := storage.EncodeDrivers(s.drivers)
	if err == nil {
		err = s.kv.Set(ctx, s.driversKey, drivers)
	}
	if err != nil {
		observability.PersistErrors.Inc()
		s.logger.Warn("persist drivers failed", "key", s.driversKey, "error", err)
	}
}

func (s *Store) newRideLocked(details models.BookingDetails, user models.User, status models.RideStatus) models.Ride {
	now := s.clock.Now()
	id := newRideID(now)
	for {
		if _, dup := s.ids[id]; !dup {
			break
		}
		id = newRideID(now)
	}
	s.ids[id] = struct{}{}
	return models.Ride{
		ID:              id,
		PickupLocation:  details.Pickup,
		DropoffLocation: details.Dropoff,
		Status:          status,
		User:            user,
		BookedAt:        now,
	}
}

func (s *Store) reject(op, rideID string, err error) (models.Ride, error) {
	observability.RejectedOperations.WithLabelValues(op, "not_found").Inc()
	s.logger.Warn("operation rejected", "op", op, "ride_id", rideID, "error", err)
	return models.Ride{}, err
}

func (s *Store) rejectTransition(op string, cur models.Ride) (models.Ride, error) {
	observability.RejectedOperations.WithLabelValues(op, "invalid_transition").Inc()
	s.logger.Info("transition ignored", "op", op, "ride_id", cur.ID, "status", cur.Status)
	return cur.Clone(), fmt.Errorf("%w: cannot %s ride in status %s", ErrInvalidTransition, op, cur.Status)
}

func (s *Store) emit(ctx context.Context, ev models.RideEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, ev)
}

func (s *Store) updateGaugeLocked() {
	n := 0
	for _, r := range s.rides {
		if r.Status.Active() {
			n++
		}
	}
	observability.ActiveRides.Set(float64(n))
}

func (s *Store) rideIndexLocked(id string) int {
	for i := range s.rides {
		if s.rides[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) driverIndexLocked(id string) int {
	for i := range s.drivers {
		if s.drivers[i].ID == id {
			return i
		}
	}
	return -1
}

// replaceRide returns a new collection with element i swapped for r, so a
// snapshot taken before the mutation never observes it.
func replaceRide(rides []models.Ride, i int, r models.Ride) []models.Ride {
	out := make([]models.Ride, len(rides))
	copy(out, rides)
	out[i] = r
	return out
}

func replaceDriver(drivers []models.Driver, i int, d models.Driver) []models.Driver {
	out := make([]models.Driver, len(drivers))
	copy(out, drivers)
	out[i] = d
	return out
}

func rideEvent(t models.EventType, r models.Ride, at time.Time, title, msg string) models.RideEvent {
	ev := models.RideEvent{
		Type:    t,
		RideID:  r.ID,
		Status:  r.Status,
		UserID:  r.User.ID,
		Title:   title,
		Message: msg,
		At:      at,
	}
	if r.Driver != nil {
		ev.DriverID = r.Driver.ID
	}
	return ev
}

func trimDetails(d models.BookingDetails) models.BookingDetails {
	d.Pickup = strings.TrimSpace(d.Pickup)
	d.Dropoff = strings.TrimSpace(d.Dropoff)
	return d
}

func newRideID(now time.Time) string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return fmt.Sprintf("ride-%d-%s", now.UnixMilli(), hex.EncodeToString(b))
}
