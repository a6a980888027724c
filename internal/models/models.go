package models

import "time"

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	StatusIdle            RideStatus = "idle" // presentation default, never stored
	StatusSearching       RideStatus = "searching"
	StatusPendingApproval RideStatus = "pending_approval"
	StatusScheduled       RideStatus = "scheduled"
	StatusDriverAssigned  RideStatus = "driver_assigned"
	StatusEnRoutePickup   RideStatus = "en_route_pickup"
	StatusArrivedPickup   RideStatus = "arrived_pickup"
	StatusInProgress      RideStatus = "in_progress"
	StatusCompleted       RideStatus = "completed"
	StatusCancelled       RideStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave the status.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsAutomatic reports whether the status is left by a timer rather than an action.
func (s RideStatus) IsAutomatic() bool {
	switch s {
	case StatusDriverAssigned, StatusEnRoutePickup, StatusArrivedPickup:
		return true
	}
	return false
}

// Active is true for statuses counted as a user's or driver's current ride.
func (s RideStatus) Active() bool {
	return s != StatusIdle && !s.IsTerminal()
}

func (s RideStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusSearching, StatusPendingApproval, StatusScheduled,
		StatusDriverAssigned, StatusEnRoutePickup, StatusArrivedPickup,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type TierName string

const (
	TierUnranked TierName = "Unranked"
	TierBronze   TierName = "Bronze"
	TierSilver   TierName = "Silver"
	TierGold     TierName = "Gold"
	TierPlatinum TierName = "Platinum"
	TierDiamond  TierName = "Diamond"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Rating struct {
	RideID string `json:"rideId"`
	UserID string `json:"userId"`
	Rating int    `json:"rating"` // 1..5
}

type Driver struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	VehicleModel  string   `json:"vehicleModel"`
	LicensePlate  string   `json:"licensePlate"`
	Ratings       []Rating `json:"ratings"`
	AverageRating float64  `json:"averageRating"`
	Tier          TierName `json:"tier"`
	ETA           string   `json:"eta,omitempty"`
}

// Clone returns a copy that shares no slice memory with d.
func (d Driver) Clone() Driver {
	out := d
	out.Ratings = append([]Rating(nil), d.Ratings...)
	return out
}

type Ride struct {
	ID              string     `json:"id"`
	PickupLocation  string     `json:"pickupLocation"`
	DropoffLocation string     `json:"dropoffLocation"`
	ScheduledTime   *time.Time `json:"scheduledTime,omitempty"`
	Status          RideStatus `json:"status"`
	User            User       `json:"user"`
	Driver          *Driver    `json:"driver,omitempty"`
	BookedAt        time.Time  `json:"bookedAt"`
	RatingGiven     *int       `json:"ratingGiven,omitempty"`
}

// Clone returns a deep copy of the ride.
func (r Ride) Clone() Ride {
	out := r
	if r.ScheduledTime != nil {
		t := *r.ScheduledTime
		out.ScheduledTime = &t
	}
	if r.Driver != nil {
		d := r.Driver.Clone()
		out.Driver = &d
	}
	if r.RatingGiven != nil {
		v := *r.RatingGiven
		out.RatingGiven = &v
	}
	return out
}

type BookingDetails struct {
	Pickup  string `json:"pickup" validate:"required"`
	Dropoff string `json:"dropoff" validate:"required"`
}

type ScheduledBookingDetails struct {
	BookingDetails
	DateTime time.Time `json:"dateTime" validate:"required"`
}

// EventType names a notification emitted by the ride store.
type EventType string

const (
	EventBookingRequested EventType = "booking_requested"
	EventRideScheduled    EventType = "ride_scheduled"
	EventRideAccepted     EventType = "ride_accepted"
	EventDriverEnRoute    EventType = "driver_en_route"
	EventDriverArrived    EventType = "driver_arrived"
	EventRideStarted      EventType = "ride_started"
	EventRideCompleted    EventType = "ride_completed"
	EventRideCancelled    EventType = "ride_cancelled"
	EventRatingSubmitted  EventType = "rating_submitted"
)

// RideEvent is a user-facing notification about a ride.
type RideEvent struct {
	Type     EventType  `json:"type"`
	RideID   string     `json:"ride_id"`
	Status   RideStatus `json:"status"`
	UserID   string     `json:"user_id,omitempty"`
	DriverID string     `json:"driver_id,omitempty"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	At       time.Time  `json:"at"`
}
