// Package lifecycle holds the ride state machine. Transition functions are
// pure: they return the updated ride and whether the transition applied. When
// the precondition is not met the ride comes back unchanged.
package lifecycle

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/example/rapidryde/internal/models"
)

// EnRouteETA is the ETA label shown once the driver is heading to pickup.
const EnRouteETA = "Arriving soon"

// Delays are the waits before each automatic transition fires.
type Delays struct {
	DriverAssigned time.Duration // driver_assigned -> en_route_pickup
	EnRoutePickup  time.Duration // en_route_pickup -> arrived_pickup
	ArrivedPickup  time.Duration // arrived_pickup -> in_progress
}

func DefaultDelays() Delays {
	return Delays{
		DriverAssigned: 4 * time.Second,
		EnRoutePickup:  4 * time.Second,
		ArrivedPickup:  3 * time.Second,
	}
}

// For returns the delay before a ride in status s advances on its own.
// ok is false for statuses that only change on an explicit action.
func (d Delays) For(s models.RideStatus) (time.Duration, bool) {
	switch s {
	case models.StatusDriverAssigned:
		return d.DriverAssigned, true
	case models.StatusEnRoutePickup:
		return d.EnRoutePickup, true
	case models.StatusArrivedPickup:
		return d.ArrivedPickup, true
	}
	return 0, false
}

// RandomETA returns a pickup estimate between 2 and 11 minutes.
func RandomETA() string {
	return fmt.Sprintf("%d mins", rand.Intn(10)+2)
}

// Accept assigns a snapshot of driver to a ride awaiting approval.
func Accept(r models.Ride, driver models.Driver, eta string) (models.Ride, bool) {
	if r.Status != models.StatusPendingApproval {
		return r, false
	}
	out := r.Clone()
	d := driver.Clone()
	d.ETA = eta
	out.Driver = &d
	out.Status = models.StatusDriverAssigned
	return out, true
}

// Advance applies the automatic step for the ride's current status.
func Advance(r models.Ride) (models.Ride, bool) {
	out := r.Clone()
	switch r.Status {
	case models.StatusDriverAssigned:
		out.Status = models.StatusEnRoutePickup
		if out.Driver != nil {
			out.Driver.ETA = EnRouteETA
		}
	case models.StatusEnRoutePickup:
		out.Status = models.StatusArrivedPickup
		if out.Driver != nil {
			out.Driver.ETA = ""
		}
	case models.StatusArrivedPickup:
		out.Status = models.StatusInProgress
	default:
		return r, false
	}
	return out, true
}

// Complete finishes a ride in progress. The driver stays on the ride so it
// can be displayed and rated.
func Complete(r models.Ride) (models.Ride, bool) {
	if r.Status != models.StatusInProgress {
		return r, false
	}
	out := r.Clone()
	out.Status = models.StatusCompleted
	return out, true
}

// Cancel moves any non-terminal ride to cancelled.
func Cancel(r models.Ride) (models.Ride, bool) {
	if r.Status.IsTerminal() {
		return r, false
	}
	out := r.Clone()
	out.Status = models.StatusCancelled
	return out, true
}

// Rate records the rating given for a completed ride. Resubmission overwrites.
func Rate(r models.Ride, value int) (models.Ride, bool) {
	if r.Status != models.StatusCompleted {
		return r, false
	}
	out := r.Clone()
	out.RatingGiven = &value
	return out, true
}
