package ridestore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ratingRequest struct {
	RideID   string `validate:"required"`
	DriverID string `validate:"required"`
	UserID   string `validate:"required"`
	Value    int    `validate:"min=1,max=5"`
}

var fieldNames = map[string]string{
	"Pickup":   "pickup location",
	"Dropoff":  "dropoff location",
	"DateTime": "scheduled time",
	"RideID":   "ride id",
	"DriverID": "driver id",
	"UserID":   "user id",
	"Value":    "rating",
}

// validationError turns validator output into a single user-facing message
// wrapped in ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldNames[fe.Field()]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "min", "max":
			msgs = append(msgs, name+" must be between 1 and 5")
		default:
			msgs = append(msgs, name+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
