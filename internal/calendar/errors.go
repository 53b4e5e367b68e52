package calendar

import "errors"

var (
	// ErrInvalidSlotID is returned when a slot string is not "date time".
	ErrInvalidSlotID = errors.New("slot must be in 'date time' form")

	// ErrSlotNotFound is returned when the (date, time) pair is not seeded.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotAlreadyBooked is returned when the slot already has an occupant.
	ErrSlotAlreadyBooked = errors.New("slot already booked")

	// ErrSlotNotBooked is returned by Cancel when the slot is free.
	ErrSlotNotBooked = errors.New("slot is not booked")
)
