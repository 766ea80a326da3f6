package service

import "time"

// Policy holds the business timing rules of the engine.
type Policy struct {
	// DiningDuration is the length of one seating; the whole window must
	// fall inside opening hours.
	DiningDuration time.Duration
	// OccupancyWindow is the half-width of the window around a requested
	// time in which reservations of the same bucket are counted.
	OccupancyWindow time.Duration
	// SuggestionDays is how many following days are searched for an
	// alternative when the requested slot is full.
	SuggestionDays int
	// SafetyHorizon is how far ahead upcoming reservations are protected
	// from walk-ins and early arrivals.
	SafetyHorizon time.Duration
	// EarlyArrival is how early a reservation may check in.
	EarlyArrival time.Duration
	// NoShowGrace is how late an ACTIVE reservation may be before it is
	// marked NOSHOW.
	NoShowGrace time.Duration
	// NotifyTimeout is how long a notified party has to check in before the
	// table is offered to the next party.
	NotifyTimeout time.Duration
	// MaxSeated is the seated duration after which an over-stay alert is
	// raised.
	MaxSeated time.Duration
	// ReminderLead is how long before a reservation its reminder is sent.
	ReminderLead time.Duration
}

// DefaultPolicy returns the reference deployment's rules.
func DefaultPolicy() Policy {
	return Policy{
		DiningDuration:  2 * time.Hour,
		OccupancyWindow: 2 * time.Hour,
		SuggestionDays:  3,
		SafetyHorizon:   2 * time.Hour,
		EarlyArrival:    15 * time.Minute,
		NoShowGrace:     15 * time.Minute,
		NotifyTimeout:   10 * time.Minute,
		MaxSeated:       120 * time.Minute,
		ReminderLead:    time.Hour,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.DiningDuration <= 0 {
		p.DiningDuration = d.DiningDuration
	}
	if p.OccupancyWindow <= 0 {
		p.OccupancyWindow = d.OccupancyWindow
	}
	if p.SuggestionDays <= 0 {
		p.SuggestionDays = d.SuggestionDays
	}
	if p.SafetyHorizon <= 0 {
		p.SafetyHorizon = d.SafetyHorizon
	}
	if p.EarlyArrival <= 0 {
		p.EarlyArrival = d.EarlyArrival
	}
	if p.NoShowGrace <= 0 {
		p.NoShowGrace = d.NoShowGrace
	}
	if p.NotifyTimeout <= 0 {
		p.NotifyTimeout = d.NotifyTimeout
	}
	if p.MaxSeated <= 0 {
		p.MaxSeated = d.MaxSeated
	}
	if p.ReminderLead <= 0 {
		p.ReminderLead = d.ReminderLead
	}
	return p
}
