package metrics

import (
	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
)

// EventCount counts steps that raised an event flag.
type EventCount struct {
	name  string
	flag  climate.Events
	count int
}

func NewEventCount(name string, flag climate.Events) *EventCount {
	return &EventCount{name: name, flag: flag}
}

func NewAftershockCount() *EventCount { return NewEventCount("aftershocks", climate.Aftershock) }

func (c *EventCount) Name() string { return c.name }

func (c *EventCount) Observe(snap record.Snapshot, ev climate.Events) {
	if ev.Has(c.flag) {
		c.count++
	}
}

func (c *EventCount) Value() float64 { return float64(c.count) }

func (c *EventCount) Reset() { c.count = 0 }

// PulseYear records the year the re-entry pulse fired, -1 if it never did.
type PulseYear struct {
	year  float64
	fired bool
}

func NewPulseYear() *PulseYear { return &PulseYear{} }

func (p *PulseYear) Name() string { return "pulse_year" }

func (p *PulseYear) Observe(snap record.Snapshot, ev climate.Events) {
	if !p.fired && ev.Has(climate.PulseFired) {
		p.fired = true
		p.year = snap.Year()
	}
}

func (p *PulseYear) Value() float64 {
	if !p.fired {
		return -1
	}
	return p.year
}

func (p *PulseYear) Reset() {
	p.year = 0
	p.fired = false
}
