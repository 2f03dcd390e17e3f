package entity

import "fmt"

// EventType classifies an Event.
type EventType string

const (
	EventDecision    EventType = "decision"
	EventFailure     EventType = "failure"
	EventSuccess     EventType = "success"
	EventDiscovery   EventType = "discovery"
	EventCalibration EventType = "calibration"
	EventExternal    EventType = "external"
)

// EventTypes lists every valid EventType.
var EventTypes = []EventType{
	EventDecision, EventFailure, EventSuccess, EventDiscovery, EventCalibration, EventExternal,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseEventType converts s to an EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// Domain classifies a Learning.
type Domain string

const (
	DomainProcedural Domain = "procedural"
	DomainSemantic   Domain = "semantic"
	DomainRelational Domain = "relational"
	DomainMeta       Domain = "meta"
)

// Domains lists every valid Domain.
var Domains = []Domain{DomainProcedural, DomainSemantic, DomainRelational, DomainMeta}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	for _, v := range Domains {
		if d == v {
			return true
		}
	}
	return false
}

// ParseDomain converts s to a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown domain %q", s)
	}
	return d, nil
}
