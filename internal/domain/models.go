package domain

import (
	"fmt"
	"time"
)

// Status is the classification of a single probe.
type Status string

const (
	StatusOnline Status = "online"
	StatusSlow   Status = "slow"
	StatusDown   Status = "down"
)

// Messages written alongside each status.
const (
	MessageOnline = "OK"
	MessageSlow   = "High traffic — expect delays."
	MessageDown   = "Service unreachable."
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusSlow, StatusDown:
		return true
	}
	return false
}

// ParseStatus rejects anything but the three known statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Target is one monitored health endpoint. Name doubles as the document key.
type Target struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// Observation is what a single check produced, ready to be stored.
type Observation struct {
	Status         Status
	Message        string
	ResponseTimeMS *int64 // nil when the target was unreachable
	CheckedAt      time.Time
	LastChecked    string // CheckedAt rendered in the configured zone
}

// HistoryEntry is one element of a target's history trail.
type HistoryEntry struct {
	Status         Status `json:"status" bson:"status"`
	Date           string `json:"date" bson:"date"`
	ResponseTimeMS *int64 `json:"responseTime" bson:"responseTime"`
}

// TargetStatus is the per-target document in the status collection.
type TargetStatus struct {
	Name           string         `json:"name" bson:"_id"`
	Status         Status         `json:"status" bson:"status"`
	Message        string         `json:"message" bson:"message"`
	ResponseTimeMS *int64         `json:"responseTime" bson:"responseTime"`
	LastChecked    string         `json:"lastChecked" bson:"lastChecked"`
	CheckedAt      time.Time      `json:"checkedAt" bson:"checkedAt"`
	History        []HistoryEntry `json:"history,omitempty" bson:"history,omitempty"`
}

func (o Observation) Entry() HistoryEntry {
	return HistoryEntry{Status: o.Status, Date: o.LastChecked, ResponseTimeMS: o.ResponseTimeMS}
}

// Apply overwrites the latest-status fields of s with o. History is left alone.
func (s *TargetStatus) Apply(o Observation) {
	s.Status = o.Status
	s.Message = o.Message
	s.ResponseTimeMS = o.ResponseTimeMS
	s.LastChecked = o.LastChecked
	s.CheckedAt = o.CheckedAt
}

// Clone returns a deep copy.
func (s TargetStatus) Clone() TargetStatus {
	out := s
	if s.ResponseTimeMS != nil {
		v := *s.ResponseTimeMS
		out.ResponseTimeMS = &v
	}
	if s.History != nil {
		out.History = make([]HistoryEntry, len(s.History))
		for i, h := range s.History {
			if h.ResponseTimeMS != nil {
				v := *h.ResponseTimeMS
				h.ResponseTimeMS = &v
			}
			out.History[i] = h
		}
	}
	return out
}

// lastCheckedLayout matches the es-ES short date-time rendering, e.g. "19/10/2026, 14:05:09".
const lastCheckedLayout = "02/01/2006, 15:04:05"

// FormatLocal renders t the way lastChecked and history dates are stored.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(lastCheckedLayout)
}
