package domain

import (
	"fmt"
	"strings"
)

// HistoryPolicy decides which observations are appended to a target's history.
type HistoryPolicy string

const (
	HistoryAll         HistoryPolicy = "all"         // every observation
	HistoryDown        HistoryPolicy = "down"        // only down observations
	HistoryTransitions HistoryPolicy = "transitions" // first observation and every status change
	HistoryNone        HistoryPolicy = "none"        // no history field at all
)

func ParseHistoryPolicy(s string) (HistoryPolicy, error) {
	p := HistoryPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case HistoryAll, HistoryDown, HistoryTransitions, HistoryNone:
		return p, nil
	case "":
		return HistoryTransitions, nil
	}
	return "", fmt.Errorf("unknown history policy %q", s)
}

// ShouldAppend reports whether an observation with status cur gets a history
// entry, given the previously stored status (existed is false on first record).
func (p HistoryPolicy) ShouldAppend(prev Status, existed bool, cur Status) bool {
	switch p {
	case HistoryAll:
		return true
	case HistoryDown:
		return cur == StatusDown
	case HistoryTransitions:
		return !existed || prev != cur
	default:
		return false
	}
}

// TrimHistory keeps the newest limit entries. limit <= 0 means uncapped.
func TrimHistory(h []HistoryEntry, limit int) []HistoryEntry {
	if limit <= 0 || len(h) <= limit {
		return h
	}
	return append([]HistoryEntry(nil), h[len(h)-limit:]...)
}
