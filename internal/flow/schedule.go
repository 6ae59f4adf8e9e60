// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"fmt"
	"strings"

	"github.com/voicegraph/callflow/internal/msteams"
)

// The always-open sentinel: a full-day range on a weekday. A weekly
// schedule open 00:00-24:00 (or 00:00-23:59:59) on all seven days is
// treated as "no after-hours configured".
var alwaysOpenStarts = map[string]bool{"00:00:00": true, "00:00": true}
var alwaysOpenEnds = map[string]bool{"1.00:00:00": true, "24:00:00": true, "24:00": true, "23:59:59": true}

// weekday pairs a display name with its ranges, keeping render order.
type weekday struct {
	name   string
	ranges []msteams.TimeRange
}

func weekdays(w *msteams.WeeklySchedule) []weekday {
	return []weekday{
		{"Monday", w.Monday},
		{"Tuesday", w.Tuesday},
		{"Wednesday", w.Wednesday},
		{"Thursday", w.Thursday},
		{"Friday", w.Friday},
		{"Saturday", w.Saturday},
		{"Sunday", w.Sunday},
	}
}

// isAlwaysOpen reports whether every weekday carries exactly the
// full-day sentinel range.
func isAlwaysOpen(w *msteams.WeeklySchedule) bool {
	if w == nil {
		return false
	}
	for _, day := range weekdays(w) {
		if len(day.ranges) != 1 {
			return false
		}
		r := day.ranges[0]
		if !alwaysOpenStarts[r.Start] || !alwaysOpenEnds[r.End] {
			return false
		}
	}
	return true
}

// HasAfterHours reports whether the schedule constitutes real
// after-hours configuration. A schedule identical to the always-open
// sentinel, a nil weekly body, or a shape that cannot be interpreted
// all mean "no after-hours": ambiguity degrades conservatively.
func HasAfterHours(s *msteams.Schedule) (bool, error) {
	if s == nil {
		return false, nil
	}
	if s.Type != msteams.ScheduleTypeWeekly {
		return false, &ConfigurationAmbiguityError{
			AppID:  s.ID,
			Detail: fmt.Sprintf("schedule type %q used as business hours", s.Type),
		}
	}
	if s.Weekly == nil {
		return false, &ConfigurationAmbiguityError{
			AppID:  s.ID,
			Detail: "weekly schedule has no per-day ranges",
		}
	}
	return !isAlwaysOpen(s.Weekly), nil
}

// stripSeconds reduces "HH:MM:SS" to "HH:MM"; already-short values
// pass through.
func stripSeconds(clock string) string {
	if len(clock) == 8 && strings.Count(clock, ":") == 2 {
		return clock[:5]
	}
	return clock
}

// renderDayRanges renders one weekday's ranges: "Closed", "Open 24
// Hours", or comma-joined explicit start - end pairs.
func renderDayRanges(ranges []msteams.TimeRange) string {
	if len(ranges) == 0 {
		return "Closed"
	}
	if len(ranges) == 1 {
		r := ranges[0]
		if alwaysOpenStarts[r.Start] && alwaysOpenEnds[r.End] {
			return "Open 24 Hours"
		}
	}
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, stripSeconds(r.Start)+" - "+stripSeconds(r.End))
	}
	return strings.Join(parts, ", ")
}

// BusinessHoursLabel renders the full weekly schedule for the
// business-hours decision node, one line per weekday.
func BusinessHoursLabel(w *msteams.WeeklySchedule) string {
	if w == nil {
		return ""
	}
	lines := make([]string, 0, 7)
	for _, day := range weekdays(w) {
		lines = append(lines, day.name+" Hours: "+renderDayRanges(day.ranges))
	}
	return strings.Join(lines, " <br> ")
}

// HolidayScheduleLabel renders a fixed holiday schedule's date ranges.
func HolidayScheduleLabel(s *msteams.Schedule) string {
	if s == nil || len(s.DateTimeRanges) == 0 {
		return "No dates configured"
	}
	parts := make([]string, 0, len(s.DateTimeRanges))
	for _, r := range s.DateTimeRanges {
		parts = append(parts, SanitizeLabel(r.Start)+" - "+SanitizeLabel(r.End))
	}
	return strings.Join(parts, " <br> ")
}
