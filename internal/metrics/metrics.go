// Package metrics derives dashboard statistics from a task collection.
// Everything here is a pure function of the collection and a reference
// instant, so callers inject "now" and tests stay deterministic.
package metrics

import (
	"time"

	"taskdeck/internal/models"
)

// RecentLimit caps the recently-completed history.
const RecentLimit = 5

// Stats are the aggregate counts shown on the dashboard.
type Stats struct {
	DueToday  int
	Overdue   int
	Pending   int
	Completed int

	// Recent is the completed subset in collection order, capped at
	// RecentLimit. It is not re-sorted by completion time; collection order
	// mirrors the authoritative server order.
	Recent []models.Task
}

// Compute derives Stats from the collection at the given instant.
//
// Due-today and overdue use date-only comparison in now's location. A full
// timestamp comparison would misclassify tasks near midnight (a task due at
// 23:30 local is still due today, not overdue, all day). Tasks without a due
// date are never due-today or overdue.
func Compute(tasks []models.Task, now time.Time) Stats {
	var s Stats
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, t := range tasks {
		if t.Completed() {
			s.Completed++
			if len(s.Recent) < RecentLimit {
				s.Recent = append(s.Recent, t)
			}
			continue
		}
		s.Pending++

		if t.DueDate == nil {
			continue
		}
		due := t.DueDate.In(now.Location())
		switch {
		case sameDay(due, now):
			s.DueToday++
		case due.Before(startOfToday):
			s.Overdue++
		}
	}
	return s
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// WeeklyActivity counts tasks completed on each day of the current calendar
// week (Monday through Sunday), keyed by UpdatedAt: the server advances it
// on every mutation, so for a completed task it marks the completion.
func WeeklyActivity(tasks []models.Task, now time.Time) [7]int {
	var counts [7]int
	weekStart := startOfWeek(now)
	weekEnd := weekStart.AddDate(0, 0, 7)

	for _, t := range tasks {
		if !t.Completed() {
			continue
		}
		done := t.UpdatedAt.In(now.Location())
		if done.Before(weekStart) || !done.Before(weekEnd) {
			continue
		}
		counts[mondayIndex(done.Weekday())]++
	}
	return counts
}

// startOfWeek returns midnight of the Monday of now's week.
func startOfWeek(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -mondayIndex(now.Weekday()))
}

// mondayIndex maps time.Weekday (Sunday = 0) to a Monday-first index.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
