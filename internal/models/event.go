package models

import "time"

// Event is one photography engagement at a school on a given date.
// It is created by sync-down and only ever mutated locally by
// finalization, which flips IsFinished.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	SchoolID    string    `json:"schoolId"`
	IsFinished  bool      `json:"isFinished"`
}

type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Class    string `json:"class"`
	SchoolID string `json:"schoolId"`
}

// PhotoPreference maps a student to the photo type their family ordered.
// Read-only reference data, replaced wholesale by sync-down.
type PhotoPreference struct {
	StudentID string    `json:"studentId"`
	PhotoType PhotoType `json:"photoType"`
}
