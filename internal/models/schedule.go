package models

import "time"

// SchoolDays lists the days a class may be scheduled, in week order.
var SchoolDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Schedule places a subject taught by a teacher for a section into a (day, time slot, room).
type Schedule struct {
	ID         string    `db:"id" json:"id"`
	SectionID  string    `db:"section_id" json:"section_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	Day        string    `db:"day" json:"day"`
	TimeSlotID string    `db:"time_slot_id" json:"time_slot_id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ScheduleDetail enriches Schedule with display names.
type ScheduleDetail struct {
	Schedule
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	RoomName    string `db:"room_name" json:"room_name"`
	SlotLabel   string `db:"slot_label" json:"slot_label"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
}

// Conflict dimensions, checked in this order.
const (
	ConflictRoom    = "ROOM"
	ConflictTeacher = "TEACHER"
	ConflictSection = "SECTION"
	ConflictSubject = "SUBJECT"
)

// ScheduleConflict describes an existing schedule that collides with a proposal.
type ScheduleConflict struct {
	ScheduleID string `json:"schedule_id"`
	Dimension  string `json:"dimension"`
	Day        string `json:"day"`
	TimeSlotID string `json:"time_slot_id"`
}

// ScheduleConflictError is returned when a schedule collides with an existing one.
type ScheduleConflictError struct {
	Type     string           `json:"type"`
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
