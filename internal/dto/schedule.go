package dto

// ProposeScheduleRequest asks to place a class into the timetable.
type ProposeScheduleRequest struct {
	SectionID  string `json:"section_id" validate:"required"`
	SubjectID  string `json:"subject_id" validate:"required"`
	TeacherID  string `json:"teacher_id" validate:"required"`
	Day        string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday"`
	TimeSlotID string `json:"time_slot_id" validate:"required"`
	RoomID     string `json:"room_id" validate:"required"`
}
