package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/darasa/core"
)

// Announcement is a teacher broadcast attached to a subject.
type Announcement struct {
	ID        int       `json:"id"`
	SubjectID int       `json:"subject_id"`
	TeacherID int       `json:"teacher_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewAnnouncement contains information needed to post an Announcement.
type NewAnnouncement struct {
	SubjectID int    `json:"subject_id" validate:"required,gt=0"`
	TeacherID int    `json:"teacher_id" validate:"required,gt=0"`
	Content   string `json:"content" validate:"required"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Content = core.CleanString(na.Content)
	return validate.Struct(na)
}
