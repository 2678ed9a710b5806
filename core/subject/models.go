package subject

import (
	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/darasa/core"
)

// Visibility modes control which students see a subject.
const (
	VisibilityAll       = "all"
	VisibilityGrade     = "grade"
	VisibilityClassroom = "classroom"
)

type Subject struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	TeacherID        int    `json:"teacher_id"`
	VisibilityMode   string `json:"visibility_mode"`
	TargetGradeLevel *int   `json:"target_grade_level"`
	TargetClassroom  *int   `json:"target_classroom"`
}

// NewSubject contains information needed to create a Subject.
type NewSubject struct {
	Name             string `json:"name" validate:"required"`
	TeacherID        int    `json:"teacher_id" validate:"required,gt=0"`
	VisibilityMode   string `json:"visibility_mode" validate:"omitempty,oneof=all grade classroom"`
	TargetGradeLevel *int   `json:"target_grade_level"`
	TargetClassroom  *int   `json:"target_classroom"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if ns.VisibilityMode == "" {
		ns.VisibilityMode = VisibilityAll
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}

	// mode-specific targets; irrelevant targets are discarded
	switch ns.VisibilityMode {
	case VisibilityAll:
		ns.TargetGradeLevel = nil
		ns.TargetClassroom = nil
	case VisibilityGrade:
		ns.TargetClassroom = nil
		if ns.TargetGradeLevel == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "target_grade_level", Error: "this field is required"})
		}
	case VisibilityClassroom:
		var flds []core.FieldError
		if ns.TargetGradeLevel == nil {
			flds = append(flds, core.FieldError{Field: "target_grade_level", Error: "this field is required"})
		}
		if ns.TargetClassroom == nil {
			flds = append(flds, core.FieldError{Field: "target_classroom", Error: "this field is required"})
		}
		if flds != nil {
			return core.NewValidationError(nil, flds...)
		}
	}
	return nil
}
