package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwalimu/darasa/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var Roles = []string{RoleStudent, RoleTeacher}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	GradeLevel   *int      `json:"grade_level"` // students only
	Classroom    *int      `json:"classroom"`   // students only
	StudentID    *string   `json:"student_id"`  // students only; 5 digits
	Subject      *string   `json:"subject"`     // teachers only; taught subject label
	AvatarPath   string    `json:"-"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=student teacher"`
	GradeLevel      *int   `json:"grade_level"`
	Classroom       *int   `json:"classroom"`
	StudentID       string `json:"student_id" validate:"omitempty,studentid"`
	Subject         string `json:"subject"` // teachers only
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.StudentID = core.CleanString(nu.StudentID)
	nu.Subject = core.CleanString(nu.Subject)

	if err := validate.Struct(nu); err != nil {
		return err
	}

	// role-specific requirements
	if nu.Role == RoleStudent {
		var flds []core.FieldError
		if nu.GradeLevel == nil {
			flds = append(flds, core.FieldError{Field: "grade_level", Error: "this field is required"})
		}
		if nu.Classroom == nil {
			flds = append(flds, core.FieldError{Field: "classroom", Error: "this field is required"})
		}
		if nu.StudentID == "" {
			flds = append(flds, core.FieldError{Field: "student_id", Error: "this field is required"})
		}
		if flds != nil {
			return core.NewValidationError(nil, flds...)
		}
	}
	return svc.CheckUniqueness(nu.Name, nu.Email, nu.StudentID)
}

// QueryFilter narrows user listings; Role matches exactly.
type QueryFilter struct {
	Role string `query:"role"`
}

func (qf *QueryFilter) Clean() {
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
