package device

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/darasa/core"
)

// Token is a registered push target. The (user_id, token) pair is unique in
// storage; registering the same pair again is a no-op refresh.
type Token struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Token     string    `json:"-"` // not exposed in API responses
	CreatedAt time.Time `json:"created_at"` // UTC
}

// RegisterToken contains information needed to register a device Token.
type RegisterToken struct {
	UserID int    `json:"user_id" validate:"required,gt=0"`
	Token  string `json:"token" validate:"required"`
}

func (rt *RegisterToken) Validate(validate *validator.Validate) error {
	rt.Token = core.CleanString(rt.Token)
	return validate.Struct(rt)
}
