package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/device"
)

type deviceApi struct {
	svc      *device.Service
	validate *validator.Validate
}

func registerDeviceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := deviceApi{svc: deps.DeviceSvc, validate: deps.Validate}

	g.POST("/devices", api.register, jwt)
}

// Handlers

// register records the caller's push token; re-registering is a no-op refresh.
func (api *deviceApi) register(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data device.RegisterToken
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterToken")
	}
	data.UserID = claims.UserID()
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	token, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering device token")
	}
	return ctx.JSON(http.StatusCreated, token)
}
