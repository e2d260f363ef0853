package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/weather-tracker/internal/store"
	"github.com/i474232898/weather-tracker/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, sessions *store.MemoryStore) {
	v1 := app.Group("/api/v1")

	v1.Post("/trackers", func(c *fiber.Ctx) error {
		var req createTrackerRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}

		t := service.NewTracker(uuid.NewString(), req.RecordID)
		sessions.Save(t)

		var geo weather.Geolocator
		if req.Device != nil {
			geo = req.Device
		}
		// Widget errors are reported through the tracker state.
		_ = t.Activate(c.UserContext(), geo)

		return c.Status(fiber.StatusCreated).JSON(t.Snapshot())
	})

	v1.Get("/trackers/:id", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		return c.JSON(t.Snapshot())
	}))

	v1.Delete("/trackers/:id", func(c *fiber.Ctx) error {
		if err := sessions.Delete(c.Params("id")); err != nil {
			return notFound(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/trackers/:id/mode", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		var req modeRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		t.SetMode(*req.UseAddress)
		return c.JSON(t.Snapshot())
	}))

	v1.Put("/trackers/:id/address", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		var req addressRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		t.SetAddress(req.Address)
		return c.JSON(t.Snapshot())
	}))

	v1.Put("/trackers/:id/coordinates", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		var req coordinatesRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		t.SetCoordinates(req.Latitude, req.Longitude)
		return c.JSON(t.Snapshot())
	}))

	v1.Post("/trackers/:id/weather", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		_ = t.FetchWeather(c.UserContext())
		return c.JSON(t.Snapshot())
	}))

	v1.Post("/trackers/:id/location", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		var req deviceRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		_ = t.LocateDevice(c.UserContext(), &req)
		return c.JSON(t.Snapshot())
	}))

	v1.Get("/trackers/:id/report", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		return c.JSON(t.Report())
	}))

	v1.Post("/trackers/:id/report", withTracker(sessions, func(c *fiber.Ctx, t *weather.Tracker) error {
		res, err := t.ShareReport(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"result":  res,
			})
		}
		return c.JSON(res)
	}))

	v1.Get("/icons", func(c *fiber.Ctx) error {
		var q iconQuery
		q.Condition = c.Query("condition")
		q.Cloud = c.Query("cloud")
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(service.Icons().Resolve(q.Condition, q.Cloud))
	})
}

func withTracker(sessions *store.MemoryStore, h func(*fiber.Ctx, *weather.Tracker) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := sessions.Get(c.Params("id"))
		if err != nil {
			return notFound(err)
		}
		return h(c, t)
	}
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "tracker not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

// bindJSON decodes and validates a request body. An empty body leaves dst
// at its zero value before validation.
func bindJSON(c *fiber.Ctx, dst any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

type createTrackerRequest struct {
	RecordID string         `json:"recordId" validate:"omitempty,alphanum,max=18"`
	Device   *deviceRequest `json:"device"`
}

type modeRequest struct {
	UseAddress *bool `json:"useAddress" validate:"required"`
}

type addressRequest struct {
	Address string `json:"address" validate:"max=255"`
}

// coordinatesRequest keeps the inputs as typed; they are validated when a
// fetch is issued.
type coordinatesRequest struct {
	Latitude  string `json:"latitude" validate:"max=64"`
	Longitude string `json:"longitude" validate:"max=64"`
}

type iconQuery struct {
	Condition string `validate:"max=32"`
	Cloud     string `validate:"max=32"`
}

// deviceRequest is the browser's geolocation outcome. It carries either a
// position or the failure the browser reported.
type deviceRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Error     string   `json:"error" validate:"omitempty,oneof=permission_denied position_unavailable timeout unsupported"`
	Message   string   `json:"message" validate:"max=255"`
}

func (d *deviceRequest) CurrentPosition(context.Context) (weather.Position, error) {
	if d.Error != "" {
		return weather.Position{}, weather.NewGeolocationError(weather.GeoFailure(d.Error), d.Message)
	}
	if d.Latitude == nil || d.Longitude == nil {
		return weather.Position{}, weather.NewGeolocationError(weather.GeoUnsupported, "")
	}
	return weather.Position{Latitude: *d.Latitude, Longitude: *d.Longitude}, nil
}
