package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weatherki/internal/dashboard"
	"github.com/i474232898/weatherki/internal/widget"
)

var validate = validator.New()

type locationRequest struct {
	Location string `json:"location" validate:"required,max=100"`
}

type questionRequest struct {
	Question string `json:"question" validate:"required,max=500"`
}

type interestsRequest struct {
	Interests string `json:"interests" validate:"required,max=500"`
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d *dashboard.Dashboard) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(d.View())
	})

	v1.Post("/widgets", func(c *fiber.Ctx) error {
		var req locationRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		w, err := d.AddWidget(c.UserContext(), req.Location)
		if err != nil {
			return toHTTPError(err, "Failed to create widget")
		}
		return c.Status(fiber.StatusCreated).JSON(w)
	})

	v1.Post("/widgets/:id/refresh", func(c *fiber.Ctx) error {
		if err := d.RefreshWeather(c.Params("id")); err != nil {
			return toHTTPError(err, "Failed to fetch weather data")
		}
		return c.Status(fiber.StatusAccepted).JSON(d.View())
	})

	v1.Post("/widgets/:id/delete", func(c *fiber.Ctx) error {
		if err := d.RequestDelete(c.Params("id")); err != nil {
			return toHTTPError(err, "Failed to delete widget")
		}
		return c.JSON(d.View())
	})

	v1.Post("/delete/confirm", func(c *fiber.Ctx) error {
		if err := d.ConfirmDelete(c.UserContext()); err != nil {
			return toHTTPError(err, "Failed to delete widget")
		}
		return c.JSON(d.View())
	})

	v1.Post("/delete/cancel", func(c *fiber.Ctx) error {
		d.CancelDelete()
		return c.JSON(d.View())
	})

	v1.Put("/selection", func(c *fiber.Ctx) error {
		var req locationRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if err := d.SetSelection(req.Location); err != nil {
			return toHTTPError(err, "")
		}
		return c.JSON(d.View())
	})

	v1.Delete("/error", func(c *fiber.Ctx) error {
		d.DismissError()
		return c.SendStatus(fiber.StatusNoContent)
	})

	insights := v1.Group("/insights")

	insights.Post("/trivia", func(c *fiber.Ctx) error {
		text, err := d.GenerateTrivia(c.UserContext())
		return insightResponse(c, "trivia", text, err)
	})

	insights.Post("/summary", func(c *fiber.Ctx) error {
		text, err := d.Summary(c.UserContext())
		return insightResponse(c, "summary", text, err)
	})

	insights.Post("/chat", func(c *fiber.Ctx) error {
		var req questionRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		text, err := d.Chat(c.UserContext(), req.Question)
		return insightResponse(c, "response", text, err)
	})

	insights.Post("/suggestions", func(c *fiber.Ctx) error {
		var req interestsRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		text, err := d.Suggestions(c.UserContext(), req.Interests)
		return insightResponse(c, "suggestions", text, err)
	})
}

func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// insightResponse replies with the generated text under key. A remote
// failure still carries the fallback text.
func insightResponse(c *fiber.Ctx, key, text string, err error) error {
	var re *widget.RemoteError
	switch {
	case err == nil:
		return c.JSON(fiber.Map{key: text})
	case errors.As(err, &re):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   true,
			"message": text,
		})
	default:
		return toHTTPError(err, "")
	}
}

func toHTTPError(err error, fallback string) error {
	var re *widget.RemoteError
	switch {
	case errors.Is(err, widget.ErrDuplicateLocation),
		errors.Is(err, widget.ErrInvalidLocation),
		errors.Is(err, widget.ErrInvalidSelection),
		errors.Is(err, dashboard.ErrNoLocations),
		errors.Is(err, dashboard.ErrEmptyPrompt):
		return fiber.NewError(fiber.StatusBadRequest, widget.RemoteMessage(err, err.Error()))
	case errors.Is(err, widget.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrInsightsUnavailable):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.As(err, &re):
		return fiber.NewError(fiber.StatusBadGateway, widget.RemoteMessage(err, fallback))
	default:
		return err
	}
}
