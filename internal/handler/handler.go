// Package handler exposes guests, RSVPs and the event configuration as JSON
// endpoints. Handlers are stateless; every request goes to the blob store.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"wedding-invitation/internal/metrics"
	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

// ErrDeliveryDisabled is returned by a Notifier that cannot send invitations.
var ErrDeliveryDisabled = errors.New("invitation delivery is not enabled")

const notifyTimeout = 10 * time.Second

// Notifier delivers invitations and announces new RSVPs
type Notifier interface {
	NotifyRSVP(ctx context.Context, r models.RSVP) error
	// SendInvitation returns the number the invitation was delivered to.
	SendInvitation(ctx context.Context, phoneNumber string, inv models.Invitation) (string, error)
}

// NoopNotifier is used when WhatsApp is disabled
type NoopNotifier struct{}

func (NoopNotifier) NotifyRSVP(context.Context, models.RSVP) error { return nil }

func (NoopNotifier) SendInvitation(context.Context, string, models.Invitation) (string, error) {
	return "", ErrDeliveryDisabled
}

type Config struct {
	// PublicBaseURL is where the invitation page is served
	PublicBaseURL string
}

type Handler struct {
	storage  *storage.Storage
	notifier Notifier
	config   Config
	validate *validator.Validate
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates the HTTP handlers. notifier and m may be nil.
func New(st *storage.Storage, notifier Notifier, cfg Config, m *metrics.Metrics, log zerolog.Logger) *Handler {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Handler{
		storage:  st,
		notifier: notifier,
		config:   cfg,
		validate: newValidator(),
		metrics:  m,
		log:      log.With().Str("component", "handler").Logger(),
	}
}

// Register mounts every endpoint on router
func (h *Handler) Register(router fiber.Router) {
	router.Get("/guests", h.listGuests)
	router.Post("/guests", h.createGuest)
	router.Get("/guests/:id", h.getGuest)
	router.Put("/guests/:id", h.updateGuest)
	router.Delete("/guests/:id", h.deleteGuest)
	router.Get("/guests/:id/invitation", h.getInvitation)
	router.Post("/guests/:id/invitation/send", h.sendInvitation)

	router.Get("/rsvp/list", h.listRSVPs)
	router.Post("/rsvp", h.createRSVP)
	router.Delete("/rsvp/:id", h.deleteRSVP)

	router.Get("/config", h.getConfig)
	router.Post("/config", h.saveConfig)

	router.Get("/stats", h.stats)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Client-facing messages for failed validation rules, keyed by field and tag.
var validationMessages = map[string]string{
	"name.required":        "Guest name is required",
	"side.oneof":           "Side must be either male or female",
	"fullName.required":    "Full name and attendance status are required",
	"attendance.required":  "Full name and attendance status are required",
	"attendance.oneof":     `Attendance must be "attending" or "not-attending"`,
	"phoneNumber.required": "Phone number is required",
}

// bind decodes the JSON body into dst and validates it
func (h *Handler) bind(c *fiber.Ctx, dst any) error {
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return storage.ValidationError{Msg: "Invalid JSON body"}
	}

	err := h.validate.Struct(dst)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return storage.ValidationError{Field: fe.Field(), Msg: msg}
}

// fail maps repository errors to a status code. fallback is shown for
// anything that is not the client's fault.
func (h *Handler) fail(c *fiber.Ctx, err error, fallback string) error {
	var (
		verr storage.ValidationError
		nerr storage.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return writeError(c, fiber.StatusBadRequest, verr.Msg)
	case errors.As(err, &nerr):
		return writeError(c, fiber.StatusNotFound, notFoundMessage(nerr.Resource))
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn().Err(err).Str("path", c.Path()).Msg("Request deadline exceeded")
		return writeError(c, fiber.StatusGatewayTimeout, fallback)
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return writeError(c, fiber.StatusInternalServerError, fallback)
	}
}

func notFoundMessage(resource string) string {
	switch resource {
	case "guest":
		return "Guest not found"
	case "rsvp":
		return "RSVP not found"
	case "invitation":
		return "Invitation not found"
	default:
		return "Not found"
	}
}

// writeError sends the {success:false, error} envelope
func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// ErrorHandler renders errors that escape the handlers (unknown routes, body
// limit, panics turned into errors) in the same envelope.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		msg := "Internal server error"

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			status = ferr.Code
			msg = ferr.Message
		} else {
			log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
		}
		return writeError(c, status, msg)
	}
}
