package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

// ChannelWeb labels RSVPs submitted through the invitation page.
const ChannelWeb = "web"

type rsvpRequest struct {
	FullName         string            `json:"fullName" validate:"required"`
	Attendance       models.Attendance `json:"attendance" validate:"required,oneof=attending not-attending"`
	Message          string            `json:"message"`
	GuestID          string            `json:"guestId"`
	GuestNameFromURL string            `json:"guestNameFromUrl"`
}

func (h *Handler) listRSVPs(c *fiber.Ctx) error {
	rsvps, err := h.storage.RSVPs.ListRSVPs(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch RSVPs")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(rsvps),
		"rsvps":   rsvps,
	})
}

func (h *Handler) createRSVP(c *fiber.Ctx) error {
	var req rsvpRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err, "Failed to save RSVP. Please try again.")
	}

	ctx := c.UserContext()
	rsvp, b, err := h.storage.RSVPs.CreateRSVP(ctx, storage.NewRSVP{
		FullName:         req.FullName,
		Attendance:       req.Attendance,
		Message:          req.Message,
		GuestID:          req.GuestID,
		GuestNameFromURL: req.GuestNameFromURL,
	})
	if err != nil {
		return h.fail(c, err, "Failed to save RSVP. Please try again.")
	}

	if h.metrics != nil {
		h.metrics.RSVPs.WithLabelValues(string(rsvp.Attendance), ChannelWeb).Inc()
	}
	h.notifyRSVP(ctx, rsvp)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "RSVP submitted successfully",
		"data": fiber.Map{
			"url":      b.URL,
			"pathname": b.Pathname,
		},
	})
}

func (h *Handler) deleteRSVP(c *fiber.Ctx) error {
	if err := h.storage.RSVPs.DeleteRSVP(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err, "Failed to delete RSVP. Please try again.")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "RSVP deleted successfully",
	})
}

// notifyRSVP announces the RSVP; the submission is already stored, so a
// failure here is only logged.
func (h *Handler) notifyRSVP(ctx context.Context, rsvp models.RSVP) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := h.notifier.NotifyRSVP(ctx, rsvp); err != nil {
		h.log.Warn().Err(err).Str("attendance", string(rsvp.Attendance)).Msg("Failed to send RSVP notification")
	}
}
