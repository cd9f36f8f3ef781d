package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"wedding-invitation/internal/models"
)

type guestRequest struct {
	Name string      `json:"name" validate:"required"`
	Side models.Side `json:"side" validate:"omitempty,oneof=male female"`
}

type sendInvitationRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

func (h *Handler) listGuests(c *fiber.Ctx) error {
	guests, err := h.storage.Guests.ListGuests(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch guests")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(guests),
		"guests":  guests,
	})
}

func (h *Handler) getGuest(c *fiber.Ctx) error {
	guest, err := h.storage.Guests.GetGuest(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch guest")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"guest":   guest,
	})
}

func (h *Handler) createGuest(c *fiber.Ctx) error {
	var req guestRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err, "Failed to create guest. Please try again.")
	}

	guest, b, err := h.storage.Guests.CreateGuest(c.UserContext(), req.Name, req.Side)
	if err != nil {
		return h.fail(c, err, "Failed to create guest. Please try again.")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Guest created successfully",
		"data": fiber.Map{
			"url":      b.URL,
			"pathname": b.Pathname,
			"guest":    guest,
		},
	})
}

func (h *Handler) updateGuest(c *fiber.Ctx) error {
	var req guestRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err, "Failed to update guest. Please try again.")
	}

	guest, b, err := h.storage.Guests.UpdateGuest(c.UserContext(), c.Params("id"), req.Name, req.Side)
	if err != nil {
		return h.fail(c, err, "Failed to update guest. Please try again.")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Guest updated successfully",
		"data": fiber.Map{
			"url":      b.URL,
			"pathname": b.Pathname,
			"guest":    guest,
		},
	})
}

func (h *Handler) deleteGuest(c *fiber.Ctx) error {
	if err := h.storage.Guests.DeleteGuest(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err, "Failed to delete guest. Please try again.")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Guest deleted successfully",
	})
}

func (h *Handler) getInvitation(c *fiber.Ctx) error {
	guest, err := h.storage.Guests.GetGuest(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch guest")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.NewInvitation(h.config.PublicBaseURL, guest),
	})
}

func (h *Handler) sendInvitation(c *fiber.Ctx) error {
	var req sendInvitationRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err, "Failed to send invitation. Please try again.")
	}

	ctx := c.UserContext()
	guest, err := h.storage.Guests.GetGuest(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch guest")
	}
	inv := models.NewInvitation(h.config.PublicBaseURL, guest)

	recipient, err := h.notifier.SendInvitation(ctx, req.PhoneNumber, inv)
	if errors.Is(err, ErrDeliveryDisabled) {
		return writeError(c, fiber.StatusServiceUnavailable, "WhatsApp delivery is not enabled")
	}
	if err != nil {
		h.log.Error().Err(err).Str("guest_id", guest.ID).Msg("Failed to send invitation")
		return writeError(c, fiber.StatusBadGateway, "Failed to send invitation. Please try again.")
	}

	sent, err := h.storage.Invitations.Record(ctx, recipient, inv)
	if err != nil {
		return h.fail(c, err, "Invitation sent but could not be recorded")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Invitation sent successfully",
		"data":    sent,
	})
}
