package handler

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

func (h *Handler) getConfig(c *fiber.Ctx) error {
	doc, err := h.storage.Config.Get(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch configuration")
	}

	if side := models.Side(c.Query("side")); side != "" {
		if !side.Valid() {
			return h.fail(c, storage.ValidationError{Field: "side", Msg: "Side must be either male or female"}, "")
		}
		if doc, err = models.ForSide(doc, side); err != nil {
			return h.fail(c, err, "Failed to fetch configuration")
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(doc)
}

// saveConfig stores the request body as sent. Only its JSON syntax is checked.
func (h *Handler) saveConfig(c *fiber.Ctx) error {
	// fiber reuses the body buffer once the handler returns
	doc := json.RawMessage(bytes.Clone(c.Body()))
	if _, err := h.storage.Config.Set(c.UserContext(), doc); err != nil {
		return h.fail(c, err, "Failed to update configuration")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Configuration updated successfully",
		"data":    doc,
	})
}

func (h *Handler) stats(c *fiber.Ctx) error {
	stats, err := h.storage.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch statistics")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}
