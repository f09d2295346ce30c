package controllers

import (
	"github.com/ahmed-abdelmageed/vise-services-sub001/drafts"

	"github.com/gofiber/fiber/v2"
)

func (ctl *Controller) SaveDraft(c *fiber.Ctx) error {
	var in drafts.Draft
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	d, err := ctl.Drafts.Save(c.UserContext(), param(c, "id"), in)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (ctl *Controller) GetDraft(c *fiber.Ctx) error {
	d, err := ctl.Drafts.Load(c.UserContext(), param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (ctl *Controller) DeleteDraft(c *fiber.Ctx) error {
	if err := ctl.Drafts.Delete(c.UserContext(), param(c, "id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
