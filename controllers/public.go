package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/zsmartex/launchpad/controllers/helpers"
	"github.com/zsmartex/launchpad/types"
)

func GetCampaign(c *fiber.Ctx) error {
	return c.Status(200).JSON(fiber.Map{
		"state":         Ledger.State(),
		"total_sold":    Ledger.TotalSold(),
		"current_round": Ledger.CurrentRound(),
	})
}

func GetRounds(c *fiber.Ctx) error {
	return c.Status(200).JSON(Ledger.Rounds())
}

func GetRound(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"public.round.invalid_index"},
		})
	}

	round, err := Ledger.Round(index)
	if err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(200).JSON(round)
}

// GetCurrentPrice answers the tier price of the open round, zero when
// no round is open.
func GetCurrentPrice(c *fiber.Ctx) error {
	tier := c.Params("tier")
	if tier != types.TierShort && tier != types.TierLong {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"public.price.invalid_tier"},
		})
	}

	return c.Status(200).JSON(fiber.Map{
		"tier":  tier,
		"price": Ledger.CurrentPrice(tier),
	})
}

func GetLimits(c *fiber.Ctx) error {
	min, auth_limit, max := Ledger.Limits()

	return c.Status(200).JSON(fiber.Map{
		"min":        min,
		"auth_limit": auth_limit,
		"max":        max,
	})
}
