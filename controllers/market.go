package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/controllers/helpers"
	"github.com/zsmartex/launchpad/models"
	"github.com/zsmartex/launchpad/sale"
	"github.com/zsmartex/launchpad/types"
)

type CreatePurchasePayload struct {
	Channel string `json:"channel" form:"channel" validate:"required|in:native,stable"`
	Tier    string `json:"tier" form:"tier" validate:"required|in:short,long"`
	// Amount is in the payment asset's base units (18 decimals for the
	// native coin, the stable asset's own decimals otherwise), unlike
	// the admin payloads, which take whole units.
	Amount   decimal.Decimal `json:"amount" form:"amount"`
	Referrer string          `json:"referrer" form:"referrer"`
	Payer    string          `json:"payer" form:"payer"`
}

// CreatePurchase buys at the given tier through either channel. A
// payer different from the caller makes this a buy-for, which requires
// the on-ramp capability on the channel.
func CreatePurchase(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	var payload *CreatePurchasePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	errs := new(helpers.Errors)
	helpers.Validate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	referrer := types.Address(payload.Referrer)
	if referrer.IsZero() {
		referrer = CurrentUser.Referrer()
	}

	caller := CurrentUser.Address()
	payer := types.Address(payload.Payer)

	var event *sale.PurchaseEvent
	var err error

	switch payload.Channel {
	case "native":
		if payer.IsZero() || payer == caller {
			event, err = Native.Buy(caller, payload.Tier, referrer, payload.Amount)
		} else {
			event, err = Native.BuyFor(caller, payer, payload.Tier, referrer, payload.Amount)
		}
	case "stable":
		if payer.IsZero() || payer == caller {
			event, err = Stable.Buy(caller, payload.Tier, referrer, payload.Amount)
		} else {
			event, err = Stable.BuyFor(caller, payer, payload.Tier, referrer, payload.Amount)
		}
	}

	if err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(event)
}

type ClaimReferralPayload struct {
	Assets []string `json:"assets" form:"assets" validate:"required"`
}

// ClaimReferral pays out the caller's accrued referral balances for the
// requested assets.
func ClaimReferral(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	var payload *ClaimReferralPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	errs := new(helpers.Errors)
	helpers.Validate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	assets := make([]sale.Fungible, 0, len(payload.Assets))
	for _, symbol := range payload.Assets {
		asset, ok := ClaimAssets[symbol]
		if !ok {
			return c.Status(422).JSON(helpers.Errors{
				Errors: []string{"market.claim.unknown_asset"},
			})
		}

		assets = append(assets, asset)
	}

	if err := Ledger.ClaimRef(CurrentUser.Address(), assets); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"claimed": payload.Assets})
}

// GetHeadroom answers what the caller can still commit.
func GetHeadroom(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)
	user := CurrentUser.Address()

	return c.Status(200).JSON(fiber.Map{
		"funding":       Ledger.Funding(user),
		"headroom":      Ledger.Headroom(user),
		"auth_headroom": Ledger.AuthHeadroom(user),
		"authorized":    Ledger.IsAuthorized(user),
	})
}

func GetRefBalance(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	return c.Status(200).JSON(fiber.Map{
		"asset":   c.Params("asset"),
		"balance": Ledger.RefBalance(CurrentUser.Address(), c.Params("asset")),
	})
}

func GetBalance(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	balances := make([]fiber.Map, 0)
	for index := 0; index < Ledger.RoundCount(); index++ {
		amount := Ledger.BalanceOf(CurrentUser.Address(), index)
		if amount.IsZero() {
			continue
		}

		balances = append(balances, fiber.Map{"round": index, "amount": amount})
	}

	return c.Status(200).JSON(balances)
}
