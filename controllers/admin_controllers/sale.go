package admin_controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/controllers"
	"github.com/zsmartex/launchpad/controllers/helpers"
	"github.com/zsmartex/launchpad/models"
	"github.com/zsmartex/launchpad/sale"
	"github.com/zsmartex/launchpad/types"
)

func caller(c *fiber.Ctx) types.Address {
	return c.Locals("CurrentUser").(*models.Member).Address()
}

func OpenCampaign(c *fiber.Ctx) error {
	if err := controllers.Ledger.Open(caller(c)); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"state": controllers.Ledger.State()})
}

func CloseCampaign(c *fiber.Ctx) error {
	if err := controllers.Ledger.Close(caller(c)); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"state": controllers.Ledger.State()})
}

type RoundPayload struct {
	ShortPrice decimal.Decimal `json:"short_price" form:"short_price"`
	LongPrice  decimal.Decimal `json:"long_price" form:"long_price"`
	Supply     decimal.Decimal `json:"supply" form:"supply"`
}

// CreateRound appends a round. Prices arrive in whole funding units per
// sale token and the supply in whole tokens; both are rescaled to base
// units here.
func CreateRound(c *fiber.Ctx) error {
	var payload *RoundPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	err := controllers.Ledger.AddRound(
		caller(c),
		payload.ShortPrice.Shift(sale.FundingDecimals),
		payload.LongPrice.Shift(sale.FundingDecimals),
		payload.Supply.Shift(controllers.Ledger.SaleDecimals()),
	)
	if err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(controllers.Ledger.Rounds())
}

func roundIndex(c *fiber.Ctx) (int, error) {
	return strconv.Atoi(c.Params("id"))
}

func UpdateRoundPrice(c *fiber.Ctx) error {
	index, err := roundIndex(c)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"admin.round.invalid_index"},
		})
	}

	var payload *RoundPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	err = controllers.Ledger.UpdateRoundPrice(
		caller(c),
		index,
		payload.ShortPrice.Shift(sale.FundingDecimals),
		payload.LongPrice.Shift(sale.FundingDecimals),
	)
	if err != nil {
		return helpers.HandleError(c, err)
	}

	round, _ := controllers.Ledger.Round(index)
	return c.Status(200).JSON(round)
}

func UpdateRoundSupply(c *fiber.Ctx) error {
	index, err := roundIndex(c)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"admin.round.invalid_index"},
		})
	}

	var payload *RoundPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	err = controllers.Ledger.UpdateRoundSupply(
		caller(c),
		index,
		payload.Supply.Shift(controllers.Ledger.SaleDecimals()),
	)
	if err != nil {
		return helpers.HandleError(c, err)
	}

	round, _ := controllers.Ledger.Round(index)
	return c.Status(200).JSON(round)
}

func OpenRound(c *fiber.Ctx) error {
	index, err := roundIndex(c)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"admin.round.invalid_index"},
		})
	}

	if err := controllers.Ledger.OpenRound(caller(c), index); err != nil {
		return helpers.HandleError(c, err)
	}

	round, _ := controllers.Ledger.Round(index)
	return c.Status(201).JSON(round)
}

func CloseRound(c *fiber.Ctx) error {
	index, err := roundIndex(c)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"admin.round.invalid_index"},
		})
	}

	if err := controllers.Ledger.CloseRound(caller(c), index); err != nil {
		return helpers.HandleError(c, err)
	}

	round, _ := controllers.Ledger.Round(index)
	return c.Status(201).JSON(round)
}

type LimitsPayload struct {
	Min       *decimal.Decimal `json:"min" form:"min"`
	AuthLimit *decimal.Decimal `json:"auth_limit" form:"auth_limit"`
	Max       *decimal.Decimal `json:"max" form:"max"`
}

// UpdateLimits applies each supplied limit in turn; every intermediate
// state has to satisfy min <= auth_limit <= max or the call rejects.
func UpdateLimits(c *fiber.Ctx) error {
	var payload *LimitsPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	admin := caller(c)

	if payload.Max != nil {
		if err := controllers.Ledger.SetMax(admin, payload.Max.Shift(sale.FundingDecimals)); err != nil {
			return helpers.HandleError(c, err)
		}
	}

	if payload.AuthLimit != nil {
		if err := controllers.Ledger.SetAuthLimit(admin, payload.AuthLimit.Shift(sale.FundingDecimals)); err != nil {
			return helpers.HandleError(c, err)
		}
	}

	if payload.Min != nil {
		if err := controllers.Ledger.SetMin(admin, payload.Min.Shift(sale.FundingDecimals)); err != nil {
			return helpers.HandleError(c, err)
		}
	}

	min, auth_limit, max := controllers.Ledger.Limits()
	return c.Status(200).JSON(fiber.Map{"min": min, "auth_limit": auth_limit, "max": max})
}

type AuthPayload struct {
	Users      []string `json:"users" form:"users" validate:"required"`
	Authorized []bool   `json:"authorized" form:"authorized" validate:"required"`
}

func SetAuth(c *fiber.Ctx) error {
	var payload *AuthPayload
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

	users := make([]types.Address, 0, len(payload.Users))
	for _, user := range payload.Users {
		users = append(users, types.Address(user))
	}

	if err := controllers.Ledger.SetAuthBatch(caller(c), users, payload.Authorized); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(payload)
}

type TreasuryPayload struct {
	Treasury string `json:"treasury" form:"treasury" validate:"required"`
}

func SetTreasury(c *fiber.Ctx) error {
	var payload *TreasuryPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	if err := controllers.Ledger.SetTreasury(caller(c), types.Address(payload.Treasury)); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"treasury": controllers.Ledger.Treasury()})
}

type RefRatesPayload struct {
	Referrer string `json:"referrer" form:"referrer"`
	First    uint32 `json:"first" form:"first"`
	Second   uint32 `json:"second" form:"second"`
}

func SetDefaultRefRates(c *fiber.Ctx) error {
	var payload *RefRatesPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	if err := controllers.Ledger.SetDefaultRefRates(caller(c), payload.First, payload.Second); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(controllers.Ledger.DefaultRates())
}

// SetupReferral registers custom per-referrer rates. The admin address
// needs the operator capability for this one, granted at bootstrap.
func SetupReferral(c *fiber.Ctx) error {
	var payload *RefRatesPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	if err := controllers.Ledger.SetupReferral(caller(c), types.Address(payload.Referrer), payload.First, payload.Second); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(payload)
}

type ReferrerPayload struct {
	Referrer string `json:"referrer" form:"referrer" validate:"required"`
}

func EnableReferral(c *fiber.Ctx) error {
	return toggleReferral(c, true)
}

func DisableReferral(c *fiber.Ctx) error {
	return toggleReferral(c, false)
}

func toggleReferral(c *fiber.Ctx, enabled bool) error {
	var payload *ReferrerPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	var err error
	if enabled {
		err = controllers.Ledger.EnableReferral(caller(c), types.Address(payload.Referrer))
	} else {
		err = controllers.Ledger.DisableReferral(caller(c), types.Address(payload.Referrer))
	}

	if err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(payload)
}

type ChannelPayload struct {
	Channel   string `json:"channel" form:"channel" validate:"required|in:native,stable"`
	Threshold string `json:"threshold" form:"threshold"`
}

func PauseChannel(c *fiber.Ctx) error {
	return setChannelPaused(c, true)
}

func UnpauseChannel(c *fiber.Ctx) error {
	return setChannelPaused(c, false)
}

func setChannelPaused(c *fiber.Ctx, paused bool) error {
	var payload *ChannelPayload
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

	var err error
	switch {
	case payload.Channel == "native" && paused:
		err = controllers.Native.Pause(caller(c))
	case payload.Channel == "native":
		err = controllers.Native.Unpause(caller(c))
	case paused:
		err = controllers.Stable.Pause(caller(c))
	default:
		err = controllers.Stable.Unpause(caller(c))
	}

	if err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(payload)
}

// SetStalenessThreshold updates the native channel's oracle age bound.
func SetStalenessThreshold(c *fiber.Ctx) error {
	var payload *ChannelPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	threshold, err := time.ParseDuration(payload.Threshold)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"admin.channel.invalid_threshold"},
		})
	}

	if err := controllers.Native.SetPriceStalenessThreshold(caller(c), threshold); err != nil {
		return helpers.HandleError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"threshold": threshold.String()})
}
