package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/zsmartex/launchpad/sale"
)

// Wired once at startup.
var (
	Ledger *sale.SaleLedger
	Native *sale.NativeChannel
	Stable *sale.StableChannel

	// ClaimAssets maps an asset symbol to a handle bound to ledger
	// custody, the set a referrer may claim from.
	ClaimAssets map[string]sale.Fungible
)

func Initialize(ledger *sale.SaleLedger, native *sale.NativeChannel, stable *sale.StableChannel, claimAssets map[string]sale.Fungible) {
	Ledger = ledger
	Native = native
	Stable = stable
	ClaimAssets = claimAssets
}

func GetTimestamp(c *fiber.Ctx) error {
	return c.Status(200).JSON(time.Now().Unix())
}
