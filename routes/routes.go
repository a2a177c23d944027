package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zsmartex/launchpad/controllers"
	"github.com/zsmartex/launchpad/controllers/admin_controllers"
	"github.com/zsmartex/launchpad/routes/middlewares"
)

func SetupRouter() *fiber.App {
	app := fiber.New()

	app.Get("/api/v2/public/timestamp", controllers.GetTimestamp)
	app.Get("/api/v2/public/campaign", controllers.GetCampaign)
	app.Get("/api/v2/public/rounds", controllers.GetRounds)
	app.Get("/api/v2/public/rounds/:id", controllers.GetRound)
	app.Get("/api/v2/public/price/:tier", controllers.GetCurrentPrice)
	app.Get("/api/v2/public/limits", controllers.GetLimits)

	market := app.Group("/api/v2/market", middlewares.Authenticate)
	market.Post("/purchases", controllers.CreatePurchase)
	market.Post("/referral/claims", controllers.ClaimReferral)
	market.Get("/headroom", controllers.GetHeadroom)
	market.Get("/balances", controllers.GetBalance)
	market.Get("/referral/balances/:asset", controllers.GetRefBalance)

	admin := app.Group("/api/v2/admin", middlewares.Authenticate, middlewares.AdminValidator)
	admin.Post("/campaign/open", admin_controllers.OpenCampaign)
	admin.Post("/campaign/close", admin_controllers.CloseCampaign)
	admin.Post("/rounds", admin_controllers.CreateRound)
	admin.Put("/rounds/:id/price", admin_controllers.UpdateRoundPrice)
	admin.Put("/rounds/:id/supply", admin_controllers.UpdateRoundSupply)
	admin.Post("/rounds/:id/open", admin_controllers.OpenRound)
	admin.Post("/rounds/:id/close", admin_controllers.CloseRound)
	admin.Put("/limits", admin_controllers.UpdateLimits)
	admin.Post("/auth", admin_controllers.SetAuth)
	admin.Put("/treasury", admin_controllers.SetTreasury)
	admin.Put("/referral/defaults", admin_controllers.SetDefaultRefRates)
	admin.Post("/referral/setup", admin_controllers.SetupReferral)
	admin.Post("/referral/enable", admin_controllers.EnableReferral)
	admin.Post("/referral/disable", admin_controllers.DisableReferral)
	admin.Post("/channels/pause", admin_controllers.PauseChannel)
	admin.Post("/channels/unpause", admin_controllers.UnpauseChannel)
	admin.Put("/channels/staleness", admin_controllers.SetStalenessThreshold)

	return app
}
