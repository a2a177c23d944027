package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/assets"
	"github.com/zsmartex/launchpad/config"
	"github.com/zsmartex/launchpad/controllers"
	"github.com/zsmartex/launchpad/routes"
	"github.com/zsmartex/launchpad/sale"
	"github.com/zsmartex/launchpad/types"
)

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}

	campaign, err := config.LoadCampaign("")
	if err != nil {
		config.Logger.Fatalf("load campaign: %v", err)
	}

	ledger, native, stable, claimAssets, err := bootstrap(campaign)
	if err != nil {
		config.Logger.Fatalf("bootstrap: %v", err)
	}

	controllers.Initialize(ledger, native, stable, claimAssets)

	r := routes.SetupRouter()
	r.Listen(":3000")
}

// bootstrap builds the ledger and the two channels from the campaign
// file: capability grants, limits, treasury, referral defaults and the
// round table. Nothing is implicit; a channel can settle only because
// it is granted operator here.
func bootstrap(campaign *config.Campaign) (*sale.SaleLedger, *sale.NativeChannel, *sale.StableChannel, map[string]sale.Fungible, error) {
	bank := assets.NewBank()
	bank.Register(campaign.SaleAsset.Symbol, campaign.SaleAsset.Decimals)
	bank.Register(campaign.StableAsset.Symbol, campaign.StableAsset.Decimals)

	ledgerAddr := types.Address(campaign.LedgerAddress)
	admin := types.Address(campaign.AdminAddress)

	ledger, err := sale.NewSaleLedger(ledgerAddr, admin, bank.Handle(campaign.SaleAsset.Symbol, ledgerAddr), config.Nats)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	oracle := sale.NewOracleAdapter(sale.NewCachedPriceFeed(config.Redis, ""))

	nativeAddr := types.Address(campaign.NativeChannel)
	native, err := sale.NewNativeChannel(nativeAddr, admin, ledger, bank.Vault(), oracle, config.Nats)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	stableAddr := types.Address(campaign.StableChannel)
	stable, err := sale.NewStableChannel(stableAddr, admin, ledger, bank.Handle(campaign.StableAsset.Symbol, stableAddr), config.Nats)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	for _, operator := range []types.Address{nativeAddr, stableAddr, admin} {
		if err := ledger.Grant(admin, types.RoleOperator, operator); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	for _, relayer := range campaign.OnRampRelayers {
		if err := native.GrantOnRamp(admin, types.Address(relayer)); err != nil {
			return nil, nil, nil, nil, err
		}
		if err := stable.GrantOnRamp(admin, types.Address(relayer)); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	if err := ledger.SetTreasury(admin, types.Address(campaign.Treasury)); err != nil {
		return nil, nil, nil, nil, err
	}

	max, err := fundingUnits(campaign.Limits.Max)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := ledger.SetMax(admin, max); err != nil {
		return nil, nil, nil, nil, err
	}

	authLimit, err := fundingUnits(campaign.Limits.AuthLimit)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := ledger.SetAuthLimit(admin, authLimit); err != nil {
		return nil, nil, nil, nil, err
	}

	min, err := fundingUnits(campaign.Limits.Min)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := ledger.SetMin(admin, min); err != nil {
		return nil, nil, nil, nil, err
	}

	if err := ledger.SetDefaultRefRates(admin, campaign.DefaultRefRates.First, campaign.DefaultRefRates.Second); err != nil {
		return nil, nil, nil, nil, err
	}

	for _, round := range campaign.Rounds {
		shortPrice, err := fundingUnits(round.ShortPrice)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		longPrice, err := fundingUnits(round.LongPrice)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		supply, err := decimal.NewFromString(round.Supply)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		if err := ledger.AddRound(admin, shortPrice, longPrice, supply.Shift(campaign.SaleAsset.Decimals)); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	if campaign.StalenessThreshold != "" {
		threshold, err := time.ParseDuration(campaign.StalenessThreshold)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		if err := native.SetPriceStalenessThreshold(admin, threshold); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	claimAssets := map[string]sale.Fungible{
		campaign.SaleAsset.Symbol:   bank.Handle(campaign.SaleAsset.Symbol, ledgerAddr),
		campaign.StableAsset.Symbol: bank.Handle(campaign.StableAsset.Symbol, ledgerAddr),
		assets.NativeSymbol:         bank.Handle(assets.NativeSymbol, ledgerAddr),
	}

	return ledger, native, stable, claimAssets, nil
}

func fundingUnits(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return d.Shift(sale.FundingDecimals), nil
}
