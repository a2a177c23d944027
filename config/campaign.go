package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// Campaign is the deploy-time description of one sale: component
// accounts, admission limits, referral defaults and the round table.
// Money fields are whole funding units or whole sale tokens as decimal
// strings; the bootstrap rescales them to base units.
type Campaign struct {
	LedgerAddress  string   `yaml:"ledger_address"`
	AdminAddress   string   `yaml:"admin_address"`
	Treasury       string   `yaml:"treasury"`
	NativeChannel  string   `yaml:"native_channel_address"`
	StableChannel  string   `yaml:"stable_channel_address"`
	OnRampRelayers []string `yaml:"onramp_relayers"`

	SaleAsset struct {
		Symbol   string `yaml:"symbol"`
		Decimals int32  `yaml:"decimals"`
	} `yaml:"sale_asset"`

	StableAsset struct {
		Symbol   string `yaml:"symbol"`
		Decimals int32  `yaml:"decimals"`
	} `yaml:"stable_asset"`

	Limits struct {
		Min       string `yaml:"min"`
		AuthLimit string `yaml:"auth_limit"`
		Max       string `yaml:"max"`
	} `yaml:"limits"`

	DefaultRefRates struct {
		First  uint32 `yaml:"first"`
		Second uint32 `yaml:"second"`
	} `yaml:"default_ref_rates"`

	// StalenessThreshold is a time.ParseDuration string, e.g. "1h".
	StalenessThreshold string `yaml:"staleness_threshold"`

	Rounds []struct {
		ShortPrice string `yaml:"short_price"`
		LongPrice  string `yaml:"long_price"`
		Supply     string `yaml:"supply"`
	} `yaml:"rounds"`
}

// LoadCampaign reads the campaign file named by CAMPAIGN_CONFIG, or
// the given path when non-empty.
func LoadCampaign(path string) (*Campaign, error) {
	if path == "" {
		path = os.Getenv("CAMPAIGN_CONFIG")
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var campaign Campaign
	if err := yaml.Unmarshal(raw, &campaign); err != nil {
		return nil, err
	}

	return &campaign, nil
}
