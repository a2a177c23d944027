package cron

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/jasonlvhit/gocron"
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/config"
	"github.com/zsmartex/launchpad/sale"
)

// OraclePriceJob keeps the native asset quote fresh in Redis for the
// cached price feed. Purchases reject on their own staleness threshold,
// so a fetch failure here only narrows the buying window.
type OraclePriceJob struct {
}

func (j *OraclePriceJob) Process() {
	s := gocron.NewScheduler()
	s.Every(5).Minutes().Do(refreshOraclePrice)
	refreshOraclePrice()
	<-s.Start()
}

func refreshOraclePrice() {
	resp, err := http.Get(os.Getenv("ORACLE_FEED_URL"))
	if err != nil {
		config.Logger.Errorf("[launchpad.oracle_price] fetch: %v", err)
		return
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		config.Logger.Errorf("[launchpad.oracle_price] read: %v", err)
		return
	}

	// The feed answers {"USD": <price>} for the native asset.
	var quote map[string]float64
	if err := json.Unmarshal(body, &quote); err != nil {
		config.Logger.Errorf("[launchpad.oracle_price] decode: %v", err)
		return
	}

	usd, ok := quote["USD"]
	if !ok || usd <= 0 {
		config.Logger.Errorf("[launchpad.oracle_price] no USD quote in %s", string(body))
		return
	}

	cached := sale.CachedPrice{
		Price:     decimal.NewFromFloat(usd),
		UpdatedAt: time.Now(),
	}

	if err := config.Redis.SetKey(sale.OraclePriceKey, cached, 0); err != nil {
		config.Logger.Errorf("[launchpad.oracle_price] cache: %v", err)
	}
}
