package engines

import (
	"encoding/json"

	"github.com/zsmartex/launchpad/config"
	"github.com/zsmartex/launchpad/models"
	"github.com/zsmartex/launchpad/sale"
)

// RecorderWorker consumes the ledger's event stream and persists the
// journal rows, plus purchase metric points for dashboards.
type RecorderWorker struct {
}

func NewRecorderWorker() *RecorderWorker {
	return &RecorderWorker{}
}

func (w *RecorderWorker) Subjects() []string {
	return []string{sale.SubjectPurchase, sale.SubjectClaim, sale.SubjectRound}
}

func (w *RecorderWorker) Process(subject string, payload []byte) error {
	switch subject {
	case sale.SubjectPurchase:
		return w.recordPurchase(payload)
	case sale.SubjectClaim:
		return w.recordClaim(payload)
	case sale.SubjectRound:
		return w.recordRound(payload)
	}

	return nil
}

func (w *RecorderWorker) recordPurchase(payload []byte) error {
	var event *sale.PurchaseEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	purchase := &models.Purchase{
		UUID:      event.UUID,
		Payer:     string(event.Payer),
		Asset:     event.Asset,
		Referrer:  event.Referrer,
		Amount:    event.Amount,
		Funds:     event.Funds,
		Tier:      event.Tier,
		SoldUnits: event.SoldUnits,
		Round:     event.Round,
		CreatedAt: event.CreatedAt,
	}

	if err := config.DataBase.Create(&purchase).Error; err != nil {
		return err
	}

	asset := "native"
	if event.Asset.Valid {
		asset = event.Asset.String
	}

	config.InfluxDB.NewPoint(
		"purchases",
		map[string]string{"tier": event.Tier, "asset": asset},
		map[string]interface{}{
			"amount":     event.Amount.InexactFloat64(),
			"funds":      event.Funds.InexactFloat64(),
			"sold_units": event.SoldUnits.InexactFloat64(),
		},
	)

	return nil
}

func (w *RecorderWorker) recordClaim(payload []byte) error {
	var event *sale.ClaimEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	claim := &models.ReferralClaim{
		Referrer:  string(event.Referrer),
		Asset:     event.Asset,
		Amount:    event.Amount,
		CreatedAt: event.CreatedAt,
	}

	return config.DataBase.Create(&claim).Error
}

func (w *RecorderWorker) recordRound(payload []byte) error {
	var event *sale.RoundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	row := &models.RoundEvent{
		Action:     event.Action,
		RoundIndex: event.Index,
		State:      event.State,
		ShortPrice: event.ShortPrice,
		LongPrice:  event.LongPrice,
		Sold:       event.Sold,
		Supply:     event.Supply,
		CreatedAt:  event.CreatedAt,
	}

	return config.DataBase.Create(&row).Error
}
