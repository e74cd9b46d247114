package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":       "0",
		"999":     "999",
		"25000":   "25,000",
		"1000000": "1,000,000",
		"-1500":   "-1,500",
		"1234.6":  "1,235",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestGenerateDeliveryNote(t *testing.T) {
	shipped := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	note := ports.DeliveryNote{
		ShopName: "Duka Centro",
		FromName: "Almacén principal",
		ToName:   "Norte",
		Transfer: &entity.StockTransfer{
			TransferNumber: "TRF-20240301-0001",
			Priority:       entity.PriorityNormal,
			Status:         entity.TransferInTransit,
			ShippedAt:      &shipped,
			Carrier:        "Moto",
			Items: []entity.TransferItem{
				{ProductName: "Arroz 1kg", SKU: "ARZ-1", Quantity: 10, UnitCost: decimal.NewFromInt(100)},
			},
			TotalValue: decimal.NewFromInt(1000),
		},
	}

	out, err := NewMarotoDeliveryNoteGenerator().GenerateDeliveryNote(context.Background(), note)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateDeliveryNote_RequiresTransfer(t *testing.T) {
	_, err := NewMarotoDeliveryNoteGenerator().GenerateDeliveryNote(context.Background(), ports.DeliveryNote{})
	assert.Error(t, err)
}
