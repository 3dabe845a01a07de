package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRegionFees(t *testing.T) {
	fees := parseRegionFees("North=700, south = 900,broken,east=abc")

	assert.Equal(t, map[string]int64{"north": 700, "south": 900}, fees)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitCSV(" a:9092 ,, b:9092 "))
	assert.Empty(t, splitCSV(""))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TAX_DEFAULT_RATE", "0.10")
	t.Setenv("DELIVERY_FREE_REGIONS", "Downtown,Harbor")

	cfg := Load()

	assert.Equal(t, "0.1", cfg.Pricing.DefaultTaxRate.String())
	assert.Equal(t, []string{"downtown", "harbor"}, cfg.Delivery.FreeRegions)
	assert.Equal(t, int64(500), cfg.Delivery.FlatFee)
	assert.Equal(t, 3, cfg.TxMaxAttempts)
	assert.Equal(t, "system", cfg.SystemActorID)
}
