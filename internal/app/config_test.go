package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	require.True(t, cfg.ShippingCost.Equal(decimal.NewFromInt(60)))
	require.True(t, cfg.LowStockThresholdML.Equal(decimal.NewFromInt(10)))
	require.Equal(t, 3, cfg.FulfillmentMaxAttempts)
	require.Equal(t, "Asia/Dhaka", cfg.Location().String())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SHIPPING_COST", "120.50")
	t.Setenv("NOTIFIER_DRIVER", " Kafka ")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STORE_TIMEZONE", "UTC")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "120.5", cfg.ShippingCost.String())
	require.Equal(t, NotifierKafka, cfg.NotifierDriver)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, time.UTC, cfg.Location())
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"zero attempts":    {"FULFILLMENT_MAX_ATTEMPTS", "0"},
		"unknown notifier": {"NOTIFIER_DRIVER", "carrier-pigeon"},
		"bad timezone":     {"STORE_TIMEZONE", "Mars/Olympus_Mons"},
		"free shipping":    {"SHIPPING_COST", "0"},
		"bad threshold":    {"LOW_STOCK_THRESHOLD_ML", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNilConfigLocation(t *testing.T) {
	var cfg *Config
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn", AppEnv: "test"}, &buf)
	logger.Info("hidden")
	require.Zero(t, buf.Len())
	logger.Warn("shown")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"env":"test"`)
}

func TestSetTestMode(t *testing.T) {
	SetTestMode(true)
	require.True(t, InTestMode())
	SetTestMode(false)
	require.False(t, InTestMode())
}
