package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, DriverPostgres, cfg.ReceiptSequencer)
	assert.Equal(t, AuthJWT, cfg.AuthMode)
	assert.Equal(t, "KES", cfg.Currency)
	assert.Equal(t, int32(2), cfg.CurrencyExponent)
	assert.Equal(t, 5, cfg.PaymentMaxRetries)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "memory dev setup",
			env: map[string]string{
				"STORE_DRIVER":      "memory",
				"RECEIPT_SEQUENCER": "memory",
				"AUTH_MODE":         "dev",
				"TIMEZONE":          "Africa/Nairobi",
				"CURRENCY_EXPONENT": "0",
				"MIGRATE_ON_START":  "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DriverMemory, cfg.StoreDriver)
				assert.Equal(t, "Africa/Nairobi", cfg.Location().String())
				assert.Equal(t, int32(0), cfg.CurrencyExponent)
				assert.True(t, cfg.MigrateOnStart)
			},
		},
		{
			name:    "jwt without secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "unknown store",
			env:     map[string]string{"STORE_DRIVER": "mongo", "JWT_SECRET": "x"},
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "postgres sequencer without postgres",
			env:     map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "x"},
			wantErr: "RECEIPT_SEQUENCER",
		},
		{
			name:    "memory sequencer over postgres",
			env:     map[string]string{"RECEIPT_SEQUENCER": "memory", "JWT_SECRET": "x"},
			wantErr: "RECEIPT_SEQUENCER=memory",
		},
		{
			name:    "dev auth in production",
			env:     map[string]string{"ENVIRONMENT": "production", "AUTH_MODE": "dev"},
			wantErr: "AUTH_MODE",
		},
		{
			name:    "bad timezone",
			env:     map[string]string{"TIMEZONE": "Mars/Olympus", "JWT_SECRET": "x"},
			wantErr: "TIMEZONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
