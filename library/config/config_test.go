package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(WithLogLevel(zapcore.WarnLevel), WithWriteTimeout(time.Minute))
	require.NoError(t, err)

	require.Equal(t, zapcore.WarnLevel, cfg.Log.LogLevel)
	require.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	require.Equal(t, 14*24*time.Hour, cfg.Lending.LoanPeriod)
	require.InDelta(t, 0.5, cfg.Lending.PerDayRate, 1e-9)
	require.Equal(t, Plans{
		{Name: "basic", CheckoutLimit: 3},
		{Name: "premium", CheckoutLimit: 10, DiscountRate: 0.2},
	}, cfg.Lending.Plans)
	require.False(t, cfg.Kafka.Enabled())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("LIBRARY_HTTP_PORT", "9000")
	t.Setenv("LOAN_PERIOD", "168h")
	t.Setenv("PER_DAY_RATE", "1.25")
	t.Setenv("MEMBERSHIP_PLANS", "student:2:0.5")
	t.Setenv("KAFKA_ADDRS", "kafka:9092,kafka2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, 7*24*time.Hour, cfg.Lending.LoanPeriod)
	require.InDelta(t, 1.25, cfg.Lending.PerDayRate, 1e-9)
	require.Equal(t, Plans{{Name: "student", CheckoutLimit: 2, DiscountRate: 0.5}}, cfg.Lending.Plans)
	require.Equal(t, []string{"kafka:9092", "kafka2:9092"}, cfg.Kafka.Addrs)
	require.True(t, cfg.Kafka.Enabled())
}

func TestPlans_Decode(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Plans
		wantErr bool
	}{
		{
			name:  "several",
			value: "basic:3:0, premium:10:0.2",
			want: Plans{
				{Name: "basic", CheckoutLimit: 3},
				{Name: "premium", CheckoutLimit: 10, DiscountRate: 0.2},
			},
		},
		{name: "empty", value: ""},
		{name: "missing discount", value: "basic:3", wantErr: true},
		{name: "bad limit", value: "basic:-1:0", wantErr: true},
		{name: "bad discount", value: "basic:1:half", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var p Plans
			err := p.Decode(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, p)
		})
	}
}
