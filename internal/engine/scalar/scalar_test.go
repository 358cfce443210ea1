package scalar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"5000-7000 دولار", 6000, true},
		{"عالي", CostHigh, true},
		{"مرتفع جدا", CostHigh, true},
		{"متوسط جدا", CostVeryMedium, true},
		{"متوسط", CostMedium, true},
		{"منخفض", CostLow, true},
		{"150 ريال", 150, true},
		{"من 100 الى 300", 200, true},
		{"١٢٠٠ دينار", 1200, true},
		{"20 جهاز بسعر 50", 20, true},
		{"Medium", CostMedium, true},
		{"5000 to 7000 usd", 6000, true},
		{"very medium", CostVeryMedium, true},
		{"HIGH", CostHigh, true},
		{"highway repairs", 0, false},
		{"below budget", 0, false},
		{"cash flow issue", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"غير معروف", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCost(tt.in)
			require.Equal(t, tt.wantOK, ok)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDurationDays(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"3 اسابيع", 21, true},
		{"فوري", 0, true},
		{"حوالي 2-4 أشهر", 90, true},
		{"12 ساعة", 0.5, true},
		{"5 ايام", 5, true},
		{"1440 دقيقة", 1, true},
		{"2 weeks", 14, true},
		{"2 to 4 weeks", 21, true},
		{"3 Days", 3, true},
		{"immediately", 0, true},
		{"ship today 3", 0, false},
		{"3 tomatoes in 5 days", 3, true},
		{"weekend 2", 0, false},
		{"30", 0, false},
		{"نص بدون رقم أو وحدة", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDurationDays(tt.in)
			require.Equal(t, tt.wantOK, ok)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
