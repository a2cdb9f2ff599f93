package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"OptionSentinel/internal/model"
)

func TestFormatOptionTicker(t *testing.T) {
	tests := []struct {
		name string
		pos  model.Position
		want string
	}{
		{
			name: "call",
			pos: model.Position{
				Underlying: "QQQ",
				Kind:       model.Call,
				Strike:     620,
				Expiration: time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC),
			},
			want: "QQQ260126C00620000",
		},
		{
			name: "put",
			pos: model.Position{
				Underlying: "QQQ",
				Kind:       model.Put,
				Strike:     480,
				Expiration: time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC),
			},
			want: "QQQ251219P00480000",
		},
		{
			// 2.01*1000 is 2009.999... in float64; the symbol must
			// still read 2010.
			name: "inexact fractional strike",
			pos: model.Position{
				Underlying: "XYZ",
				Kind:       model.Call,
				Strike:     2.01,
				Expiration: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			},
			want: "XYZ260320C00002010",
		},
		{
			name: "fractional strike",
			pos: model.Position{
				Underlying: "SPY",
				Kind:       model.Call,
				Strike:     452.5,
				Expiration: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			},
			want: "SPY260320C00452500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOptionTicker(&tt.pos))
		})
	}
}
