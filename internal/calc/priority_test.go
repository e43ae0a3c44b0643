package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	l := DefaultLadders()

	tests := []struct {
		name    string
		payback Figure
		savings float64
		co2     float64
		d       Difficulty
		usage   float64
		want    float64
	}{
		{name: "clamped high", payback: Defined(6), savings: 25000, co2: 60, d: Easy, usage: 20000, want: 1.0},
		{name: "middle", payback: Defined(18), savings: 6000, co2: 30, d: Medium, usage: 5000, want: 0.85},
		{name: "between 36 and 60 is neutral", payback: Defined(48), savings: 0, co2: 0, d: Medium, usage: 0, want: 0.5},
		{name: "slow and hard", payback: Defined(90), savings: 100, co2: 1, d: Hard, usage: 100, want: 0.25},
		{name: "undefined payback is slow", payback: Undefined(), savings: 0, co2: 0, d: Medium, usage: 0, want: 0.35},
		{name: "unknown difficulty is neutral", payback: Defined(30), savings: 3000, co2: 12, d: "", usage: 0, want: 0.65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, l.Score(tt.payback, tt.savings, tt.co2, tt.d, tt.usage), 1e-9)
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	l := DefaultLadders()
	paybacks := []Figure{Defined(0), Defined(12), Defined(24.5), Defined(40), Defined(61), Undefined()}
	values := []float64{0, 2500, 12000, 50000}
	tons := []float64{0, 11, 26, 80}

	for _, base := range []float64{0.1, 0.5, 0.9} {
		lb := l.WithBase(base)
		for _, p := range paybacks {
			for _, s := range values {
				for _, c := range tons {
					for _, d := range []Difficulty{Easy, Medium, Hard} {
						for _, u := range []float64{0, 20000} {
							score := lb.Score(p, s, c, d, u)
							assert.GreaterOrEqual(t, score, 0.1)
							assert.LessOrEqual(t, score, 1.0)
						}
					}
				}
			}
		}
	}
}

func TestScore_EasyBeatsHard(t *testing.T) {
	l := DefaultLadders()

	good := l.Score(Defined(10), 15000, 30, Easy, 2000)
	bad := l.Score(Defined(72), 500, 2, Hard, 2000)
	assert.Greater(t, good, bad)
}

func TestScore_CustomLadders(t *testing.T) {
	l := DefaultLadders()
	l.Usage = []Rung{{Threshold: 1000, Adjust: 0.3}}

	assert.InDelta(t, 0.8, l.Score(Defined(48), 0, 0, Medium, 5000), 1e-9)
	assert.InDelta(t, 0.1, l.WithBase(0.1).Score(Defined(90), 0, 0, Hard, 0), 1e-9)
}
