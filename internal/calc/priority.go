package calc

import "math"

// Rung is one step of a threshold ladder.
type Rung struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Adjust    float64 `json:"adjust" yaml:"adjust"`
}

// PriorityLadders configures the additive priority heuristic. Payback rungs
// match when months <= Threshold; SlowPayback matches when months exceed its
// threshold. The other ladders match when the value exceeds Threshold. Each
// ladder applies its first matching rung only.
type PriorityLadders struct {
	Base        float64                `json:"base" yaml:"base"`
	Payback     []Rung                 `json:"payback" yaml:"payback"`
	SlowPayback Rung                   `json:"slow_payback" yaml:"slow_payback"`
	Savings     []Rung                 `json:"savings" yaml:"savings"`
	CO2         []Rung                 `json:"co2" yaml:"co2"`
	Usage       []Rung                 `json:"usage" yaml:"usage"`
	Difficulty  map[Difficulty]float64 `json:"difficulty" yaml:"difficulty"`
	Min         float64                `json:"min" yaml:"min"`
	Max         float64                `json:"max" yaml:"max"`
}

// DefaultLadders returns the tuned production ladders.
func DefaultLadders() PriorityLadders {
	return PriorityLadders{
		Base:        0.5,
		Payback:     []Rung{{12, 0.25}, {24, 0.15}, {36, 0.05}},
		SlowPayback: Rung{60, -0.15},
		Savings:     []Rung{{20000, 0.20}, {10000, 0.15}, {5000, 0.10}, {2000, 0.05}},
		CO2:         []Rung{{50, 0.15}, {25, 0.10}, {10, 0.05}},
		Usage:       []Rung{{10000, 0.10}},
		Difficulty:  map[Difficulty]float64{Easy: 0.10, Medium: 0, Hard: -0.10},
		Min:         0.1,
		Max:         1.0,
	}
}

// WithBase returns a copy of the ladders starting from base.
func (l PriorityLadders) WithBase(base float64) PriorityLadders {
	l.Base = base
	return l
}

// Score ranks a project in [Min, Max], rounded to 2 decimals. An undefined
// payback counts as slow.
func (l PriorityLadders) Score(roiMonths Figure, annualSavings, co2Tons float64, d Difficulty, energyUsage float64) float64 {
	score := l.Base

	if roiMonths.Defined {
		matched := false
		for _, r := range l.Payback {
			if roiMonths.Value <= r.Threshold {
				score += r.Adjust
				matched = true
				break
			}
		}
		if !matched && roiMonths.Value > l.SlowPayback.Threshold {
			score += l.SlowPayback.Adjust
		}
	} else {
		score += l.SlowPayback.Adjust
	}

	score += above(l.Savings, annualSavings)
	score += above(l.CO2, co2Tons)
	score += l.Difficulty[d]
	score += above(l.Usage, energyUsage)

	return math.Max(l.Min, math.Min(l.Max, Round(score, 2)))
}

func above(ladder []Rung, v float64) float64 {
	for _, r := range ladder {
		if v > r.Threshold {
			return r.Adjust
		}
	}
	return 0
}
