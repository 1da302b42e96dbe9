package domain

// FillModelProfile holds the probabilistic execution parameters of a fill model.
type FillModelProfile struct {
	Name                 string  // "CONSERVATIVE" | "STANDARD" | "AGGRESSIVE" | "CUSTOM"
	LimitFillProbability float64 // chance a passive limit order fills per bar
	SlippageProbability  float64 // chance a market fill is slipped
	AvgSlippageBps       float64 // average adverse slippage in basis points
	BaseLatencyMs        float64 // fixed latency component
	LatencyVarianceMs    float64 // uniform jitter half-width
	LatencySizeFactorMs  float64 // extra latency per unit of quantity
}

// Fill model name constants
const (
	FillModelConservative = "CONSERVATIVE"
	FillModelStandard     = "STANDARD"
	FillModelAggressive   = "AGGRESSIVE"
	FillModelCustom       = "CUSTOM"
)

// Predefined fill model profiles.
// Presets differ only in fill probability, slippage and latency.
var (
	FillProfileConservative = FillModelProfile{
		Name:                 FillModelConservative,
		LimitFillProbability: 0.3,
		SlippageProbability:  0.8,
		AvgSlippageBps:       10,
		BaseLatencyMs:        100,
		LatencyVarianceMs:    50,
		LatencySizeFactorMs:  0.01,
	}

	FillProfileStandard = FillModelProfile{
		Name:                 FillModelStandard,
		LimitFillProbability: 0.5,
		SlippageProbability:  0.5,
		AvgSlippageBps:       5,
		BaseLatencyMs:        50,
		LatencyVarianceMs:    20,
		LatencySizeFactorMs:  0.005,
	}

	FillProfileAggressive = FillModelProfile{
		Name:                 FillModelAggressive,
		LimitFillProbability: 0.8,
		SlippageProbability:  0.2,
		AvgSlippageBps:       2,
		BaseLatencyMs:        10,
		LatencyVarianceMs:    5,
		LatencySizeFactorMs:  0.001,
	}
)

// FillProfileByName returns a preset profile.
func FillProfileByName(name string) (FillModelProfile, bool) {
	switch name {
	case FillModelConservative:
		return FillProfileConservative, true
	case FillModelStandard, "":
		return FillProfileStandard, true
	case FillModelAggressive:
		return FillProfileAggressive, true
	default:
		return FillModelProfile{}, false
	}
}
