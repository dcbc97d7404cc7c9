package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStressScenarioValidate(t *testing.T) {
	cases := []struct {
		name     string
		scenario StressScenario
		wantErr  bool
	}{
		{"valid price shock", StressScenario{Name: "CRASH", Type: ScenarioPriceShock, ShockFactor: -0.3}, false},
		{"valid spike", StressScenario{Name: "SPIKE", Type: ScenarioVolatilitySpike, SpikeFactor: 2}, false},
		{"valid correlation break", StressScenario{Name: "BREAK", Type: ScenarioCorrelationBreak}, false},
		{"missing name", StressScenario{Type: ScenarioPriceShock}, true},
		{"shock below -1", StressScenario{Name: "X", Type: ScenarioPriceShock, ShockFactor: -1.5}, true},
		{"zero spike", StressScenario{Name: "X", Type: ScenarioVolatilitySpike}, true},
		{"unknown type", StressScenario{Name: "X", Type: "LIQUIDITY"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scenario.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalidParameter, KindOf(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStressEnginePriceShock(t *testing.T) {
	engine := NewStressTestEngine(1000, 1)
	p := testPortfolio(0.25)

	results, err := engine.Run(p, []StressScenario{
		{Name: "DOWN_20", Type: ScenarioPriceShock, ShockFactor: -0.2},
	})
	require.NoError(t, err)

	impact := results["DOWN_20"]
	require.NotNil(t, impact)
	assert.True(t, impact.PreValue.Equal(decimal.NewFromInt(100000)))
	assert.True(t, impact.PostValue.Equal(decimal.NewFromInt(80000)), "got %s", impact.PostValue)
	assert.True(t, impact.PnL.Equal(decimal.NewFromInt(-20000)))
}

func TestStressEnginePriceShockShortPosition(t *testing.T) {
	engine := NewStressTestEngine(1000, 1)
	p := &PortfolioSnapshot{
		PortfolioID: "PF-SHORT",
		TotalValue:  decimal.NewFromInt(100000),
		Positions: []Position{
			{Commodity: "GAS", Quantity: decimal.NewFromInt(-500), Price: decimal.NewFromInt(40)},
		},
		Volatility: 0.3,
	}

	results, err := engine.Run(p, []StressScenario{
		{Name: "UP_50", Type: ScenarioPriceShock, ShockFactor: 0.5},
	})
	require.NoError(t, err)

	// 空头在价格上涨情景下亏损
	impact := results["UP_50"]
	assert.True(t, impact.PnL.IsNegative(), "short position pnl should be negative, got %s", impact.PnL)
}

func TestStressEngineVolatilitySpike(t *testing.T) {
	engine := NewStressTestEngine(2000, 1)
	p := testPortfolio(0.25)

	results, err := engine.Run(p, []StressScenario{
		{Name: "SPIKE_3X", Type: ScenarioVolatilitySpike, SpikeFactor: 3},
	})
	require.NoError(t, err)

	impact := results["SPIKE_3X"]
	require.NotNil(t, impact)
	assert.True(t, impact.PnL.IsNegative())
	// 波动率放大后损失大于基础 VaR 口径
	base, err := (&MonteCarloVaR{Simulations: 2000, Seed: 1}).Calculate(p, 0.95, 1)
	require.NoError(t, err)
	assert.True(t, impact.PnL.Neg().GreaterThan(base.Value))
}

func TestStressEngineRunValidation(t *testing.T) {
	engine := NewStressTestEngine(100, 1)

	_, err := engine.Run(nil, []StressScenario{{Name: "X", Type: ScenarioPriceShock}})
	require.Error(t, err)

	_, err = engine.Run(testPortfolio(0.25), nil)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidParameter, KindOf(err))
}

func TestScenarioAnalysisWorstCase(t *testing.T) {
	engine := NewStressTestEngine(500, 1)
	p := testPortfolio(0.25)

	analysis, err := engine.Analyze(p, []StressScenario{
		{Name: "MILD", Type: ScenarioPriceShock, ShockFactor: -0.05},
		{Name: "SEVERE", Type: ScenarioPriceShock, ShockFactor: -0.45},
	})
	require.NoError(t, err)
	assert.Equal(t, "SEVERE", analysis.WorstCase)
	assert.True(t, analysis.WorstPnL.Equal(decimal.NewFromInt(-45000)))
}

func TestScenarioAnalysisDefaultScenarios(t *testing.T) {
	engine := NewStressTestEngine(500, 1)
	analysis, err := engine.Analyze(testPortfolio(0.25), nil)
	require.NoError(t, err)
	assert.Len(t, analysis.Results, len(DefaultScenarios()))
	assert.NotEmpty(t, analysis.WorstCase)
}
