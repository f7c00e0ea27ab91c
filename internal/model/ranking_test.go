package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForBoundaries(t *testing.T) {
	table := DefaultTierTable()

	tests := []struct {
		name string
		exp  int64
		want Tier
	}{
		{"零经验", 0, TierBronze},
		{"青铜上界", 999, TierBronze},
		{"白银下界", 1000, TierSilver},
		{"白银上界", 2499, TierSilver},
		{"黄金下界", 2500, TierGold},
		{"铂金下界", 5000, TierPlatinum},
		{"钻石下界", 10000, TierDiamond},
		{"大师下界", 20000, TierMaster},
		{"传说下界", 50000, TierLegend},
		{"传说无上界", 99999999999, TierLegend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.exp, table).Tier)
		})
	}
}

func TestTierForNegativeExpFallsBackToLowest(t *testing.T) {
	table := DefaultTierTable()
	assert.Equal(t, TierBronze, TierFor(-1, table).Tier)
}

func TestTierTableOrdering(t *testing.T) {
	table := DefaultTierTable()
	require.Len(t, table, 7)

	for i, tc := range table {
		assert.Equal(t, i+1, tc.Order)
		if i > 0 {
			assert.Equal(t, table[i-1].MaxExp+1, tc.MinExp, "段位区间应连续无缝")
		}
	}
	assert.Equal(t, TierUnbounded, table[6].MaxExp)
}

func TestCalculateReward(t *testing.T) {
	table := DefaultTierTable()
	bronze := TierInfo(TierBronze, table)
	gold := TierInfo(TierGold, table)
	legend := TierInfo(TierLegend, table)

	tests := []struct {
		name string
		rank int
		tier TierConfig
		want int
	}{
		{"青铜第一名", 1, bronze, 500},
		{"青铜第二名", 2, bronze, 300},
		{"青铜第三名", 3, bronze, 300},
		{"青铜第四名", 4, bronze, 200},
		{"青铜第十名", 10, bronze, 200},
		{"青铜第十一名", 11, bronze, 150},
		{"青铜第二十名", 20, bronze, 150},
		{"青铜第二十一名", 21, bronze, 100},
		{"黄金第一名", 1, gold, 1500},
		{"传说第一名", 1, legend, 3500},
		{"传说第五十名", 50, legend, 700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateReward(tt.rank, tt.tier, 100))
		})
	}
}

func TestAssignGlobalRanksSharesTiedRanks(t *testing.T) {
	rows := []*GlobalRanking{
		{UserID: 1, TotalExp: 100},
		{UserID: 2, TotalExp: 250},
		{UserID: 3, TotalExp: 250},
		{UserID: 4, TotalExp: 300},
	}

	AssignGlobalRanks(rows)

	ranks := map[uint]int{}
	for _, row := range rows {
		ranks[row.UserID] = row.Rank
	}
	assert.Equal(t, 1, ranks[4])
	assert.Equal(t, 2, ranks[2], "并列者名次相同")
	assert.Equal(t, 2, ranks[3])
	assert.Equal(t, 4, ranks[1], "名次 = 严格更高者数 + 1")
}

func TestAssignGlobalRanksEmpty(t *testing.T) {
	assert.NotPanics(t, func() {
		AssignGlobalRanks(nil)
	})
}

func TestResultFromStatus(t *testing.T) {
	assert.Equal(t, ResultPromoted, ResultFromStatus(StatusPromotion))
	assert.Equal(t, ResultDemoted, ResultFromStatus(StatusDemotion))
	assert.Equal(t, ResultMaintained, ResultFromStatus(StatusSafe))
}

func TestExpTypeValid(t *testing.T) {
	assert.True(t, ExpTypeCoding.Valid())
	assert.True(t, ExpTypeCertification.Valid())
	assert.False(t, ExpType("bonus").Valid())
	assert.False(t, ExpType("").Valid())
}
