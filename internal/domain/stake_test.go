package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStakeAccruedReward(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		principal int64
		rateBps   int64
		elapsed   time.Duration
		want      int64
	}{
		{
			name:      "ten percent for a full year",
			principal: 1000,
			rateBps:   1000,
			elapsed:   365 * 24 * time.Hour,
			want:      100,
		},
		{
			name:      "half year accrues half",
			principal: 1000,
			rateBps:   1000,
			elapsed:   365 * 12 * time.Hour,
			want:      50,
		},
		{
			name:      "sub-unit accrual truncates to zero",
			principal: 1,
			rateBps:   100,
			elapsed:   time.Hour,
			want:      0,
		},
		{
			name:      "truncation floors toward zero",
			principal: 1000,
			rateBps:   1000,
			elapsed:   100_000 * time.Second, // 1000*1000*100000/(10000*31536000) = 0.317...
			want:      0,
		},
		{
			name:      "zero elapsed accrues nothing",
			principal: 1000,
			rateBps:   1000,
			elapsed:   0,
			want:      0,
		},
		{
			name:      "zero rate accrues nothing",
			principal: 1000,
			rateBps:   0,
			elapsed:   365 * 24 * time.Hour,
			want:      0,
		},
		{
			name:      "large principal stays exact",
			principal: 1_000_000_000_000,
			rateBps:   500,
			elapsed:   365 * 24 * time.Hour,
			want:      50_000_000_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Stake{
				Address:     "0x00000000000000000000000000000000000000aa",
				Principal:   decimal.NewFromInt(tt.principal),
				StartedAt:   start,
				LastAccrual: start,
			}

			got := s.AccruedReward(tt.rateBps, start.Add(tt.elapsed))
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Fatalf("AccruedReward() = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestStakeAccruedRewardInactive(t *testing.T) {
	now := time.Now().UTC()

	var nilStake *Stake
	if !nilStake.AccruedReward(1000, now).IsZero() {
		t.Fatal("nil stake must accrue nothing")
	}

	empty := &Stake{Principal: decimal.Zero, LastAccrual: now.Add(-time.Hour)}
	if !empty.AccruedReward(1000, now).IsZero() {
		t.Fatal("zero principal must accrue nothing")
	}
}

func TestStakeActive(t *testing.T) {
	if (&Stake{Principal: decimal.Zero}).Active() {
		t.Fatal("zero principal must not be active")
	}
	if !(&Stake{Principal: decimal.NewFromInt(1)}).Active() {
		t.Fatal("positive principal must be active")
	}
	var nilStake *Stake
	if nilStake.Active() {
		t.Fatal("nil stake must not be active")
	}
}
