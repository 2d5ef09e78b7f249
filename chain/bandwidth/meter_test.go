package bandwidth

import "testing"

func testParams() Params {
	return Params{
		Precision:       1_000_000,
		WindowMs:        86_400_000,
		BlockIntervalMs: 3_000,
	}
}

func TestIncreaseStationaryIsIdentity(t *testing.T) {
	p := testParams()
	usage, err := Increase(1000, 0, 500, 500, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage != 1000 {
		t.Errorf("expected usage unchanged at 1000, got %d", usage)
	}
}

func TestIncreaseFullDecayAtWindowBoundary(t *testing.T) {
	p := testParams()
	window := int64(p.Window())

	usage, err := Increase(1000, 0, 0, window, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage != 0 {
		t.Errorf("expected full decay to 0 at exactly one window elapsed, got %d", usage)
	}

	usage, err = Increase(1000, 0, 0, window+5000, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage != 0 {
		t.Errorf("expected full decay to 0 past the window, got %d", usage)
	}
}

func TestIncreaseHalfWindowDecaysRoughlyInHalf(t *testing.T) {
	p := testParams()
	window := int64(p.Window())

	usage, err := Increase(1_000_000, 0, 0, window/2, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage < 499_000 || usage > 501_000 {
		t.Errorf("expected usage near half of 1,000,000 after half the window, got %d", usage)
	}
}

func TestIncreaseMonotoneInAddUsage(t *testing.T) {
	p := testParams()
	low, err := Increase(0, 100, 0, 0, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	high, err := Increase(0, 200, 0, 0, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high < low {
		t.Errorf("expected increasing add_usage to never decrease the result: low=%d high=%d", low, high)
	}
}

func TestIncreaseNeverNegative(t *testing.T) {
	p := testParams()
	usage, err := Increase(0, 0, 0, int64(p.Window())*10, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage != 0 {
		t.Errorf("expected 0, got %d", usage)
	}
}

func TestIncreaseClockWentBackwardsIsFatal(t *testing.T) {
	p := testParams()
	_, err := Increase(100, 0, 500, 499, p)
	if err == nil {
		t.Fatal("expected an error for now < lastTime")
	}
	if !IsFatal(err) {
		t.Errorf("expected a FatalError, got %v", err)
	}
}

func TestIncreaseAccumulatesAcrossCalls(t *testing.T) {
	p := testParams()
	usage, err := Increase(0, 500, 0, 0, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	usage, err = Increase(usage, 500, 0, 0, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage < 999 || usage > 1001 {
		t.Errorf("expected roughly 1000 after two same-slot additions of 500, got %d", usage)
	}
}

func TestGlobalNetLimitZeroWeightIsFatal(t *testing.T) {
	_, err := GlobalNetLimit(1_000_000, 1000, 0)
	if err == nil {
		t.Fatal("expected an error for zero total net weight")
	}
	if !IsFatal(err) {
		t.Errorf("expected a FatalError, got %v", err)
	}
}

func TestGlobalNetLimitBelowStakeDivisorRoundsToZero(t *testing.T) {
	limit, err := GlobalNetLimit(StakeDivisor-1, 1_000_000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 0 {
		t.Errorf("expected frozen balance below the stake divisor to floor to 0 net weight, got limit %d", limit)
	}
}

func TestGlobalNetLimitProportionalToStake(t *testing.T) {
	limit, err := GlobalNetLimit(10*StakeDivisor, 43_200_000_000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 43_200_000_000 {
		t.Errorf("expected full share of total_net_limit for 100%% of total_net_weight, got %d", limit)
	}
}
