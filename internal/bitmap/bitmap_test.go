package bitmap

import "testing"

const testOffset = 700_000 // larger than tickmath.MaxTick, keeps positions non-negative

func TestFlipAndIsSet(t *testing.T) {
	m := New()
	chunk, bit := PositionOf(100, 10, testOffset)
	if m.IsSet(chunk, bit) {
		t.Fatalf("tick should start uninitialized")
	}
	m.Flip(chunk, bit)
	if !m.IsSet(chunk, bit) {
		t.Fatalf("tick should be initialized after flip")
	}
	m.Flip(chunk, bit)
	if m.IsSet(chunk, bit) {
		t.Fatalf("tick should be uninitialized after flipping twice")
	}
}

func TestNextInitialized(t *testing.T) {
	m := New()
	spacing := uint16(10)
	for _, tick := range []int32{120, 200, 500} {
		c, b := PositionOf(tick, spacing, testOffset)
		m.Flip(c, b)
	}

	got, ok := m.NextInitialized(100, spacing, testOffset)
	if !ok || got != 120 {
		t.Fatalf("expected next initialized tick 120, got %d ok=%v", got, ok)
	}

	got, ok = m.NextInitialized(120, spacing, testOffset)
	if !ok || got != 200 {
		t.Fatalf("NextInitialized should be strictly greater than current, expected 200, got %d ok=%v", got, ok)
	}
}

func TestPrevInitializedInclusive(t *testing.T) {
	m := New()
	spacing := uint16(10)
	c, b := PositionOf(200, spacing, testOffset)
	m.Flip(c, b)

	got, ok := m.PrevInitialized(200, spacing, testOffset)
	if !ok || got != 200 {
		t.Fatalf("PrevInitialized should be inclusive of current, expected 200, got %d ok=%v", got, ok)
	}

	got, ok = m.PrevInitialized(250, spacing, testOffset)
	if !ok || got != 200 {
		t.Fatalf("expected prev initialized tick 200, got %d ok=%v", got, ok)
	}
}

func TestSearchWindowExhausted(t *testing.T) {
	m := New()
	spacing := uint16(1)
	_, ok := m.NextInitialized(0, spacing, testOffset)
	if ok {
		t.Fatalf("an empty bitmap should never report a hit")
	}
}
