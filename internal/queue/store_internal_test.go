package queue

import (
	"testing"
	"time"
)

func TestTimeFormatSortsInTimestampOrder(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	earlier := base.Add(120 * time.Millisecond)
	later := base.Add(123 * time.Millisecond)

	a := earlier.Format(timeFormat)
	b := later.Format(timeFormat)
	if !(a < b) {
		t.Fatalf("%q should sort before %q", a, b)
	}

	// RFC3339Nano strips trailing zeros, which is why it cannot be used.
	if earlier.Format(time.RFC3339Nano) < later.Format(time.RFC3339Nano) {
		t.Fatal("expected RFC3339Nano ordering to break for these inputs")
	}
}

func TestParseTimeStringAcceptsStoredFormats(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 120000000, time.UTC)

	for _, value := range []string{
		now.Format(timeFormat),
		now.Format(time.RFC3339Nano),
	} {
		parsed, err := parseTimeString(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if !parsed.Equal(now) {
			t.Errorf("parse %q = %v, want %v", value, parsed, now)
		}
	}
}
