package sharding

import (
	"errors"
	"testing"
	"time"
)

func fixedNow(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, 6, 15, 12, 0, 0, 0, time.UTC)
	}
}

func newTestRouter(earliestYear, currentYear int) (*Router, *Shard, *Shard) {
	a := &Shard{Name: "shard-a"}
	b := &Shard{Name: "shard-b"}
	r := NewRouter(a, b, earliestYear)
	r.nowFunc = fixedNow(currentYear)
	return r, a, b
}

func TestShardForParity(t *testing.T) {
	r, a, b := newTestRouter(2024, 2026)

	for _, id := range []int64{1, 3, 999, 12345} {
		got, err := r.ShardFor(id)
		if err != nil {
			t.Fatalf("ShardFor(%d) error: %v", id, err)
		}
		if got != a {
			t.Errorf("ShardFor(%d) = %s, want shard-a", id, got.Name)
		}
	}
	for _, id := range []int64{2, 4, 1000, 54320} {
		got, err := r.ShardFor(id)
		if err != nil {
			t.Fatalf("ShardFor(%d) error: %v", id, err)
		}
		if got != b {
			t.Errorf("ShardFor(%d) = %s, want shard-b", id, got.Name)
		}
	}
}

func TestShardForIsDeterministic(t *testing.T) {
	r, _, _ := newTestRouter(2024, 2026)

	first, err := r.ShardFor(7)
	if err != nil {
		t.Fatalf("ShardFor error: %v", err)
	}
	second, err := r.ShardFor(7)
	if err != nil {
		t.Fatalf("ShardFor error: %v", err)
	}
	if first != second {
		t.Fatalf("same id routed to different shards: %s vs %s", first.Name, second.Name)
	}
}

func TestShardForMissingKey(t *testing.T) {
	r, _, _ := newTestRouter(2024, 2026)

	for _, id := range []int64{0, -1} {
		if _, err := r.ShardFor(id); !errors.Is(err, ErrMissingShardKey) {
			t.Errorf("ShardFor(%d) error = %v, want ErrMissingShardKey", id, err)
		}
	}
}

func TestPartitionFor(t *testing.T) {
	r, _, _ := newTestRouter(2024, 2026)

	got := r.PartitionFor(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))
	if got != "orders_2025" {
		t.Fatalf("PartitionFor = %q, want orders_2025", got)
	}
	if cur := r.CurrentPartition(); cur != "orders_2026" {
		t.Fatalf("CurrentPartition = %q, want orders_2026", cur)
	}
}

func TestPartitionsToScanNewestFirst(t *testing.T) {
	r, _, _ := newTestRouter(2024, 2026)

	got := r.PartitionsToScan(2024, 2026)
	want := []string{"orders_2026", "orders_2025", "orders_2024"}
	if len(got) != len(want) {
		t.Fatalf("PartitionsToScan = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PartitionsToScan = %v, want %v", got, want)
		}
	}
}

func TestPartitionsToScanClampsToEarliestYear(t *testing.T) {
	r, _, _ := newTestRouter(2024, 2026)

	got := r.PartitionsToScan(2000, 2025)
	if len(got) != 2 {
		t.Fatalf("expected clamp to earliest year, got %v", got)
	}
	if got[0] != "orders_2025" || got[1] != "orders_2024" {
		t.Fatalf("unexpected partitions: %v", got)
	}

	if empty := r.PartitionsToScan(2024, 2020); empty != nil {
		t.Fatalf("expected nil for inverted range, got %v", empty)
	}
}

func TestScanRange(t *testing.T) {
	r, _, _ := newTestRouter(2024, 2026)

	got := r.ScanRange()
	if len(got) != 3 || got[0] != "orders_2026" || got[2] != "orders_2024" {
		t.Fatalf("ScanRange = %v", got)
	}
}
