package cache

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type report struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewRedisStore(rdb, "test", time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, mr
}

func TestFetch_MissThenHit(t *testing.T) {
	store, _ := newStore(t)
	reports := NewReports(store, nil)
	var calls int
	compute := func(context.Context) (report, error) {
		calls++
		return report{Year: 2024, Total: 52}, nil
	}

	first, hit, err := Fetch(context.Background(), reports, "series|year=2024", []int{2024}, compute)
	if err != nil || hit {
		t.Fatalf("expected miss without error, got hit=%v err=%v", hit, err)
	}
	second, hit, err := Fetch(context.Background(), reports, "series|year=2024", []int{2024}, compute)
	if err != nil || !hit {
		t.Fatalf("expected hit without error, got hit=%v err=%v", hit, err)
	}

	if calls != 1 {
		t.Fatalf("expected one computation, got %d", calls)
	}
	if first != second || second.Total != 52 {
		t.Fatalf("cached value differs: %#v vs %#v", first, second)
	}
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	store, _ := newStore(t)
	reports := NewReports(store, nil)
	boom := errors.New("boom")

	_, _, err := Fetch(context.Background(), reports, "k", []int{2024}, func(context.Context) (report, error) {
		return report{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "k"); ok {
		t.Fatal("expected failed computation to stay uncached")
	}
}

func TestFetch_SharesConcurrentMisses(t *testing.T) {
	store, _ := newStore(t)
	reports := NewReports(store, nil)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = Fetch(context.Background(), reports, "shared", []int{2024}, func(context.Context) (report, error) {
				calls.Add(1)
				<-release
				return report{Year: 2024}, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() < 1 || calls.Load() > 5 {
		t.Fatalf("unexpected computation count %d", calls.Load())
	}
	if _, ok, _ := store.Get(context.Background(), "shared"); !ok {
		t.Fatal("expected value to be cached")
	}
}

func TestFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store, _ := newStore(t)
	reports := NewReports(store, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var computeErr atomic.Value
	compute := func(ctx context.Context) (report, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			computeErr.Store(err)
			return report{}, err
		}
		return report{Year: 2024, Total: 42}, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := Fetch(ctxA, reports, "shared", []int{2024}, compute)
		errA <- err
	}()
	<-started

	type result struct {
		got report
		err error
	}
	resB := make(chan result, 1)
	go func() {
		got, _, err := Fetch(context.Background(), reports, "shared", []int{2024}, func(context.Context) (report, error) {
			t.Error("second caller must join the running computation")
			return report{}, nil
		})
		resB <- result{got: got, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}
	close(release)

	b := <-resB
	if b.err != nil {
		t.Fatalf("expected the waiting caller to succeed, got %v", b.err)
	}
	if b.got.Total != 42 {
		t.Fatalf("expected total 42, got %v", b.got.Total)
	}
	if err := computeErr.Load(); err != nil {
		t.Fatalf("shared computation saw a cancelled context: %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "shared"); !ok {
		t.Fatal("expected the shared result to be cached")
	}
}

func TestFetch_RedisDownStillComputes(t *testing.T) {
	store, mr := newStore(t)
	reports := NewReports(store, nil)
	mr.Close()

	got, hit, err := Fetch(context.Background(), reports, "k", []int{2024}, func(context.Context) (report, error) {
		return report{Total: 7}, nil
	})
	if err != nil || hit || got.Total != 7 {
		t.Fatalf("expected computed value despite cache outage, got %#v hit=%v err=%v", got, hit, err)
	}
}

func TestFetch_DisabledCache(t *testing.T) {
	var reports *Reports
	var calls int
	for range 2 {
		_, _, _ = Fetch(context.Background(), reports, "k", nil, func(context.Context) (report, error) {
			calls++
			return report{}, nil
		})
	}
	if calls != 2 {
		t.Fatalf("expected every call to compute, got %d", calls)
	}
}

func TestInvalidateYear_DropsOnlyTaggedReports(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	mustSet(t, store, "a", []int{2023, 2024})
	mustSet(t, store, "b", []int{2024})
	mustSet(t, store, "c", []int{2022})

	removed, err := store.InvalidateYear(ctx, 2024)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok, _ := store.Get(ctx, "c"); !ok {
		t.Fatal("expected report of another year to survive")
	}
	if _, ok, _ := store.Get(ctx, "a"); ok {
		t.Fatal("expected multi-year report to be dropped")
	}
}

func TestInvalidateAll_ScansPrefix(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	mustSet(t, store, "a", []int{2024})
	mustSet(t, store, "b", []int{2023})
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reports := NewReports(store, nil)
	removed, err := reports.InvalidateYear(ctx, 0)
	if err != nil {
		t.Fatalf("invalidate all: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 2 reports and 2 tags removed, got %d", removed)
	}
	if !mr.Exists("other:key") {
		t.Fatal("expected keys outside the prefix to survive")
	}
}

func TestSet_AppliesTTL(t *testing.T) {
	store, mr := newStore(t)
	mustSet(t, store, "a", []int{2024})

	mr.FastForward(2 * time.Minute)

	if _, ok, _ := store.Get(context.Background(), "a"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestKey_IsOrderIndependent(t *testing.T) {
	a := Key("buckets", url.Values{"yearFrom": {"2024"}, "groupBy": {"sector"}, "measures": {"damages", "pabellones"}})
	b := Key("buckets", url.Values{"measures": {"pabellones", "damages"}, "groupBy": {"sector"}, "yearFrom": {" 2024"}})
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	if Key("series", url.Values{"yearFrom": {"2024"}}) == Key("buckets", url.Values{"yearFrom": {"2024"}}) {
		t.Fatal("expected operation name to be part of the key")
	}
}

func TestKey_KeepsValueCase(t *testing.T) {
	upper := Key("buckets", url.Values{"yearFrom": {"2024"}, "sector": {"Norte"}})
	lower := Key("buckets", url.Values{"yearFrom": {"2024"}, "sector": {"norte"}})
	if upper == lower {
		t.Fatalf("expected sector case to be part of the key, got %q for both", upper)
	}
}

func TestFetch_SectorCaseDoesNotShareEntries(t *testing.T) {
	store, _ := newStore(t)
	reports := NewReports(store, nil)
	ctx := context.Background()
	totals := map[string]float64{"Norte": 42}
	computeFor := func(sector string) func(context.Context) (report, error) {
		return func(context.Context) (report, error) {
			return report{Year: 2024, Total: totals[sector]}, nil
		}
	}

	for _, sector := range []string{"Norte", "norte"} {
		key := Key("buckets", url.Values{"yearFrom": {"2024"}, "sector": {sector}})
		got, hit, err := Fetch(ctx, reports, key, []int{2024}, computeFor(sector))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", sector, err)
		}
		if hit {
			t.Fatalf("%s: expected a miss, the other sector spelling must not be reused", sector)
		}
		if got.Total != totals[sector] {
			t.Fatalf("%s: expected total %v, got %v", sector, totals[sector], got.Total)
		}
	}
}

func TestYearsBetween(t *testing.T) {
	got := YearsBetween(2022, 2024)
	if len(got) != 3 || got[0] != 2022 || got[2] != 2024 {
		t.Fatalf("unexpected years %v", got)
	}
	if got := YearsBetween(2024, 0); len(got) != 1 || got[0] != 2024 {
		t.Fatalf("expected single year for open range, got %v", got)
	}
}

func mustSet(t *testing.T, store *RedisStore, key string, years []int) {
	t.Helper()
	if err := store.Set(context.Background(), key, years, []byte(`{}`)); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}
