//go:build !windows

package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
)

func newTestHNSW(t *testing.T) *HNSWIndex {
	t.Helper()
	idx, err := NewHNSWIndex(HNSWConfig{})
	if err != nil {
		t.Fatalf("NewHNSWIndex: %v", err)
	}
	return idx
}

func TestHNSWIndex_AddAndSearch(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	// 8-dim axis-aligned unit vectors for clarity.
	v1 := axisVec(0)
	v2 := axisVec(1)
	v3 := axisVec(2)

	if err := idx.Add(ctx, "r1", v1); err != nil {
		t.Fatalf("Add r1: %v", err)
	}
	if err := idx.Add(ctx, "r2", v2); err != nil {
		t.Fatalf("Add r2: %v", err)
	}
	if err := idx.Add(ctx, "r3", v3); err != nil {
		t.Fatalf("Add r3: %v", err)
	}

	if idx.Len() != 3 {
		t.Fatalf("expected Len()=3, got %d", idx.Len())
	}

	results, err := idx.Search(ctx, v1, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].RuleID != "r1" {
		t.Errorf("expected r1 first, got %s", results[0].RuleID)
	}
	if results[0].Score < 0.99 {
		t.Errorf("expected score ~1.0 for exact match, got %f", results[0].Score)
	}
}

func TestHNSWIndex_ReplaceExisting(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	if err := idx.Add(ctx, "r1", axisVec(0)); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, "r1", axisVec(1)); err != nil {
		t.Fatal(err)
	}

	if idx.Len() != 1 {
		t.Errorf("expected Len()=1 after replace, got %d", idx.Len())
	}

	results, err := idx.Search(ctx, axisVec(1), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].RuleID != "r1" {
		t.Fatalf("expected r1, got %v", results)
	}
	if results[0].Score < 0.99 {
		t.Errorf("expected score ~1.0 for replaced vector, got %f", results[0].Score)
	}
}

func TestHNSWIndex_Remove(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	_ = idx.Add(ctx, "r1", axisVec(0))
	_ = idx.Add(ctx, "r2", axisVec(1))
	_ = idx.Add(ctx, "r3", axisVec(2))

	if err := idx.Remove(ctx, "r2"); err != nil {
		t.Fatal(err)
	}

	if idx.Len() != 2 {
		t.Errorf("expected Len()=2 after remove, got %d", idx.Len())
	}

	results, _ := idx.Search(ctx, axisVec(1), 3)
	for _, r := range results {
		if r.RuleID == "r2" {
			t.Error("removed r2 should not appear in results")
		}
	}
}

func TestHNSWIndex_RemoveNonexistent(t *testing.T) {
	idx := newTestHNSW(t)
	if err := idx.Remove(context.Background(), "missing"); err != nil {
		t.Errorf("expected nil error for removing nonexistent, got %v", err)
	}
}

func TestHNSWIndex_SearchEmpty(t *testing.T) {
	idx := newTestHNSW(t)
	results, err := idx.Search(context.Background(), axisVec(0), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestHNSWIndex_SearchTopKZero(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()
	_ = idx.Add(ctx, "r1", axisVec(0))

	results, err := idx.Search(ctx, axisVec(0), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results for topK=0, got %d", len(results))
	}
}

func TestHNSWIndex_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewHNSWIndex(HNSWConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewHNSWIndex: %v", err)
	}

	_ = idx.Add(ctx, "r1", axisVec(0))
	_ = idx.Add(ctx, "r2", axisVec(1))

	if err := idx.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewHNSWIndex(HNSWConfig{Dir: dir})
	if err != nil {
		t.Fatalf("reload NewHNSWIndex: %v", err)
	}
	defer idx2.Close()

	if idx2.Len() != 2 {
		t.Fatalf("expected Len()=2 after reload, got %d", idx2.Len())
	}

	results, err := idx2.Search(ctx, axisVec(0), 1)
	if err != nil {
		t.Fatalf("Search after reload: %v", err)
	}
	if len(results) != 1 || results[0].RuleID != "r1" {
		t.Errorf("expected r1 after reload, got %v", results)
	}
	if results[0].Score < 0.99 {
		t.Errorf("expected score ~1.0 after reload, got %f", results[0].Score)
	}
}

func TestHNSWIndex_ConcurrentAccess(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", n)
			vec := make([]float32, 8)
			vec[n%8] = float32(n + 1)
			_ = idx.Add(ctx, id, vec)
			_, _ = idx.Search(ctx, vec, 3)
			_ = idx.Remove(ctx, id)
		}(i)
	}
	wg.Wait()
}

func TestHNSWIndex_ScoreRange(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0, 0, 0, 0, 0, 0},
		{0.9, 0.1, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 1},
	}
	for i, v := range vecs {
		_ = idx.Add(ctx, fmt.Sprintf("r%d", i), v)
	}

	results, err := idx.Search(ctx, axisVec(0), 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	for _, r := range results {
		if r.Score < -1.0 || r.Score > 1.0+1e-6 {
			t.Errorf("score %f out of expected range [-1, 1] for %s", r.Score, r.RuleID)
		}
	}

	if len(results) > 0 && results[0].RuleID == "r0" {
		if math.Abs(results[0].Score-1.0) > 0.01 {
			t.Errorf("exact match score should be ~1.0, got %f", results[0].Score)
		}
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score+1e-6 {
			t.Errorf("results not sorted: score[%d]=%f > score[%d]=%f",
				i, results[i].Score, i-1, results[i-1].Score)
		}
	}
}
