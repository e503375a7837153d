package table

import (
	"math"
	"testing"
)

func TestAddColumn_LengthMismatchRejected(t *testing.T) {
	tab := New()
	if err := tab.AddStrings("source_id", []string{"a", "b"}); err != nil {
		t.Fatalf("AddStrings: %v", err)
	}
	if err := tab.AddFloats("parallax", []float64{1.0}); err == nil {
		t.Fatalf("expected length-mismatch error, got nil")
	}
	if err := tab.AddFloats("source_id", []float64{1, 2}); err == nil {
		t.Fatalf("expected duplicate-column error, got nil")
	}
}

func TestSelect_KeepsMaskedRows(t *testing.T) {
	tab := New()
	_ = tab.AddStrings("source_id", []string{"a", "b", "c"})
	_ = tab.AddFloats("mass", []float64{0.6, 1.1, 1.3})

	sel, err := tab.Select([]bool{false, true, true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.NumRows() != 2 {
		t.Fatalf("selected %d rows, want 2", sel.NumRows())
	}
	ids, err := sel.Strings("source_id")
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	if ids[0] != "b" || ids[1] != "c" {
		t.Fatalf("unexpected ids after select: %v", ids)
	}
}

func TestSelect_AllFalseKeepsColumns(t *testing.T) {
	tab := New()
	_ = tab.AddStrings("source_id", []string{"a"})
	_ = tab.AddFloats("rv", []float64{12.5})

	sel, err := tab.Select([]bool{false})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.NumRows() != 0 {
		t.Fatalf("selected %d rows, want 0", sel.NumRows())
	}
	if !sel.HasColumn("source_id") || !sel.HasColumn("rv") {
		t.Fatalf("empty selection lost columns: %v", sel.Names())
	}
}

func TestSortBy_AscendingStableNaNLast(t *testing.T) {
	tab := New()
	_ = tab.AddStrings("source_id", []string{"a", "b", "c", "d"})
	_ = tab.AddFloats("wd_phot_g_mean_mag", []float64{19.2, math.NaN(), 17.5, 18.1})

	if err := tab.SortBy("wd_phot_g_mean_mag"); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	ids, _ := tab.Strings("source_id")
	want := []string{"c", "d", "a", "b"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", ids, want)
		}
	}
}

func TestSortBy_MissingColumn(t *testing.T) {
	tab := New()
	_ = tab.AddFloats("x", []float64{1})
	if err := tab.SortBy("y"); err == nil {
		t.Fatalf("expected error for missing sort column")
	}
}

func TestFloats_TypeMismatch(t *testing.T) {
	tab := New()
	_ = tab.AddStrings("source_id", []string{"a"})
	if _, err := tab.Floats("source_id"); err == nil {
		t.Fatalf("expected type-mismatch error reading string column as floats")
	}
	if _, err := tab.Strings("missing"); err == nil {
		t.Fatalf("expected error for missing column")
	}
}
