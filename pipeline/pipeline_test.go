package pipeline

import (
	"reflect"
	"testing"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

func rec(date string, nums ...int) models.DrawRecord {
	r := models.DrawRecord{Date: date}
	copy(r.Numbers[:], nums)
	return r
}

func TestAccumulatorAppendIsPure(t *testing.T) {
	var empty Accumulator
	one := empty.Append([]models.DrawRecord{rec("2023-01-05", 1, 2, 3, 4, 5, 6)})
	two := one.Append([]models.DrawRecord{rec("2023-01-07", 7, 8, 9, 10, 11, 12)})

	if empty.Len() != 0 || empty.Pages() != 0 {
		t.Fatalf("empty accumulator changed: len=%d pages=%d", empty.Len(), empty.Pages())
	}
	if one.Len() != 1 || one.Pages() != 1 {
		t.Fatalf("one: len=%d pages=%d", one.Len(), one.Pages())
	}
	if two.Len() != 2 || two.Pages() != 2 {
		t.Fatalf("two: len=%d pages=%d", two.Len(), two.Pages())
	}

	records := two.Records()
	records[0].Date = "mutated"
	if two.Records()[0].Date != "2023-01-05" {
		t.Fatal("Records should return a copy")
	}
}

func TestMergeDedupAndSort(t *testing.T) {
	input := []models.DrawRecord{
		rec("2023-02-14", 1, 2, 3, 4, 5, 6),
		rec("2023-02-10", 10, 20, 30, 40, 41, 42),
		rec("2023-02-12", 7, 8, 9, 10, 11, 12),
		rec("2023-02-10", 10, 20, 30, 40, 41, 42),
		rec("2023-02-10", 42, 41, 40, 30, 20, 10),
	}

	got, stats := Merge(input)

	want := models.ResultSet{
		rec("2023-02-10", 10, 20, 30, 40, 41, 42),
		rec("2023-02-10", 42, 41, 40, 30, 20, 10),
		rec("2023-02-12", 7, 8, 9, 10, 11, 12),
		rec("2023-02-14", 1, 2, 3, 4, 5, 6),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %+v, want %+v", got, want)
	}
	if stats.Input != 5 || stats.Duplicates != 1 || stats.Output != 4 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMergeIdempotent(t *testing.T) {
	input := []models.DrawRecord{
		rec("2023-03-01", 1, 2, 3, 4, 5, 6),
		rec("2023-01-01", 1, 2, 3, 4, 5, 6),
		rec("2023-03-01", 1, 2, 3, 4, 5, 6),
		rec("2023-02-01", 6, 5, 4, 3, 2, 1),
	}

	once, _ := Merge(input)
	twice, stats := Merge(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second merge changed result: %+v vs %+v", once, twice)
	}
	if stats.Duplicates != 0 {
		t.Fatalf("second merge found %d duplicates", stats.Duplicates)
	}
}

func TestMergeSorted(t *testing.T) {
	input := []models.DrawRecord{
		rec("2024-06-01", 1, 2, 3, 4, 5, 6),
		rec("2016-07-20", 1, 2, 3, 4, 5, 6),
		rec("2020-12-31", 1, 2, 3, 4, 5, 6),
		rec("2020-01-01", 1, 2, 3, 4, 5, 6),
	}
	got, _ := Merge(input)
	for i := 1; i < len(got); i++ {
		if got[i-1].Date > got[i].Date {
			t.Fatalf("out of order at %d: %s > %s", i, got[i-1].Date, got[i].Date)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	got, stats := Merge(nil)
	if len(got) != 0 || stats.Input != 0 {
		t.Fatalf("Merge(nil) = %+v, %+v", got, stats)
	}
}

func TestAccumulatorFinalizeAcrossPages(t *testing.T) {
	var acc Accumulator
	acc = acc.Append([]models.DrawRecord{rec("2023-02-10", 1, 2, 3, 4, 5, 6), rec("2023-02-12", 2, 3, 4, 5, 6, 7)})
	acc = acc.Append([]models.DrawRecord{rec("2023-02-10", 1, 2, 3, 4, 5, 6), rec("2023-02-08", 3, 4, 5, 6, 7, 8)})

	got, stats := acc.Finalize()
	if len(got) != 3 || stats.Duplicates != 1 {
		t.Fatalf("Finalize = %+v, %+v", got, stats)
	}
	count := 0
	for _, r := range got {
		if r.Date == "2023-02-10" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("2023-02-10 appears %d times, want 1", count)
	}
}
