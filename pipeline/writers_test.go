package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

func sampleRecords() models.ResultSet {
	return models.ResultSet{
		{Date: "2023-01-05", Numbers: [6]int{3, 14, 22, 30, 41, 45}},
		{Date: "2023-01-07", Numbers: [6]int{45, 1, 9, 2, 33, 7}},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "mega645.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if !reflect.DeepEqual(records[0], CSVHeader) {
		t.Fatalf("unexpected header: %v", records[0])
	}
	// Numbers keep the order they were published in.
	want := []string{"2023-01-07", "45", "1", "9", "2", "33", "7"}
	if !reflect.DeepEqual(records[2], want) {
		t.Fatalf("row = %v, want %v", records[2], want)
	}
}

func TestCSVWriterPreservesNonASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draws.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	rec := models.DrawRecord{Date: "2023-01-05 Thứ Năm", Numbers: [6]int{1, 2, 3, 4, 5, 6}}
	if err := writer.Write([]models.DrawRecord{rec}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	records := readCSV(t, path)
	if records[1][0] != rec.Date {
		t.Fatalf("date = %q, want %q", records[1][0], rec.Date)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mega645.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []models.DrawRecord
	for scanner.Scan() {
		var rec models.DrawRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		decoded = append(decoded, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if !reflect.DeepEqual(models.ResultSet(decoded), sampleRecords()) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "mega645.csv")
	jsonPath := filepath.Join(dir, "mega645.json")

	writer, err := NewWriter("dual", csvPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestNewWriterUnsupportedFormat(t *testing.T) {
	if _, err := NewWriter("xml", filepath.Join(t.TempDir(), "out.xml")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWriteDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "static", "mega645.csv")

	if err := WriteDataset(sampleRecords(), path, "csv"); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if got := len(readCSV(t, path)); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}

	// Rewriting replaces the file instead of appending.
	if err := WriteDataset(sampleRecords()[:1], path, "csv"); err != nil {
		t.Fatalf("rewrite dataset: %v", err)
	}
	if got := len(readCSV(t, path)); got != 2 {
		t.Fatalf("rows after rewrite = %d, want 2", got)
	}
}

func TestWriteDatasetEmpty(t *testing.T) {
	for _, format := range []string{"csv", "json"} {
		path := filepath.Join(t.TempDir(), "empty."+format)
		if err := WriteDataset(nil, path, format); err != nil {
			t.Fatalf("%s: write empty dataset: %v", format, err)
		}
	}
}

func TestWriteDatasetIOFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	records := sampleRecords()
	if err := WriteDataset(records, filepath.Join(blocker, "mega645.csv"), "csv"); err == nil {
		t.Fatal("expected error when parent is a file")
	}
	// The result set survives a failed write and can be written elsewhere.
	if err := WriteDataset(records, filepath.Join(dir, "mega645.csv"), "csv"); err != nil {
		t.Fatalf("retry write: %v", err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

type failingWriter struct {
	closed bool
}

func (fw *failingWriter) Write([]models.DrawRecord) error { return errors.New("disk full") }
func (fw *failingWriter) Close() error { fw.closed = true; return nil }
func (fw *failingWriter) Validate() error { return nil }

func TestMultiWriterClosesAllAfterFailure(t *testing.T) {
	first, second := &failingWriter{}, &failingWriter{}
	mw := NewMultiWriter(first, second)

	if err := mw.Write(sampleRecords()); err == nil {
		t.Fatal("expected write error")
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !first.closed || !second.closed {
		t.Fatalf("closed = %v/%v, want both", first.closed, second.closed)
	}
}
