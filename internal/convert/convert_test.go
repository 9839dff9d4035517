package convert

import (
	"encoding/binary"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/snolog"
)

func packet(distance float32, unix uint32) []byte {
	b := make([]byte, snolog.Size)
	b[0] = snolog.Marker
	b[1] = 1
	binary.LittleEndian.PutUint16(b[2:4], snolog.Size)
	binary.LittleEndian.PutUint32(b[4:8], unix)
	binary.LittleEndian.PutUint32(b[60:64], math.Float32bits(distance))
	b[snolog.Size-1] = snolog.Sum(b[:snolog.Size-1])
	return b
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func columnIndex(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("no column %q in %v", name, header)
	return -1
}

func TestFileConvertsAllRecords(t *testing.T) {
	corrupt := packet(99, 9)
	corrupt[30] ^= 0xFF

	var raw []byte
	raw = append(raw, 0x00, 0x01, 0x02) // leading garbage
	raw = append(raw, packet(1.5, 100)...)
	raw = append(raw, corrupt...)
	raw = append(raw, packet(2.5, 200)...)
	raw = append(raw, packet(3.5, 300)...)
	raw = append(raw, packet(0, 0)[:40]...) // trailing partial packet

	dir := t.TempDir()
	in := filepath.Join(dir, "snolog.bin")
	out := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(in, raw, 0o644); err != nil {
		t.Fatalf("write raw log: %v", err)
	}

	n, err := File(in, out, zerolog.Nop())
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("File converted %d records, want 3", n)
	}

	rows := readCSV(t, out)
	if len(rows) != 4 {
		t.Fatalf("csv has %d rows, want header + 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], snolog.Fields()) {
		t.Errorf("header = %v, want %v", rows[0], snolog.Fields())
	}

	captureCol := columnIndex(t, rows[0], "capture_time")
	unixCol := columnIndex(t, rows[0], "unix_time")
	tcCol := columnIndex(t, rows[0], "lidar_tc_distance")
	wantUnix := []string{"100", "200", "300"}
	wantTC := []string{"1.5", "2.5", "3.5"}
	for i, row := range rows[1:] {
		if row[captureCol] != "" {
			t.Errorf("row %d capture_time = %q, want empty for offline conversion", i, row[captureCol])
		}
		if row[unixCol] != wantUnix[i] {
			t.Errorf("row %d unix_time = %q, want %q", i, row[unixCol], wantUnix[i])
		}
		if row[tcCol] != wantTC[i] {
			t.Errorf("row %d tc distance = %q, want %q", i, row[tcCol], wantTC[i])
		}
	}
}

func TestFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := File(filepath.Join(dir, "nope.bin"), filepath.Join(dir, "out.csv"), zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestExpandHealthFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")
	content := "unix_time,health_flags_lo,health_flags_hi\n" +
		"100,255,31\n" +
		"200,254,31\n" // imu_ready bit clear
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	if err := ExpandHealthFlags(path); err != nil {
		t.Fatalf("ExpandHealthFlags returned error: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("csv has %d rows, want 3", len(rows))
	}
	wantHeader := append([]string{"unix_time", "health_flags_lo", "health_flags_hi"}, snolog.HealthFlagNames...)
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v, want %v", rows[0], wantHeader)
	}

	imuCol := columnIndex(t, rows[0], "imu_ready")
	if rows[1][imuCol] != "true" {
		t.Errorf("healthy row imu_ready = %q, want true", rows[1][imuCol])
	}
	if rows[2][imuCol] != "false" {
		t.Errorf("unhealthy row imu_ready = %q, want false", rows[2][imuCol])
	}
}

func TestExpandHealthFlagsPackedColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.csv")
	content := "TIME,LIVE_HEALTH_FLAGS\n" +
		"100,1FFF\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	if err := ExpandHealthFlags(path); err != nil {
		t.Fatalf("ExpandHealthFlags returned error: %v", err)
	}

	rows := readCSV(t, path)
	for _, name := range snolog.HealthFlagNames {
		col := columnIndex(t, rows[0], name)
		if rows[1][col] != "true" {
			t.Errorf("flag %s = %q, want true", name, rows[1][col])
		}
	}
}

func TestExpandHealthFlagsRequiresFlagColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := ExpandHealthFlags(path); err == nil {
		t.Fatal("expected error for csv without flag columns")
	}
}
