package snolog

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"strconv"
	"testing"
)

// buildPacket returns a structurally valid packet with every byte
// zeroed except the header, the given mutations, and the checksum.
func buildPacket(mutate func(b []byte)) []byte {
	b := make([]byte, Size)
	b[0] = Marker
	b[1] = 1
	binary.LittleEndian.PutUint16(b[2:4], Size)
	if mutate != nil {
		mutate(b)
	}
	b[Size-1] = Sum(b[:Size-1])
	return b
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(v))
}

func TestUnmarshalFields(t *testing.T) {
	powerMilliamps := int16(-250)
	lidarSoCTemp := int8(-11)
	nrfTemp := int8(-40)
	scDailyMaxTime := int32(-3600)
	pkt := buildPacket(func(b []byte) {
		binary.LittleEndian.PutUint32(b[4:8], 1700000000)                  // unix_time
		binary.LittleEndian.PutUint16(b[8:10], uint16(powerMilliamps))     // power_mA
		binary.LittleEndian.PutUint16(b[10:12], 1210)                      // power_V
		putF32(b, 12, 21.5)                                                // pcb_temperature
		putF32(b, 20, 1.0)                                                 // quaternion0
		putF32(b, 36, -0.05)                                               // roll
		b[48] = 3                                                          // imu_flag
		b[49] = 1                                                          // heater_enable
		b[50] = byte(lidarSoCTemp)                                         // lidar_soc_temperature
		putF32(b, 52, 2.345)                                               // raw distance
		putF32(b, 60, 2.5)                                                 // tc distance
		binary.LittleEndian.PutUint16(b[64:66], 12)                        // meas_time
		b[67] = byte(nrfTemp)                                              // nrf_temperature
		putF32(b, 72, 1.75)                                                // seasonal_snow_depth
		binary.LittleEndian.PutUint32(b[92:96], uint32(scDailyMaxTime))    // sc_daily_max_time
		putF32(b, 120, 0.25)                                               // sc_daily_acc_sf
		b[124] = 0xFF                                                      // health_flags_lo
		b[125] = 0x1F                                                      // health_flags_hi
	})

	rec, err := Unmarshal(pkt)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if rec.ID != Marker || rec.Version != 1 || rec.Length != Size {
		t.Errorf("header = (%#x, %d, %d), want (%#x, 1, %d)", rec.ID, rec.Version, rec.Length, Marker, Size)
	}
	if rec.UnixTime != 1700000000 {
		t.Errorf("UnixTime = %d, want 1700000000", rec.UnixTime)
	}
	if rec.PowerMilliamps != -250 {
		t.Errorf("PowerMilliamps = %d, want -250", rec.PowerMilliamps)
	}
	if rec.PowerCentivolts != 1210 {
		t.Errorf("PowerCentivolts = %d, want 1210", rec.PowerCentivolts)
	}
	if rec.PCBTemperature != 21.5 {
		t.Errorf("PCBTemperature = %v, want 21.5", rec.PCBTemperature)
	}
	if rec.IMUQuaternion[0] != 1.0 || rec.IMURoll != -0.05 {
		t.Errorf("IMU fields = (%v, %v), want (1, -0.05)", rec.IMUQuaternion[0], rec.IMURoll)
	}
	if rec.IMUFlag != 3 || rec.HeaterEnable != 1 {
		t.Errorf("flags = (%d, %d), want (3, 1)", rec.IMUFlag, rec.HeaterEnable)
	}
	if rec.LidarSoCTemperature != -11 || rec.NRFTemperature != -40 {
		t.Errorf("temperatures = (%d, %d), want (-11, -40)", rec.LidarSoCTemperature, rec.NRFTemperature)
	}
	if rec.LidarRawDistance != 2.345 || rec.LidarTCDistance != 2.5 {
		t.Errorf("distances = (%v, %v), want (2.345, 2.5)", rec.LidarRawDistance, rec.LidarTCDistance)
	}
	if rec.LidarMeasTime != 12 {
		t.Errorf("LidarMeasTime = %d, want 12", rec.LidarMeasTime)
	}
	if rec.SeasonalSnowDepth != 1.75 {
		t.Errorf("SeasonalSnowDepth = %v, want 1.75", rec.SeasonalSnowDepth)
	}
	if rec.SCDailyMaxTime != -3600 {
		t.Errorf("SCDailyMaxTime = %d, want -3600", rec.SCDailyMaxTime)
	}
	if rec.SCDailyAccSF != 0.25 {
		t.Errorf("SCDailyAccSF = %v, want 0.25", rec.SCDailyAccSF)
	}
	if rec.HealthFlagsLo != 0xFF || rec.HealthFlagsHi != 0x1F {
		t.Errorf("health bytes = (%#x, %#x), want (0xff, 0x1f)", rec.HealthFlagsLo, rec.HealthFlagsHi)
	}
	if rec.Checksum != pkt[Size-1] {
		t.Errorf("Checksum = %#x, want %#x", rec.Checksum, pkt[Size-1])
	}
}

func TestValidateErrors(t *testing.T) {
	valid := buildPacket(nil)

	short := valid[:Size-1]
	if err := Validate(short); !errors.Is(err, ErrShortFrame) {
		t.Errorf("Validate(short) = %v, want ErrShortFrame", err)
	}

	marker := append([]byte{}, valid...)
	marker[0] = 0x00
	if err := Validate(marker); !errors.Is(err, ErrBadMarker) {
		t.Errorf("Validate(bad marker) = %v, want ErrBadMarker", err)
	}

	length := buildPacket(func(b []byte) {
		binary.LittleEndian.PutUint16(b[2:4], 64)
	})
	if err := Validate(length); !errors.Is(err, ErrBadLength) {
		t.Errorf("Validate(bad length) = %v, want ErrBadLength", err)
	}

	corrupt := append([]byte{}, valid...)
	corrupt[60] ^= 0xFF
	if err := Validate(corrupt); !errors.Is(err, ErrChecksum) {
		t.Errorf("Validate(corrupt) = %v, want ErrChecksum", err)
	}

	if err := Validate(valid); err != nil {
		t.Errorf("Validate(valid) = %v, want nil", err)
	}
}

func TestUnmarshalIdempotent(t *testing.T) {
	pkt := buildPacket(func(b []byte) {
		putF32(b, 60, 1.234)
	})
	a, err := Unmarshal(pkt)
	if err != nil {
		t.Fatalf("first Unmarshal: %v", err)
	}
	b, err := Unmarshal(pkt)
	if err != nil {
		t.Fatalf("second Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated decode differs:\n%+v\n%+v", a, b)
	}
}

func TestRowMatchesFields(t *testing.T) {
	pkt := buildPacket(func(b []byte) {
		putF32(b, 60, 2.5)
		binary.LittleEndian.PutUint32(b[4:8], 42)
	})
	rec, err := Unmarshal(pkt)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	fields := Fields()
	row := rec.Row()
	if len(row) != len(fields) {
		t.Fatalf("len(Row) = %d, want %d", len(row), len(fields))
	}

	col := func(name string) string {
		for i, f := range fields {
			if f == name {
				return row[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}

	if got := col("unix_time"); got != "42" {
		t.Errorf("unix_time column = %q, want 42", got)
	}
	v, err := strconv.ParseFloat(col("lidar_tc_distance"), 32)
	if err != nil {
		t.Fatalf("parse tc distance: %v", err)
	}
	if float32(v) != 2.5 {
		t.Errorf("lidar_tc_distance round-trip = %v, want 2.5", v)
	}
}
