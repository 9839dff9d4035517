// Package snolog decodes the SNOdar sensor's native binary measurement
// record ("snolog") as emitted over RS-232.
//
// A snolog is a fixed 128-byte little-endian packet: a one-byte start
// marker, a version byte, a declared length, the measurement payload,
// two health-flag bytes, a reserved byte, and a trailing CRC-8 over the
// first 127 bytes. Decoding is pure: the same bytes always produce the
// same record.
package snolog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sigurn/crc8"
)

const (
	// Size is the wire size of one snolog packet in bytes.
	Size = 128

	// Marker is the first byte of every snolog packet.
	Marker = 0xA5
)

var (
	// ErrShortFrame indicates fewer than Size bytes were supplied.
	// This is not corruption; the caller should wait for more bytes.
	ErrShortFrame = errors.New("snolog: short frame")

	// ErrBadMarker indicates the first byte is not Marker.
	ErrBadMarker = errors.New("snolog: bad start marker")

	// ErrBadLength indicates the declared length field is not Size.
	ErrBadLength = errors.New("snolog: bad declared length")

	// ErrChecksum indicates the trailing CRC-8 does not match.
	ErrChecksum = errors.New("snolog: checksum mismatch")
)

var crcTable = crc8.MakeTable(crc8.CRC8)

// Record is one decoded snolog packet. Timestamp is the capture-side
// clock reading assigned when the packet was extracted from the byte
// stream; it is not transmitted by the device.
type Record struct {
	Timestamp time.Time

	ID                  uint8
	Version             uint8
	Length              uint16
	UnixTime            uint32
	PowerMilliamps      int16
	PowerCentivolts     int16
	PCBTemperature      float32
	IMUTemperature      float32
	IMUQuaternion       [4]float32
	IMURoll             float32
	IMUPitch            float32
	IMUYaw              float32
	IMUFlag             uint8
	HeaterEnable        uint8
	LidarSoCTemperature int8
	LidarPCBTemperature int8
	LidarRawDistance    float32
	LidarDoffDistance   float32
	LidarTCDistance     float32
	LidarMeasTime       uint16
	LidarStatus         uint8
	NRFTemperature      int8
	OutsideTemperature  float32
	SeasonalSnowDepth   float32
	SeasonalSnowFall    float32
	NewSnowFall         float32
	DoySWE              float32
	TempSWE             float32
	SCDailyMaxTime      int32
	SCDailyMaxDepth     float32
	SCDailyMinTime      int32
	SCDailyMinDepth     float32
	SCAbsMinTime        int32
	SCAbsMinDepth       float32
	SCMinMaxCounter     int32
	SCDailyAccSF        float32
	HealthFlagsLo       uint8
	HealthFlagsHi       uint8
	Reserved            uint8
	Checksum            uint8
}

// Validate checks the structural markers of one packet-sized prefix of
// buf without decoding it: marker byte, declared length, and CRC-8.
// Returns ErrShortFrame when buf holds fewer than Size bytes.
func Validate(buf []byte) error {
	if len(buf) < Size {
		return ErrShortFrame
	}
	if buf[0] != Marker {
		return ErrBadMarker
	}
	if binary.LittleEndian.Uint16(buf[2:4]) != Size {
		return ErrBadLength
	}
	if crc8.Checksum(buf[:Size-1], crcTable) != buf[Size-1] {
		return ErrChecksum
	}
	return nil
}

// Unmarshal validates and decodes one packet from the first Size bytes
// of buf. The returned record has a zero Timestamp; the caller assigns
// the capture clock reading.
func Unmarshal(buf []byte) (Record, error) {
	var r Record
	if err := Validate(buf); err != nil {
		return r, err
	}
	var w wire
	if err := binary.Read(bytes.NewReader(buf[:Size]), binary.LittleEndian, &w); err != nil {
		return r, fmt.Errorf("snolog: decode: %w", err)
	}
	return w.record(), nil
}

// wire mirrors the packet layout exactly so the whole packet can be
// decoded with a single binary.Read.
type wire struct {
	ID                  uint8
	Version             uint8
	Length              uint16
	UnixTime            uint32
	PowerMilliamps      int16
	PowerCentivolts     int16
	PCBTemperature      float32
	IMUTemperature      float32
	IMUQuaternion       [4]float32
	IMURoll             float32
	IMUPitch            float32
	IMUYaw              float32
	IMUFlag             uint8
	HeaterEnable        uint8
	LidarSoCTemperature int8
	LidarPCBTemperature int8
	LidarRawDistance    float32
	LidarDoffDistance   float32
	LidarTCDistance     float32
	LidarMeasTime       uint16
	LidarStatus         uint8
	NRFTemperature      int8
	OutsideTemperature  float32
	SeasonalSnowDepth   float32
	SeasonalSnowFall    float32
	NewSnowFall         float32
	DoySWE              float32
	TempSWE             float32
	SCDailyMaxTime      int32
	SCDailyMaxDepth     float32
	SCDailyMinTime      int32
	SCDailyMinDepth     float32
	SCAbsMinTime        int32
	SCAbsMinDepth       float32
	SCMinMaxCounter     int32
	SCDailyAccSF        float32
	HealthFlagsLo       uint8
	HealthFlagsHi       uint8
	Reserved            uint8
	Checksum            uint8
}

func (w wire) record() Record {
	return Record{
		ID:                  w.ID,
		Version:             w.Version,
		Length:              w.Length,
		UnixTime:            w.UnixTime,
		PowerMilliamps:      w.PowerMilliamps,
		PowerCentivolts:     w.PowerCentivolts,
		PCBTemperature:      w.PCBTemperature,
		IMUTemperature:      w.IMUTemperature,
		IMUQuaternion:       w.IMUQuaternion,
		IMURoll:             w.IMURoll,
		IMUPitch:            w.IMUPitch,
		IMUYaw:              w.IMUYaw,
		IMUFlag:             w.IMUFlag,
		HeaterEnable:        w.HeaterEnable,
		LidarSoCTemperature: w.LidarSoCTemperature,
		LidarPCBTemperature: w.LidarPCBTemperature,
		LidarRawDistance:    w.LidarRawDistance,
		LidarDoffDistance:   w.LidarDoffDistance,
		LidarTCDistance:     w.LidarTCDistance,
		LidarMeasTime:       w.LidarMeasTime,
		LidarStatus:         w.LidarStatus,
		NRFTemperature:      w.NRFTemperature,
		OutsideTemperature:  w.OutsideTemperature,
		SeasonalSnowDepth:   w.SeasonalSnowDepth,
		SeasonalSnowFall:    w.SeasonalSnowFall,
		NewSnowFall:         w.NewSnowFall,
		DoySWE:              w.DoySWE,
		TempSWE:             w.TempSWE,
		SCDailyMaxTime:      w.SCDailyMaxTime,
		SCDailyMaxDepth:     w.SCDailyMaxDepth,
		SCDailyMinTime:      w.SCDailyMinTime,
		SCDailyMinDepth:     w.SCDailyMinDepth,
		SCAbsMinTime:        w.SCAbsMinTime,
		SCAbsMinDepth:       w.SCAbsMinDepth,
		SCMinMaxCounter:     w.SCMinMaxCounter,
		SCDailyAccSF:        w.SCDailyAccSF,
		HealthFlagsLo:       w.HealthFlagsLo,
		HealthFlagsHi:       w.HealthFlagsHi,
		Reserved:            w.Reserved,
		Checksum:            w.Checksum,
	}
}

// Sum computes the packet CRC-8 over data. Exposed so callers building
// synthetic packets (tests, converters) use the same table.
func Sum(data []byte) uint8 {
	return crc8.Checksum(data, crcTable)
}

// Fields returns the CSV column names for a decoded record, in the
// fixed order produced by Row.
func Fields() []string {
	return []string{
		"capture_time",
		"id", "version", "length", "unix_time",
		"power_mA", "power_V",
		"pcb_temperature", "imu_temperature",
		"imu_quaternion0", "imu_quaternion1", "imu_quaternion2", "imu_quaternion3",
		"imu_roll", "imu_pitch", "imu_yaw",
		"imu_flag", "heater_enable",
		"lidar_soc_temperature", "lidar_pcb_temperature",
		"lidar_raw_distance", "lidar_doff_distance", "lidar_tc_distance",
		"lidar_meas_time", "lidar_status", "nrf_temperature",
		"outside_temperature",
		"seasonal_snow_depth", "seasonal_snow_fall", "new_snow_fall",
		"doy_swe", "temp_swe",
		"sc_daily_max_time", "sc_daily_max_depth",
		"sc_daily_min_time", "sc_daily_min_depth",
		"sc_abs_min_time", "sc_abs_min_depth",
		"sc_min_max_cntr", "sc_daily_acc_sf",
		"health_flags_lo", "health_flags_hi",
		"reserved", "checksum",
	}
}

// Row renders the record as CSV field values in Fields order. Floats
// use the shortest representation that round-trips float32 exactly.
func (r Record) Row() []string {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.Format(time.RFC3339)
	}
	return []string{
		ts,
		u(r.ID), u(r.Version), u(r.Length), u(r.UnixTime),
		i(r.PowerMilliamps), i(r.PowerCentivolts),
		f(r.PCBTemperature), f(r.IMUTemperature),
		f(r.IMUQuaternion[0]), f(r.IMUQuaternion[1]), f(r.IMUQuaternion[2]), f(r.IMUQuaternion[3]),
		f(r.IMURoll), f(r.IMUPitch), f(r.IMUYaw),
		u(r.IMUFlag), u(r.HeaterEnable),
		i(r.LidarSoCTemperature), i(r.LidarPCBTemperature),
		f(r.LidarRawDistance), f(r.LidarDoffDistance), f(r.LidarTCDistance),
		u(r.LidarMeasTime), u(r.LidarStatus), i(r.NRFTemperature),
		f(r.OutsideTemperature),
		f(r.SeasonalSnowDepth), f(r.SeasonalSnowFall), f(r.NewSnowFall),
		f(r.DoySWE), f(r.TempSWE),
		i(r.SCDailyMaxTime), f(r.SCDailyMaxDepth),
		i(r.SCDailyMinTime), f(r.SCDailyMinDepth),
		i(r.SCAbsMinTime), f(r.SCAbsMinDepth),
		i(r.SCMinMaxCounter), f(r.SCDailyAccSF),
		u(r.HealthFlagsLo), u(r.HealthFlagsHi),
		u(r.Reserved), u(r.Checksum),
	}
}

func u[T uint8 | uint16 | uint32](v T) string {
	return strconv.FormatUint(uint64(v), 10)
}

func i[T int8 | int16 | int32](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func f(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
