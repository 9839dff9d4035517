package snolog

// Low-byte health flag bits.
const (
	flagIMUReady = 1 << iota
	flagINAVoltageOK
	flagINACurrentOK
	flagNRFTempOK
	flagTMP1075TempOK
	flagLidarPCBTempOK
	flagLidarSoCTempOK
	flagIMUQuaternionOK
)

// High-byte health flag bits.
const (
	flagRTCReadOK = 1 << iota
	flagRTCTimeIncreased
	flagLidarCountOK
	flagLidarTimeOK
	flagLidarRegistersOK
)

// HealthFlags holds the per-subsystem status bits reported in every
// snolog packet. A false flag means that subsystem's last reading or
// self-check failed.
type HealthFlags struct {
	LidarCountOK          bool
	LidarTimeOK           bool
	LidarRegistersOK      bool
	RTCReadOK             bool
	RTCTimeIncreased      bool
	INAVoltageOK          bool
	INACurrentOK          bool
	NRFTemperatureOK      bool
	TMP1075TemperatureOK  bool
	LidarPCBTemperatureOK bool
	LidarSoCTemperatureOK bool
	IMUReady              bool
	IMUQuaternionOK       bool
}

// HealthFlagNames lists the flag column names in the order produced by
// HealthFlags.Values.
var HealthFlagNames = []string{
	"lidar_count_ok",
	"lidar_time_ok",
	"lidar_registers_ok",
	"rtc_read_ok",
	"rtc_time_increased",
	"ina_voltage_ok",
	"ina_current_ok",
	"nrf_temperature_ok",
	"tmp1075_temperature_ok",
	"lidar_pcb_temperature_ok",
	"lidar_soc_temperature_ok",
	"imu_ready",
	"imu_quaternion_ok",
}

// ParseHealthFlags expands the packed high and low health bytes.
func ParseHealthFlags(hi, lo byte) HealthFlags {
	return HealthFlags{
		LidarCountOK:          hi&flagLidarCountOK != 0,
		LidarTimeOK:           hi&flagLidarTimeOK != 0,
		LidarRegistersOK:      hi&flagLidarRegistersOK != 0,
		RTCReadOK:             hi&flagRTCReadOK != 0,
		RTCTimeIncreased:      hi&flagRTCTimeIncreased != 0,
		INAVoltageOK:          lo&flagINAVoltageOK != 0,
		INACurrentOK:          lo&flagINACurrentOK != 0,
		NRFTemperatureOK:      lo&flagNRFTempOK != 0,
		TMP1075TemperatureOK:  lo&flagTMP1075TempOK != 0,
		LidarPCBTemperatureOK: lo&flagLidarPCBTempOK != 0,
		LidarSoCTemperatureOK: lo&flagLidarSoCTempOK != 0,
		IMUReady:              lo&flagIMUReady != 0,
		IMUQuaternionOK:       lo&flagIMUQuaternionOK != 0,
	}
}

// HealthFlags returns the record's parsed health flags.
func (r Record) HealthFlags() HealthFlags {
	return ParseHealthFlags(r.HealthFlagsHi, r.HealthFlagsLo)
}

// Values returns the flags in HealthFlagNames order.
func (f HealthFlags) Values() []bool {
	return []bool{
		f.LidarCountOK,
		f.LidarTimeOK,
		f.LidarRegistersOK,
		f.RTCReadOK,
		f.RTCTimeIncreased,
		f.INAVoltageOK,
		f.INACurrentOK,
		f.NRFTemperatureOK,
		f.TMP1075TemperatureOK,
		f.LidarPCBTemperatureOK,
		f.LidarSoCTemperatureOK,
		f.IMUReady,
		f.IMUQuaternionOK,
	}
}

// Failures names every subsystem whose flag is false, in
// HealthFlagNames order. An empty result means a fully healthy packet.
func (f HealthFlags) Failures() []string {
	var out []string
	for i, ok := range f.Values() {
		if !ok {
			out = append(out, HealthFlagNames[i])
		}
	}
	return out
}
