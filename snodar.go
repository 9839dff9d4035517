// Package snodar exposes the snolog decoding core for embedding in
// other tools.
//
// Example usage:
//
//	rec, err := snodar.DecodePacket(raw)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rec.LidarTCDistance)
//
// The full capture loops live behind the snodar CLI (cmd/snodar); this
// package covers offline decoding only.
package snodar

import (
	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/cliconfig"
	"github.com/sensorlogic/snodar/internal/convert"
	"github.com/sensorlogic/snodar/internal/snolog"
)

// Record is one decoded snolog packet.
type Record = snolog.Record

// HealthFlags holds the per-subsystem status bits of a packet.
type HealthFlags = snolog.HealthFlags

// PacketSize is the wire size of one snolog packet in bytes.
const PacketSize = snolog.Size

// DecodePacket validates and decodes one packet from the first
// PacketSize bytes of buf.
func DecodePacket(buf []byte) (Record, error) {
	return snolog.Unmarshal(buf)
}

// ParseHealthFlags expands the packed high and low health bytes.
func ParseHealthFlags(hi, lo byte) HealthFlags {
	return snolog.ParseHealthFlags(hi, lo)
}

// ConvertFile decodes every packet in the raw capture at inPath into a
// CSV at outPath, returning the record count.
func ConvertFile(inPath, outPath string) (int, error) {
	return convert.File(inPath, outPath, cliconfig.Logger())
}

// Logger returns the package-level zerolog logger used by the tools.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}
