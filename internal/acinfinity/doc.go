// Package acinfinity implements the binary protocol spoken by the AC Infinity
// Controller 69 Pro over its vendor GATT service.
//
// Every frame starts with an 8-byte header (magic, type, length, sequence and
// a CRC16 over the first six bytes) followed by a payload that carries its own
// trailing CRC16. Both checksums are CRC-16/CCITT-FALSE.
//
// The package performs no I/O: Encode turns a Command into the bytes to
// write, Assembler rebuilds frames from notification fragments and Decode
// turns a complete frame into a Response.
package acinfinity
