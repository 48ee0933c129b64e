package zealfs

import (
	"time"
)

// FromBCD converts an 8-bit BCD value into its binary value.
// For example 0x26 becomes 26. Values with nibbles above 9 are
// unspecified on disk and decode arithmetically.
func FromBCD(value byte) int {
	return int(value>>4)*10 + int(value&0xF)
}

// ToBCD converts a value between 0 and 99 into its BCD encoding.
// For example 13 becomes 0x13 (in hex!). Bigger inputs wrap at 100,
// so ToBCD(126) == ToBCD(26).
func ToBCD(value int) byte {
	return byte(((value/10)%10)<<4 | value%10)
}

// ParseDate decodes the 8 BCD date bytes of a directory entry:
//  byte 0: century (e.g. 0x20)
//  byte 1: year within the century
//  byte 2: month, 1-12
//  byte 3: day of month, 1-31
//  byte 4: weekday, 0-6 (redundant, ignored on decode)
//  byte 5: hours, 0-23
//  byte 6: minutes, 0-59
//  byte 7: seconds, 0-59
// The timestamp is stored in local time.
//
// A month or day of 0 never occurs on a valid image; in that case the
// zero time.Time is returned so that time.Time.IsZero() can be used.
func ParseDate(date [8]byte) time.Time {
	year := FromBCD(date[0])*100 + FromBCD(date[1])
	month := FromBCD(date[2])
	day := FromBCD(date[3])

	if month == 0 || day == 0 {
		return time.Time{}
	}

	return time.Date(year, time.Month(month), day,
		FromBCD(date[5]), FromBCD(date[6]), FromBCD(date[7]), 0, time.Local)
}

// EncodeDate encodes a timestamp into the 8 BCD date bytes of a
// directory entry, including the redundant weekday byte.
func EncodeDate(t time.Time) [8]byte {
	return [8]byte{
		ToBCD(t.Year() / 100),
		ToBCD(t.Year() % 100),
		ToBCD(int(t.Month())),
		ToBCD(t.Day()),
		ToBCD(int(t.Weekday())),
		ToBCD(t.Hour()),
		ToBCD(t.Minute()),
		ToBCD(t.Second()),
	}
}
