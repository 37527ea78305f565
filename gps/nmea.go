// Copyright © 2024 Fluorologger Authors

package gps

import (
	"strconv"
	"strings"
	"time"
)

// Fix is a single GPS position and the time reported by the receiver
// itself, which may differ from the system clock.
type Fix struct {
	Lat  float64
	Lon  float64
	Time time.Time
}

// parseSentence extracts a Fix from one NMEA sentence. GGA and RMC
// sentences from any talker (GP, GN, ...) are recognized; everything
// else, including malformed input, is silently skipped since the
// receiver emits many sentence types and only position fixes matter.
//
// GGA carries no date, so its time-of-day is combined with the date of
// now. RMC carries its own date.
func parseSentence(line string, now time.Time) (Fix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	star := strings.LastIndexByte(line, '*')
	if star == -1 || star+3 != len(line) {
		return Fix{}, false
	}
	body := line[1:star]
	want, err := strconv.ParseUint(line[star+1:], 16, 8)
	if err != nil || checksum(body) != byte(want) {
		return Fix{}, false
	}

	fields := strings.Split(body, ",")
	talker := fields[0]
	if len(talker) != 5 {
		return Fix{}, false
	}

	switch talker[2:] {
	case "GGA":
		return parseGGA(fields, now)
	case "RMC":
		return parseRMC(fields)
	}
	return Fix{}, false
}

func checksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

// $xxGGA,time,lat,N/S,lon,E/W,quality,numSV,HDOP,alt,...
func parseGGA(fields []string, now time.Time) (Fix, bool) {
	if len(fields) < 7 {
		return Fix{}, false
	}
	quality, err := strconv.Atoi(fields[6])
	if err != nil || quality == 0 {
		return Fix{}, false
	}
	lat, ok := parseCoord(fields[2], fields[3])
	if !ok {
		return Fix{}, false
	}
	lon, ok := parseCoord(fields[4], fields[5])
	if !ok {
		return Fix{}, false
	}
	t, ok := parseClock(fields[1], now)
	if !ok {
		return Fix{}, false
	}
	return Fix{Lat: lat, Lon: lon, Time: t}, true
}

// $xxRMC,time,status,lat,N/S,lon,E/W,sog,cog,date,...
func parseRMC(fields []string) (Fix, bool) {
	if len(fields) < 10 {
		return Fix{}, false
	}
	if fields[2] != "A" {
		return Fix{}, false
	}
	lat, ok := parseCoord(fields[3], fields[4])
	if !ok {
		return Fix{}, false
	}
	lon, ok := parseCoord(fields[5], fields[6])
	if !ok {
		return Fix{}, false
	}
	date, err := time.Parse("020106", fields[9])
	if err != nil {
		return Fix{}, false
	}
	t, ok := parseClock(fields[1], date)
	if !ok {
		return Fix{}, false
	}
	return Fix{Lat: lat, Lon: lon, Time: t}, true
}

// parseCoord converts NMEA ddmm.mmmm plus hemisphere to signed decimal
// degrees.
func parseCoord(value, hemi string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	deg := float64(int(v / 100))
	min := v - deg*100
	if min >= 60 {
		return 0, false
	}
	dec := deg + min/60
	switch hemi {
	case "N", "E":
		return dec, true
	case "S", "W":
		return -dec, true
	}
	return 0, false
}

// parseClock converts NMEA hhmmss.ss time-of-day to a UTC instant on
// the date of ref.
func parseClock(value string, ref time.Time) (time.Time, bool) {
	if len(value) < 6 {
		return time.Time{}, false
	}
	hh, err1 := strconv.Atoi(value[0:2])
	mm, err2 := strconv.Atoi(value[2:4])
	ss, err3 := strconv.ParseFloat(value[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if hh > 23 || mm > 59 || ss >= 61 {
		return time.Time{}, false
	}
	y, m, d := ref.UTC().Date()
	nanos := int(ss * float64(time.Second))
	return time.Date(y, m, d, hh, mm, 0, nanos, time.UTC), true
}
