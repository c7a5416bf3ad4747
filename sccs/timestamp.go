package sccs

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var zoneOffsetRE = regexp.MustCompile(`^([-+][0-9]{2})([0-9]{2})$`)

// locationFromOffset builds a fixed-offset Location from a "+HHMM"/"-HHMM"
// string, naming the zone after the offset itself so Format("-0700") round
// trips it -- a raw Git-style offset carries no IANA zone name.
func locationFromOffset(offset string) (*time.Location, error) {
	m := zoneOffsetRE.FindStringSubmatch(offset)
	if m == nil {
		return nil, errors.New("ill-formed zone offset " + offset)
	}
	hours, _ := strconv.Atoi(m[1][1:])
	mins, _ := strconv.Atoi(m[2])
	sign := 1
	if m[1][0] == '-' {
		sign = -1
	}
	secs := sign * (hours*3600 + mins*60)
	return time.FixedZone(offset, secs), nil
}

// ResolveTimestamp converts an SCCS two-part date+time into a UTC instant
// plus the "±HHMM" offset that should be displayed alongside the commit,
// applying the committer/default/host zone-selection chain and the
// one-time zone-move rule below.
func ResolveTimestamp(creationDate, creationTime string, authorZone, defaultZone *time.Location, moveDate *time.Time, moveZone *time.Location) (time.Time, string, error) {
	dp := strings.Split(creationDate, "/")
	if len(dp) != 3 {
		return time.Time{}, "", newError(BadDate, nil, creationDate)
	}
	yy, e1 := strconv.Atoi(dp[0])
	mm, e2 := strconv.Atoi(dp[1])
	dd, e3 := strconv.Atoi(dp[2])
	if e1 != nil || e2 != nil || e3 != nil {
		return time.Time{}, "", newError(BadDate, nil, creationDate)
	}

	tp := strings.Split(creationTime, ":")
	if len(tp) != 3 {
		return time.Time{}, "", newError(BadTime, nil, creationTime)
	}
	hh, e4 := strconv.Atoi(tp[0])
	mi, e5 := strconv.Atoi(tp[1])
	ss, e6 := strconv.Atoi(tp[2])
	if e4 != nil || e5 != nil || e6 != nil {
		return time.Time{}, "", newError(BadTime, nil, creationTime)
	}

	// Two-digit years pivot at 69.
	year := 1900 + yy
	if yy < 69 {
		year = 2000 + yy
	}

	zone := defaultZone
	if authorZone != nil {
		zone = authorZone
	}
	if zone == nil {
		zone = time.Local
	}

	civil := time.Date(year, time.Month(mm), dd, hh, mi, ss, 0, zone)
	if moveDate != nil && authorZone == nil && !civil.Before(*moveDate) {
		civil = time.Date(year, time.Month(mm), dd, hh, mi, ss, 0, moveZone)
	}

	return civil.UTC(), civil.Format("-0700"), nil
}
