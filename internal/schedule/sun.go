package schedule

import (
	"math"
	"time"
)

// DayKind classifies a day at a given latitude.
type DayKind int

const (
	NormalDay DayKind = iota
	PolarNight
	MidnightSun
)

const (
	j2000       = 2451545.0
	unixEpochJD = 2440587.5
	obliquity   = 23.4397
	// Sun centre 0.833 degrees below the horizon: refraction plus disc radius.
	horizon = -0.833
)

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

func toJulian(t time.Time) float64 {
	return float64(t.Unix())/86400 + unixEpochJD
}

func fromJulian(jd float64, loc *time.Location) time.Time {
	sec := (jd - unixEpochJD) * 86400
	return time.Unix(0, int64(math.Round(sec*1e9))).In(loc)
}

// SunTimes computes sunrise and sunset for the calendar day of day in its
// location. Times are zero when kind is not NormalDay.
func SunTimes(day time.Time, lat, lon float64) (sunrise, sunset time.Time, kind DayKind) {
	y, m, d := day.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)

	n := math.Round(toJulian(noon) - j2000 + 0.0008)
	meanSolarNoon := n - lon/360

	anomaly := math.Mod(357.5291+0.98560028*meanSolarNoon, 360)
	ma := rad(anomaly)
	center := 1.9148*math.Sin(ma) + 0.0200*math.Sin(2*ma) + 0.0003*math.Sin(3*ma)
	eclipticLon := math.Mod(anomaly+center+180+102.9372, 360)
	el := rad(eclipticLon)

	transit := j2000 + meanSolarNoon + 0.0053*math.Sin(ma) - 0.0069*math.Sin(2*el)

	sinDecl := math.Sin(el) * math.Sin(rad(obliquity))
	cosDecl := math.Cos(math.Asin(sinDecl))

	phi := rad(lat)
	cosHour := (math.Sin(rad(horizon)) - math.Sin(phi)*sinDecl) / (math.Cos(phi) * cosDecl)
	switch {
	case cosHour > 1:
		return time.Time{}, time.Time{}, PolarNight
	case cosHour < -1:
		return time.Time{}, time.Time{}, MidnightSun
	}

	hourAngle := deg(math.Acos(cosHour))
	loc := day.Location()
	return fromJulian(transit-hourAngle/360, loc), fromJulian(transit+hourAngle/360, loc), NormalDay
}
