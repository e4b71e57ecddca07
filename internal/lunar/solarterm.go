package lunar

import (
	"math"
	"time"
)

// TermNames lists the 24 solar terms in calendar order, two per month
// starting with January.
var TermNames = [24]string{
	"小寒", "大寒", "立春", "雨水", "惊蛰", "春分", "清明", "谷雨",
	"立夏", "小满", "芒种", "夏至", "小暑", "大暑", "立秋", "处暑",
	"白露", "秋分", "寒露", "霜降", "立冬", "小雪", "大雪", "冬至",
}

// Per-term constants of the day-of-month formula
//
//	day = floor(Y*0.2422 + C) - L
//
// where Y is the year within its century and L counts leap years before
// it. Values are for 1901-2000 and 2001-2100.
var (
	termC20 = [24]float64{
		6.11, 20.84, 4.6295, 19.4599, 6.3826, 21.4155, 5.59, 20.888,
		6.318, 21.86, 6.5, 22.2, 7.928, 23.65, 8.35, 23.95,
		8.44, 23.822, 9.098, 24.218, 8.218, 23.08, 7.9, 22.6,
	}
	termC21 = [24]float64{
		5.4055, 20.12, 3.87, 18.73, 5.63, 20.646, 4.81, 20.1,
		5.52, 21.04, 5.678, 21.37, 7.108, 22.83, 7.5, 23.13,
		7.646, 23.042, 8.318, 23.438, 7.438, 22.36, 7.18, 21.94,
	}
)

const termCoefficient = 0.2422

type yearTerm struct{ year, term int }

// termCorrections holds the years where the formula is a day off.
var termCorrections = map[yearTerm]int{
	{1982, 0}: 1, {2019, 0}: -1,
	{2082, 1}: 1,
	{2026, 3}: -1,
	{2084, 5}: 1,
	{1911, 8}: 1,
	{2008, 9}: 1,
	{1902, 10}: 1,
	{1928, 11}: 1,
	{1925, 12}: 1, {2016, 12}: 1,
	{1922, 13}: 1,
	{2002, 14}: 1,
	{1927, 16}: 1,
	{1942, 17}: 1,
	{2089, 19}: 1,
	{2089, 20}: 1,
	{1978, 21}: 1,
	{1954, 22}: 1,
	{1918, 23}: -1, {2021, 23}: -1,
}

// Term is a solar term on a civil date. Date is midnight UTC.
type Term struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// SolarTerms returns the 24 solar terms of a Gregorian year, or nil
// outside 1900-2100. Dates come from a linear approximation with a table
// of known corrections and may be off by at most one day.
func SolarTerms(year int) []Term {
	if year < minYear || year > 2100 {
		return nil
	}
	terms := make([]Term, len(TermNames))
	for i, name := range TermNames {
		month := time.Month(i/2 + 1)
		terms[i] = Term{
			Name: name,
			Date: time.Date(year, month, termDay(year, i), 0, 0, 0, 0, time.UTC),
		}
	}
	return terms
}

func termDay(year, i int) int {
	c, y := termC21[i], year-2000
	if year <= 2000 {
		c, y = termC20[i], year-1900
	}

	// Terms in January and February fall before that year's leap day.
	leaps := y / 4
	if i < 4 {
		leaps = (y - 1) / 4
	}

	day := int(math.Floor(float64(y)*termCoefficient+c)) - leaps
	return day + termCorrections[yearTerm{year, i}]
}

// SolarTerm returns the name of the solar term falling on t's calendar
// date, if any. A date carries at most one term.
func SolarTerm(t time.Time) (string, bool) {
	y, m, d := t.Date()
	if y < minYear || y > 2100 {
		return "", false
	}
	for i := int(m-1) * 2; i < int(m)*2; i++ {
		if termDay(y, i) == d {
			return TermNames[i], true
		}
	}
	return "", false
}

var importantTerms = map[string]bool{
	"立春": true, "春分": true, "立夏": true, "夏至": true,
	"立秋": true, "秋分": true, "立冬": true, "冬至": true,
}

// IsImportantSolarTerm reports whether name is one of the eight major
// terms that open or split a season.
func IsImportantSolarTerm(name string) bool {
	return importantTerms[name]
}
