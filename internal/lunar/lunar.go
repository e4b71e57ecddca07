// Package lunar converts Gregorian dates to the Chinese lunar calendar and
// labels them with festivals and solar terms.
//
// The conversion is table driven and covers lunar years 1900 to 2100
// (Gregorian 1900-01-31 onwards). Solar terms are approximated; see
// SolarTerms.
package lunar

import (
	"fmt"
	"time"
)

var (
	gan     = [10]string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	zhi     = [12]string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}
	animals = [12]string{"鼠", "牛", "虎", "兔", "龙", "蛇", "马", "羊", "猴", "鸡", "狗", "猪"}

	monthNames = [12]string{"正", "二", "三", "四", "五", "六", "七", "八", "九", "十", "冬", "腊"}
	dayNames   = [30]string{
		"初一", "初二", "初三", "初四", "初五", "初六", "初七", "初八", "初九", "初十",
		"十一", "十二", "十三", "十四", "十五", "十六", "十七", "十八", "十九", "二十",
		"廿一", "廿二", "廿三", "廿四", "廿五", "廿六", "廿七", "廿八", "廿九", "三十",
	}
)

type monthDay struct{ month, day int }

var lunarFestivals = map[monthDay]string{
	{1, 1}:   "春节",
	{1, 15}:  "元宵节",
	{2, 2}:   "龙抬头",
	{5, 5}:   "端午节",
	{7, 7}:   "七夕节",
	{7, 15}:  "中元节",
	{8, 15}:  "中秋节",
	{9, 9}:   "重阳节",
	{12, 8}:  "腊八节",
	{12, 23}: "小年",
}

var solarFestivals = map[monthDay]string{
	{1, 1}:   "元旦",
	{2, 14}:  "情人节",
	{3, 8}:   "妇女节",
	{3, 12}:  "植树节",
	{4, 1}:   "愚人节",
	{5, 1}:   "劳动节",
	{5, 4}:   "青年节",
	{6, 1}:   "儿童节",
	{7, 1}:   "建党节",
	{8, 1}:   "建军节",
	{9, 10}:  "教师节",
	{10, 1}:  "国庆节",
	{12, 25}: "圣诞节",
}

// NewYearsEve is the festival name for the last day of the lunar year.
const NewYearsEve = "除夕"

// epoch is lunar 1900-01-01.
var epoch = time.Date(1900, time.January, 31, 0, 0, 0, 0, time.UTC)

// Date is a lunar calendar date. Month is 1..12; IsLeap marks the inserted
// month that follows the regular month of the same number.
type Date struct {
	Year   int  `json:"year"`
	Month  int  `json:"month"`
	Day    int  `json:"day"`
	IsLeap bool `json:"isLeap"`
}

// FromSolar converts the calendar date of t (in t's location) to the
// lunar calendar. It returns false for dates outside the table.
func FromSolar(t time.Time) (Date, bool) {
	offset := civilDays(t)
	if offset < 0 {
		return Date{}, false
	}

	year := minYear
	for ; year <= maxYear; year++ {
		n := yearDays(year)
		if offset < n {
			break
		}
		offset -= n
	}
	if year > maxYear {
		return Date{}, false
	}

	leap := leapMonth(year)
	d := Date{Year: year, Month: 1}
	for {
		n := monthDays(year, d.Month)
		if offset < n {
			break
		}
		offset -= n
		if d.Month == leap {
			if n = leapDays(year); offset < n {
				d.IsLeap = true
				break
			}
			offset -= n
		}
		d.Month++
	}
	d.Day = offset + 1
	return d, true
}

// civilDays counts calendar days from the epoch to t's date.
func civilDays(t time.Time) int {
	y, m, day := t.Date()
	date := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return int(date.Sub(epoch).Hours() / 24)
}

// GanZhi is the sexagenary name of the lunar year, e.g. "乙巳".
func (d Date) GanZhi() string {
	return gan[(d.Year-4)%10] + zhi[(d.Year-4)%12]
}

// Animal is the zodiac animal of the lunar year.
func (d Date) Animal() string {
	return animals[(d.Year-4)%12]
}

// MonthName is e.g. "正月" or "闰二月".
func (d Date) MonthName() string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}
	name := monthNames[d.Month-1] + "月"
	if d.IsLeap {
		return "闰" + name
	}
	return name
}

// DayName is e.g. "初一" or "廿九".
func (d Date) DayName() string {
	if d.Day < 1 || d.Day > 30 {
		return ""
	}
	return dayNames[d.Day-1]
}

// String is the month and day name, e.g. "闰二月初一".
func (d Date) String() string {
	return d.MonthName() + d.DayName()
}

// Festival returns the fixed-date lunar festival of d. Leap months carry
// no festivals. New Year's Eve is handled by Lookup since it depends on
// the length of the twelfth month.
func (d Date) Festival() string {
	if d.IsLeap {
		return ""
	}
	return lunarFestivals[monthDay{d.Month, d.Day}]
}

// Info is everything known about one Gregorian date.
type Info struct {
	Date

	GanZhi    string `json:"ganZhi"`
	Animal    string `json:"animal"`
	MonthName string `json:"monthName"`
	DayName   string `json:"dayName"`

	SolarTerm     string `json:"solarTerm,omitempty"`
	LunarFestival string `json:"lunarFestival,omitempty"`
	SolarFestival string `json:"solarFestival,omitempty"`

	// Display is the single short label for a calendar cell: solar term,
	// then lunar festival, then solar festival, then the month name on
	// the first day of a month, then the day name.
	Display string `json:"display"`
}

// Lookup converts t and attaches its labels.
func Lookup(t time.Time) (Info, bool) {
	d, ok := FromSolar(t)
	if !ok {
		return Info{}, false
	}
	info := Info{
		Date:          d,
		GanZhi:        d.GanZhi(),
		Animal:        d.Animal(),
		MonthName:     d.MonthName(),
		DayName:       d.DayName(),
		LunarFestival: d.Festival(),
	}
	if info.LunarFestival == "" && isNewYearsEve(t) {
		info.LunarFestival = NewYearsEve
	}
	_, m, day := t.Date()
	info.SolarFestival = solarFestivals[monthDay{int(m), day}]
	info.SolarTerm, _ = SolarTerm(t)

	switch {
	case info.SolarTerm != "":
		info.Display = info.SolarTerm
	case info.LunarFestival != "":
		info.Display = info.LunarFestival
	case info.SolarFestival != "":
		info.Display = info.SolarFestival
	case d.Day == 1:
		info.Display = info.MonthName
	default:
		info.Display = info.DayName
	}
	return info, true
}

// isNewYearsEve reports whether the next day is lunar New Year.
func isNewYearsEve(t time.Time) bool {
	next, ok := FromSolar(t.AddDate(0, 0, 1))
	return ok && next.Month == 1 && next.Day == 1 && !next.IsLeap
}

// FullDisplay is e.g. "乙巳年 蛇年 正月初一".
func (i Info) FullDisplay() string {
	return fmt.Sprintf("%s年 %s年 %s%s", i.GanZhi, i.Animal, i.MonthName, i.DayName)
}

// IsImportantDate reports whether t is a lunar or solar festival.
func IsImportantDate(t time.Time) bool {
	info, ok := Lookup(t)
	return ok && (info.LunarFestival != "" || info.SolarFestival != "")
}
