package lunar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestFromSolar(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want Date
	}{
		{"epoch", day(1900, time.January, 31), Date{Year: 1900, Month: 1, Day: 1}},
		{"new year 2025", day(2025, time.January, 29), Date{Year: 2025, Month: 1, Day: 1}},
		{"new year 2023", day(2023, time.January, 22), Date{Year: 2023, Month: 1, Day: 1}},
		{"eve 2025", day(2025, time.January, 28), Date{Year: 2024, Month: 12, Day: 29}},
		{"leap second month 2023", day(2023, time.March, 22), Date{Year: 2023, Month: 2, Day: 1, IsLeap: true}},
		{"sixth month 2025", day(2025, time.June, 25), Date{Year: 2025, Month: 6, Day: 1}},
		{"leap sixth month 2025", day(2025, time.July, 25), Date{Year: 2025, Month: 6, Day: 1, IsLeap: true}},
		{"mid-autumn 2025", day(2025, time.October, 6), Date{Year: 2025, Month: 8, Day: 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromSolar(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSolarOutOfRange(t *testing.T) {
	_, ok := FromSolar(day(1900, time.January, 30))
	assert.False(t, ok)
	_, ok = FromSolar(day(2101, time.June, 1))
	assert.False(t, ok)
	_, ok = Lookup(day(1800, time.May, 1))
	assert.False(t, ok)
}

func TestFromSolarUsesLocalDate(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	// 2025-01-28T20:00Z is already the 29th in UTC+8.
	got, ok := FromSolar(time.Date(2025, 1, 28, 20, 0, 0, 0, time.UTC).In(cst))
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2025, Month: 1, Day: 1}, got)
}

func TestConsecutiveDaysAdvance(t *testing.T) {
	prev, ok := FromSolar(day(2022, time.December, 1))
	require.True(t, ok)
	for d := day(2022, time.December, 2); d.Year() < 2026; d = d.AddDate(0, 0, 1) {
		cur, ok := FromSolar(d)
		require.True(t, ok)
		if cur.Day != 1 {
			require.Equal(t, prev.Day+1, cur.Day, d.Format("2006-01-02"))
			require.Equal(t, prev.Month, cur.Month)
			require.Equal(t, prev.IsLeap, cur.IsLeap)
		} else {
			require.Contains(t, []int{29, 30}, prev.Day, d.Format("2006-01-02"))
		}
		prev = cur
	}
}

func TestNames(t *testing.T) {
	d := Date{Year: 2025, Month: 1, Day: 1}
	assert.Equal(t, "乙巳", d.GanZhi())
	assert.Equal(t, "蛇", d.Animal())
	assert.Equal(t, "正月", d.MonthName())
	assert.Equal(t, "初一", d.DayName())

	leap := Date{Year: 2023, Month: 2, Day: 1, IsLeap: true}
	assert.Equal(t, "癸卯", leap.GanZhi())
	assert.Equal(t, "兔", leap.Animal())
	assert.Equal(t, "闰二月初一", leap.String())

	assert.Equal(t, "腊月廿九", Date{Year: 2024, Month: 12, Day: 29}.String())
	assert.Equal(t, "冬月三十", Date{Year: 2024, Month: 11, Day: 30}.String())
	assert.Equal(t, "", Date{}.MonthName())
}

func TestLookupDisplayPriority(t *testing.T) {
	tests := []struct {
		name    string
		in      time.Time
		display string
	}{
		{"lunar festival", day(2025, time.January, 29), "春节"},
		{"new years eve", day(2025, time.January, 28), "除夕"},
		{"solar term wins", day(2025, time.April, 4), "清明"},
		{"solar festival", day(2025, time.October, 1), "国庆节"},
		{"first of month", day(2025, time.June, 25), "六月"},
		{"first of leap month", day(2025, time.July, 25), "闰六月"},
		{"day name", day(2025, time.June, 26), "初二"},
		{"mid-autumn", day(2025, time.October, 6), "中秋节"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := Lookup(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.display, info.Display)
		})
	}

	info, ok := Lookup(day(2025, time.January, 29))
	require.True(t, ok)
	assert.Equal(t, "乙巳年 蛇年 正月初一", info.FullDisplay())
	assert.Equal(t, "春节", info.LunarFestival)
	assert.Empty(t, info.SolarFestival)
}

func TestLeapMonthHasNoFestival(t *testing.T) {
	// 闰二月初二 2023 is not 龙抬头.
	info, ok := Lookup(day(2023, time.March, 23))
	require.True(t, ok)
	assert.True(t, info.IsLeap)
	assert.Empty(t, info.LunarFestival)
	assert.Equal(t, "初二", info.Display)
}

func TestIsImportantDate(t *testing.T) {
	assert.True(t, IsImportantDate(day(2025, time.January, 29)))
	assert.True(t, IsImportantDate(day(2025, time.December, 25)))
	assert.True(t, IsImportantDate(day(2025, time.January, 28)))
	assert.False(t, IsImportantDate(day(2025, time.June, 26)))
}

func TestSolarTerms2025(t *testing.T) {
	terms := SolarTerms(2025)
	require.Len(t, terms, 24)

	byName := map[string]time.Time{}
	for _, term := range terms {
		byName[term.Name] = term.Date
	}
	want := map[string]time.Time{
		"小寒": time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC),
		"大寒": time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC),
		"立春": time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC),
		"春分": time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC),
		"清明": time.Date(2025, time.April, 4, 0, 0, 0, 0, time.UTC),
		"夏至": time.Date(2025, time.June, 21, 0, 0, 0, 0, time.UTC),
		"寒露": time.Date(2025, time.October, 8, 0, 0, 0, 0, time.UTC),
		"冬至": time.Date(2025, time.December, 21, 0, 0, 0, 0, time.UTC),
	}
	for name, date := range want {
		assert.Equal(t, date, byName[name], name)
	}

	assert.Equal(t, time.Date(2026, time.February, 18, 0, 0, 0, 0, time.UTC), SolarTerms(2026)[3].Date, "雨水 correction")
	assert.Nil(t, SolarTerms(1899))
	assert.Nil(t, SolarTerms(2101))
}

func TestSolarTermsOrdered(t *testing.T) {
	for y := 1900; y <= 2100; y++ {
		terms := SolarTerms(y)
		for i, term := range terms {
			require.Equal(t, time.Month(i/2+1), term.Date.Month(), "%d %s", y, term.Name)
			if i > 0 {
				require.True(t, term.Date.After(terms[i-1].Date), "%d %s", y, term.Name)
			}
		}
	}
}

func TestSolarTermAtMostOnePerDay(t *testing.T) {
	count := 0
	for d := day(2025, time.January, 1); d.Year() == 2025; d = d.AddDate(0, 0, 1) {
		name, ok := SolarTerm(d)
		if ok {
			count++
			assert.Contains(t, TermNames, name)
		} else {
			assert.Empty(t, name)
		}
	}
	assert.Equal(t, 24, count)

	name, ok := SolarTerm(day(2025, time.June, 21))
	require.True(t, ok)
	assert.Equal(t, "夏至", name)
	assert.True(t, IsImportantSolarTerm(name))
	assert.False(t, IsImportantSolarTerm("清明"))
}
