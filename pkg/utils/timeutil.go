package utils

import (
	"fmt"
	"time"
)

// WIB is Western Indonesian Time (UTC+7), the zone of the Indonesia Stock Exchange.
var WIB *time.Location

func init() {
	var err error
	WIB, err = time.LoadLocation("Asia/Jakarta")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		WIB = time.FixedZone("WIB", 7*60*60)
	}
}

// NowWIB returns the current time in WIB.
func NowWIB() time.Time {
	return time.Now().In(WIB)
}

// ToWIB converts a time.Time to WIB.
func ToWIB(t time.Time) time.Time {
	return t.In(WIB)
}

// MarketOpenTime returns the IDX regular session start (09:00 WIB) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(WIB)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, WIB)
}

// MarketCloseTime returns the IDX close including the closing auction (16:00 WIB).
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(WIB)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, WIB)
}

// PreOpenStart returns the pre-opening session start time (08:45 WIB).
func PreOpenStart(date time.Time) time.Time {
	d := date.In(WIB)
	return time.Date(d.Year(), d.Month(), d.Day(), 8, 45, 0, 0, WIB)
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(WIB)
	if isWeekend(t) {
		return false
	}
	return !IsTradingHoliday(t)
}

// PrevTradingDay returns the previous trading day from the given date.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(WIB).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// NextTradingDay returns the next trading day from the given date.
func NextTradingDay(from time.Time) time.Time {
	next := from.In(WIB).AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// LastSession returns the WIB midnight of the latest trading day whose
// close had passed at now.
func LastSession(now time.Time) time.Time {
	d := now.In(WIB)
	if !IsTradingDay(d) || d.Before(MarketCloseTime(d)) {
		d = PrevTradingDay(d)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, WIB)
}

// CalendarDaysBetween returns the number of calendar days from a to b,
// comparing WIB dates only. It is negative when b is before a.
func CalendarDaysBetween(a, b time.Time) int {
	a, b = a.In(WIB), b.In(WIB)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// IsTradingHoliday checks if the given date is an IDX exchange holiday.
func IsTradingHoliday(t time.Time) bool {
	_, ok := HolidayName(t)
	return ok
}

// HolidayName returns the name of the exchange holiday on t, if any.
func HolidayName(t time.Time) (string, bool) {
	name, ok := idxHolidays2026[t.In(WIB).Format("2006-01-02")]
	return name, ok
}

// IDX holidays and cuti bersama for 2026 (update annually).
var idxHolidays2026 = map[string]string{
	"2026-01-01": "Tahun Baru Masehi",
	"2026-01-16": "Isra Mikraj",
	"2026-02-16": "Cuti Bersama Tahun Baru Imlek",
	"2026-02-17": "Tahun Baru Imlek",
	"2026-03-19": "Hari Suci Nyepi",
	"2026-03-20": "Idul Fitri",
	"2026-03-23": "Cuti Bersama Idul Fitri",
	"2026-03-24": "Cuti Bersama Idul Fitri",
	"2026-04-03": "Wafat Yesus Kristus",
	"2026-05-01": "Hari Buruh",
	"2026-05-14": "Kenaikan Yesus Kristus",
	"2026-05-27": "Idul Adha",
	"2026-06-01": "Hari Lahir Pancasila",
	"2026-06-16": "Tahun Baru Islam",
	"2026-08-17": "Hari Kemerdekaan RI",
	"2026-08-25": "Maulid Nabi Muhammad",
	"2026-12-24": "Cuti Bersama Natal",
	"2026-12-25": "Hari Raya Natal",
	"2026-12-31": "Libur Akhir Tahun Bursa",
}

var dayNamesID = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

var monthNamesID = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// DayNameID returns the Indonesian weekday name of t in WIB, e.g. "Senin".
func DayNameID(t time.Time) string {
	return dayNamesID[t.In(WIB).Weekday()]
}

// MonthNameID returns the Indonesian month name, e.g. "Oktober".
func MonthNameID(m time.Month) string {
	return monthNamesID[m-1]
}

// FormatDateLongID formats t as "16 Oktober 2026" in WIB.
func FormatDateLongID(t time.Time) string {
	t = t.In(WIB)
	return fmt.Sprintf("%02d %s %d", t.Day(), MonthNameID(t.Month()), t.Year())
}

// FormatDateShortID formats t as "16 Okt 2026" in WIB.
func FormatDateShortID(t time.Time) string {
	t = t.In(WIB)
	month := MonthNameID(t.Month())
	if len(month) > 3 {
		month = month[:3]
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), month, t.Year())
}

// FormatDateTimeWIB formats a time.Time to "2006-01-02 15:04:05 WIB".
func FormatDateTimeWIB(t time.Time) string {
	return t.In(WIB).Format("2006-01-02 15:04:05") + " WIB"
}

// MarketStatus returns the current IDX session status.
func MarketStatus() string {
	return MarketStatusAt(NowWIB())
}

// MarketStatusAt returns the IDX session status at t.
func MarketStatusAt(now time.Time) string {
	now = now.In(WIB)

	if isWeekend(now) {
		return "TUTUP (Akhir Pekan)"
	}
	if holiday, ok := HolidayName(now); ok {
		return "TUTUP (" + holiday + ")"
	}

	switch {
	case now.Before(PreOpenStart(now)):
		return "BELUM DIBUKA"
	case now.Before(MarketOpenTime(now)):
		return "SESI PRA-PEMBUKAAN"
	case !now.After(MarketCloseTime(now)):
		return "BUKA"
	default:
		return "TUTUP"
	}
}

// StaleReason explains in Indonesian why the latest bar is not from today.
// It returns "" when daysStale is zero.
func StaleReason(now time.Time, daysStale int) string {
	if daysStale <= 0 {
		return ""
	}
	now = now.In(WIB)
	if isWeekend(now) {
		return "hari ini akhir pekan (Sabtu/Minggu)"
	}
	if holiday, ok := HolidayName(now); ok {
		return "hari ini libur bursa (" + holiday + ")"
	}
	return "bursa belum/baru tutup dan data hari ini belum tersedia"
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
