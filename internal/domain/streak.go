package domain

import "time"

const dayKeyLayout = "2006-01-02"

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyLayout)
}

// startOfDay truncates t to local midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ComputeStreak counts consecutive calendar days, ending today, that have at least one
// completion. Dates are compared as calendar days in loc, so several completions on the
// same day count once. A day without a completion ends the streak; if today has none the
// streak is zero.
func ComputeStreak(completions []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		days[dayKey(c, loc)] = struct{}{}
	}

	streak := 0
	cursor := startOfDay(now, loc)
	for {
		if _, ok := days[cursor.Format(dayKeyLayout)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// WeekdayBuckets counts completions per weekday (index 0 = Sunday) in loc.
func WeekdayBuckets(completions []time.Time, loc *time.Location) [7]int {
	if loc == nil {
		loc = time.UTC
	}
	var buckets [7]int
	for _, c := range completions {
		buckets[c.In(loc).Weekday()]++
	}
	return buckets
}

// MonthBuckets counts completions per calendar month (index 0 = January) in loc.
func MonthBuckets(completions []time.Time, loc *time.Location) [12]int {
	if loc == nil {
		loc = time.UTC
	}
	var buckets [12]int
	for _, c := range completions {
		buckets[c.In(loc).Month()-1]++
	}
	return buckets
}

// CountSince counts completions at or after since.
func CountSince(completions []time.Time, since time.Time) int {
	n := 0
	for _, c := range completions {
		if !c.Before(since) {
			n++
		}
	}
	return n
}

// StartOfWeek returns local midnight of the Monday on or before t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	d := startOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
