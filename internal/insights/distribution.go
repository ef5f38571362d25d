package insights

import "time"

// MonthCount is the number of redemptions in one calendar month.
type MonthCount struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Count int        `json:"count"`
}

// Distribution buckets redemption times by weekday, hour and recent month.
type Distribution struct {
	ByWeekday      [7]int       `json:"by_weekday"`
	ByHour         [24]int      `json:"by_hour"`
	Months         []MonthCount `json:"months"`
	MostPopularDay time.Weekday `json:"most_popular_day"`
	MostActiveHour int          `json:"most_active_hour"`
}

// RecentMonths is how many calendar months Distribute reports, current month included.
const RecentMonths = 6

// Distribute computes the distribution in loc. Months are ordered oldest first.
// Ties for the most popular day or hour go to the earliest one.
func Distribute(redeemedAt []time.Time, now time.Time, loc *time.Location) Distribution {
	if loc == nil {
		loc = time.UTC
	}
	var d Distribution

	local := now.In(loc)
	firstOfMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	d.Months = make([]MonthCount, RecentMonths)
	index := make(map[[2]int]int, RecentMonths)
	for i := 0; i < RecentMonths; i++ {
		m := firstOfMonth.AddDate(0, i-(RecentMonths-1), 0)
		d.Months[i] = MonthCount{Year: m.Year(), Month: m.Month()}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}

	for _, t := range redeemedAt {
		lt := t.In(loc)
		d.ByWeekday[lt.Weekday()]++
		d.ByHour[lt.Hour()]++
		if i, ok := index[[2]int{lt.Year(), int(lt.Month())}]; ok {
			d.Months[i].Count++
		}
	}

	for day := 1; day < len(d.ByWeekday); day++ {
		if d.ByWeekday[day] > d.ByWeekday[d.MostPopularDay] {
			d.MostPopularDay = time.Weekday(day)
		}
	}
	for hour := 1; hour < len(d.ByHour); hour++ {
		if d.ByHour[hour] > d.ByHour[d.MostActiveHour] {
			d.MostActiveHour = hour
		}
	}
	return d
}
