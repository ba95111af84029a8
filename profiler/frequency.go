package profiler

import (
	"time"

	"divcal/models"
)

// Mean-gap upper bounds, in days, for each frequency class. Bounds are inclusive.
const (
	quarterlyMaxGapDays  = 100
	semiAnnualMaxGapDays = 200
	annualMaxGapDays     = 400
)

// Offsets added to the last event date when estimating the next ex-dividend date.
const (
	quarterlyOffsetDays  = 90
	semiAnnualOffsetDays = 180
	annualOffsetDays     = 365

	// SettlementDays separates an estimated ex-dividend date from its payment date.
	SettlementDays = 21
)

// ClassifyFrequency infers the payment cadence from the mean gap between
// consecutive events. Fewer than two events yields FrequencyUnknown.
// History must be in ascending date order.
func ClassifyFrequency(history []models.DividendEvent) models.Frequency {
	if len(history) < 2 {
		return models.FrequencyUnknown
	}

	// Compare the gap sum against bound*(n-1) so the mean never goes through floats.
	var total int64
	for i := 1; i < len(history); i++ {
		total += dayNumber(history[i].PaymentDate) - dayNumber(history[i-1].PaymentDate)
	}
	gaps := int64(len(history) - 1)

	switch {
	case total <= quarterlyMaxGapDays*gaps:
		return models.FrequencyQuarterly
	case total <= semiAnnualMaxGapDays*gaps:
		return models.FrequencySemiAnnual
	case total <= annualMaxGapDays*gaps:
		return models.FrequencyAnnual
	default:
		return models.FrequencyIrregular
	}
}

// EstimateNextDates projects the next ex-dividend and payment dates from the
// last observed event. This is a heuristic: the result is an estimate, not a
// declared date. Irregular and unknown cadences are treated as quarterly.
func EstimateNextDates(last time.Time, freq models.Frequency) (exDate, paymentDate time.Time) {
	offset := quarterlyOffsetDays
	switch freq {
	case models.FrequencySemiAnnual:
		offset = semiAnnualOffsetDays
	case models.FrequencyAnnual:
		offset = annualOffsetDays
	}

	exDate = calendarDate(last).AddDate(0, 0, offset)
	paymentDate = exDate.AddDate(0, 0, SettlementDays)
	return exDate, paymentDate
}

// calendarDate drops the clock part, keeping the date as written in the source.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayNumber(t time.Time) int64 {
	return calendarDate(t).Unix() / 86400
}
