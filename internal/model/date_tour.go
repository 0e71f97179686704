package model

import "time"

// Season is the time of year a DateTour falls into.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// Valid reports whether s is a known season.
func (s Season) Valid() bool {
	switch s {
	case SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter:
		return true
	}
	return false
}

// TourType distinguishes group departures from individual ones.
type TourType string

const (
	TourTypeGroup      TourType = "group"
	TourTypeIndividual TourType = "individual"
)

// Valid reports whether t is a known tour type.
func (t TourType) Valid() bool { return t == TourTypeGroup || t == TourTypeIndividual }

// DateLayout is the wire and storage layout of DateTour dates.
const DateLayout = "2006-01-02"

// DateTour is a concrete scheduled instance of a tour.  Several tours may
// share one DateTour row through the tour_dates join table.
//
// Fields:
//  ID        – primary key identifier.
//  StartDate – first day of the tour.
//  EndDate   – last day of the tour, never before StartDate.
//  TourType  – group or individual.
//  Season    – season used by the season filter.
type DateTour struct {
	ID        uint64    // date_tours.id
	StartDate time.Time // date_tours.start_date
	EndDate   time.Time // date_tours.end_date
	TourType  TourType  // date_tours.tour_type
	Season    Season    // date_tours.season
}

// Validate checks the row before it is written.  The storage layer does not
// enforce the date ordering.
func (d DateTour) Validate() error {
	verr := &ValidationError{}
	if d.StartDate.IsZero() {
		verr.Add("start_date", "Обязательное поле.")
	}
	if d.EndDate.IsZero() {
		verr.Add("end_date", "Обязательное поле.")
	}
	if !d.StartDate.IsZero() && !d.EndDate.IsZero() && d.EndDate.Before(d.StartDate) {
		verr.Add("end_date", "Дата окончания тура не может быть раньше даты начала.")
	}
	if !d.TourType.Valid() {
		verr.Add("tour_type", "Недопустимый тип тура.")
	}
	if !d.Season.Valid() {
		verr.Add("season", "Недопустимый сезон.")
	}
	return verr.OrNil()
}
