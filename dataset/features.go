package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// Column names of the engineered feature set.
const (
	ColTypeOfMealPlan          = "type_of_meal_plan"
	ColRoomTypeReserved        = "room_type_reserved"
	ColMarketSegmentType       = "market_segment_type"
	ColWday                    = "wday"
	ColNoOfWeekendNights       = "no_of_weekend_nights"
	ColNoOfWeekNights          = "no_of_week_nights"
	ColRequiredCarParkingSpace = "required_car_parking_space"
	ColLeadTime                = "lead_time"
	ColRepeatedGuest           = "repeated_guest"
	ColPricePerPerson          = "price_per_person"
	ColAvgPricePerRoom         = "avg_price_per_room"
	ColNoOfSpecialRequests     = "no_of_special_requests"
	ColTotalNights             = "total_nights"
	ColArrivalMonth            = "arrival_month"
	ColNoOfAdults              = "no_of_adults"
	ColHaveChildren            = "have_children"
)

// CategoricalColumns are one-hot encoded by the vectorizer.
var CategoricalColumns = []string{
	ColTypeOfMealPlan, ColRoomTypeReserved, ColMarketSegmentType, ColWday,
}

// NumericalColumns pass through the vectorizer unchanged.
var NumericalColumns = []string{
	ColNoOfWeekendNights, ColNoOfWeekNights, ColRequiredCarParkingSpace,
	ColLeadTime, ColRepeatedGuest, ColPricePerPerson, ColAvgPricePerRoom,
	ColNoOfSpecialRequests, ColTotalNights, ColArrivalMonth, ColNoOfAdults,
	ColHaveChildren,
}

// Booking status values after normalisation.
const (
	StatusCanceled    = "canceled"
	StatusNotCanceled = "not_canceled"
)

// FallbackArrival replaces arrival dates that do not exist on the calendar.
var FallbackArrival = time.Date(2018, time.February, 28, 0, 0, 0, 0, time.UTC)

// Example is one engineered row: the model features plus the label.
// Booking id and cancellation history are not carried over.
type Example struct {
	TypeOfMealPlan    string
	RoomTypeReserved  string
	MarketSegmentType string
	Wday              string

	NoOfWeekendNights       int
	NoOfWeekNights          int
	RequiredCarParkingSpace int
	LeadTime                int
	RepeatedGuest           int
	PricePerPerson          float64
	AvgPricePerRoom         float64
	NoOfSpecialRequests     int
	TotalNights             int
	ArrivalMonth            int
	NoOfAdults              int
	HaveChildren            int

	// Label is 1 for a cancelled booking and 0 otherwise.
	Label float64
}

// Record returns the feature mapping consumed by the vectorizer.
// Numbers are float64 and categoricals are strings.
func (e Example) Record() map[string]any {
	return map[string]any{
		ColTypeOfMealPlan:          e.TypeOfMealPlan,
		ColRoomTypeReserved:        e.RoomTypeReserved,
		ColMarketSegmentType:       e.MarketSegmentType,
		ColWday:                    e.Wday,
		ColNoOfWeekendNights:       float64(e.NoOfWeekendNights),
		ColNoOfWeekNights:          float64(e.NoOfWeekNights),
		ColRequiredCarParkingSpace: float64(e.RequiredCarParkingSpace),
		ColLeadTime:                float64(e.LeadTime),
		ColRepeatedGuest:           float64(e.RepeatedGuest),
		ColPricePerPerson:          e.PricePerPerson,
		ColAvgPricePerRoom:         e.AvgPricePerRoom,
		ColNoOfSpecialRequests:     float64(e.NoOfSpecialRequests),
		ColTotalNights:             float64(e.TotalNights),
		ColArrivalMonth:            float64(e.ArrivalMonth),
		ColNoOfAdults:              float64(e.NoOfAdults),
		ColHaveChildren:            float64(e.HaveChildren),
	}
}

// Records maps Example.Record over examples.
func Records(examples []Example) []map[string]any {
	out := make([]map[string]any, len(examples))
	for i, e := range examples {
		out[i] = e.Record()
	}
	return out
}

// Labels returns the label column.
func Labels(examples []Example) []float64 {
	out := make([]float64, len(examples))
	for i, e := range examples {
		out[i] = e.Label
	}
	return out
}

// Subset returns the examples at idx, in idx order.
func Subset(examples []Example, idx []int) []Example {
	out := make([]Example, len(idx))
	for i, j := range idx {
		out[i] = examples[j]
	}
	return out
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// AdjustFeb29 moves February 29 to February 28 in non-leap years.
func AdjustFeb29(year, month, day int) (int, int) {
	if month == 2 && day == 29 && !IsLeapYear(year) {
		return month, 28
	}
	return month, day
}

// ArrivalDate rebuilds the arrival date. ok is false when the components do
// not form a real date and FallbackArrival was returned instead.
func ArrivalDate(year, month, day int) (t time.Time, ok bool) {
	month, day = AdjustFeb29(year, month, day)
	t = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return FallbackArrival, false
	}
	return t, true
}

// Label maps a booking status to 1 (canceled) or 0 (not_canceled).
func Label(status string) (float64, error) {
	switch Normalize(status) {
	case StatusCanceled:
		return 1, nil
	case StatusNotCanceled:
		return 0, nil
	default:
		return 0, errors.NewValueError("Label", "unknown booking status "+status)
	}
}

// Engineer derives the model features from raw bookings.
//
// Textual values are normalised, total_nights and have_children are derived,
// price_per_person is the floored room price per guest, and wday is the
// weekday name of the reconstructed arrival date. Rows whose date cannot be
// rebuilt use FallbackArrival and raise a DataConversionWarning.
func Engineer(bookings []Booking) ([]Example, error) {
	if len(bookings) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	logger := log.GetLoggerWithName("dataset").With(log.OperationKey, log.OperationTransform)

	examples := make([]Example, 0, len(bookings))
	var fallbacks, emptyParties, positives int

	for i, b := range bookings {
		label, err := Label(b.BookingStatus)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d (%s)", i, b.BookingID)
		}

		month, _ := AdjustFeb29(b.ArrivalYear, b.ArrivalMonth, b.ArrivalDate)
		arrival, ok := ArrivalDate(b.ArrivalYear, b.ArrivalMonth, b.ArrivalDate)
		if !ok {
			fallbacks++
			errors.Warn(errors.NewDataConversionWarning(
				formatDate(b.ArrivalYear, b.ArrivalMonth, b.ArrivalDate),
				FallbackArrival.Format(time.DateOnly),
				"invalid arrival date",
			))
		}

		party := b.NoOfAdults + b.NoOfChildren
		pricePerPerson := b.AvgPricePerRoom
		if party > 0 {
			pricePerPerson = math.Floor(b.AvgPricePerRoom / float64(party))
		} else {
			emptyParties++
		}

		haveChildren := 0
		if b.NoOfChildren > 0 {
			haveChildren = 1
		}
		if label == 1 {
			positives++
		}

		examples = append(examples, Example{
			TypeOfMealPlan:          Normalize(b.TypeOfMealPlan),
			RoomTypeReserved:        Normalize(b.RoomTypeReserved),
			MarketSegmentType:       Normalize(b.MarketSegmentType),
			Wday:                    arrival.Weekday().String(),
			NoOfWeekendNights:       b.NoOfWeekendNights,
			NoOfWeekNights:          b.NoOfWeekNights,
			RequiredCarParkingSpace: b.RequiredCarParkingSpace,
			LeadTime:                b.LeadTime,
			RepeatedGuest:           b.RepeatedGuest,
			PricePerPerson:          pricePerPerson,
			AvgPricePerRoom:         b.AvgPricePerRoom,
			NoOfSpecialRequests:     b.NoOfSpecialRequests,
			TotalNights:             b.NoOfWeekendNights + b.NoOfWeekNights,
			ArrivalMonth:            month,
			NoOfAdults:              b.NoOfAdults,
			HaveChildren:            haveChildren,
			Label:                   label,
		})
	}

	if fallbacks > 0 {
		logger.Warn("Arrival dates replaced with fallback",
			log.FallbackKey, fallbacks,
			"fallback", FallbackArrival.Format(time.DateOnly),
		)
	}
	if emptyParties > 0 {
		logger.Warn("Bookings with no guests use the room price per person", "rows", emptyParties)
	}
	logger.Info("Features engineered",
		log.SamplesKey, len(examples),
		log.PositivesKey, positives,
	)
	return examples, nil
}

func formatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
