// Package dataset loads the hotel reservations CSV and derives the feature
// rows the classifier is trained on.
package dataset

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
)

// Booking is one raw row of the reservations file. Column names are matched
// after header normalisation, so "Booking_ID" binds to booking_id.
type Booking struct {
	BookingID                       string  `csv:"booking_id"`
	NoOfAdults                      int     `csv:"no_of_adults"`
	NoOfChildren                    int     `csv:"no_of_children"`
	NoOfWeekendNights               int     `csv:"no_of_weekend_nights"`
	NoOfWeekNights                  int     `csv:"no_of_week_nights"`
	TypeOfMealPlan                  string  `csv:"type_of_meal_plan"`
	RequiredCarParkingSpace         int     `csv:"required_car_parking_space"`
	RoomTypeReserved                string  `csv:"room_type_reserved"`
	LeadTime                        int     `csv:"lead_time"`
	ArrivalYear                     int     `csv:"arrival_year"`
	ArrivalMonth                    int     `csv:"arrival_month"`
	ArrivalDate                     int     `csv:"arrival_date"`
	MarketSegmentType               string  `csv:"market_segment_type"`
	RepeatedGuest                   int     `csv:"repeated_guest"`
	NoOfPreviousCancellations       int     `csv:"no_of_previous_cancellations"`
	NoOfPreviousBookingsNotCanceled int     `csv:"no_of_previous_bookings_not_canceled"`
	AvgPricePerRoom                 float64 `csv:"avg_price_per_room"`
	NoOfSpecialRequests             int     `csv:"no_of_special_requests"`
	BookingStatus                   string  `csv:"booking_status"`
}

// Normalize lower-cases a textual value and replaces spaces with underscores.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// LoadCSV reads bookings from a file.
func LoadCSV(path string) ([]Booking, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	bookings, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}

	log.GetLoggerWithName("dataset").Info("Dataset loaded",
		log.PathKey, path,
		log.SamplesKey, len(bookings),
	)
	return bookings, nil
}

// ReadCSV decodes bookings from r. The header row is normalised before the
// columns are bound to Booking fields.
func ReadCSV(r io.Reader) ([]Booking, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read header")
	}
	if strings.TrimSpace(header) == "" {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	var bookings []Booking
	in := io.MultiReader(strings.NewReader(normalizeHeader(header)), br)
	if err := gocsv.Unmarshal(in, &bookings); err != nil {
		return nil, errors.Wrap(err, "decode rows")
	}
	if len(bookings) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	return bookings, nil
}

// WriteCSV encodes bookings with a header row.
func WriteCSV(w io.Writer, bookings []Booking) error {
	if err := gocsv.Marshal(bookings, w); err != nil {
		return errors.Wrap(err, "encode rows")
	}
	return nil
}

func normalizeHeader(line string) string {
	line = strings.TrimPrefix(line, "\ufeff")
	eol := ""
	if strings.HasSuffix(line, "\n") {
		eol = "\n"
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	}
	cols := strings.Split(line, ",")
	for i, c := range cols {
		cols[i] = Normalize(strings.Trim(c, `"`))
	}
	return strings.Join(cols, ",") + eol
}
