package dataset

import (
	"fmt"
	"math/rand/v2"
)

var (
	mealPlans = []string{"Meal Plan 1", "Meal Plan 2", "Not Selected"}
	roomTypes = []string{"Room_Type 1", "Room_Type 2", "Room_Type 4"}
	segments  = []string{"Online", "Offline", "Corporate"}
)

// Synthetic returns n reproducible bookings for smoke runs and tests.
// Bookings made far ahead without special requests are cancelled, so the
// label is learnable from lead_time and no_of_special_requests.
func Synthetic(n int, seed uint64) []Booking {
	r := rand.New(rand.NewPCG(seed, seed))
	out := make([]Booking, n)
	for i := range out {
		lead := r.IntN(365)
		requests := r.IntN(3)
		status := StatusNotCanceled
		if lead > 150 && requests == 0 || lead > 300 {
			status = StatusCanceled
		}
		adults := 1 + r.IntN(3)
		children := 0
		if r.IntN(5) == 0 {
			children = 1
		}
		out[i] = Booking{
			BookingID:               fmt.Sprintf("INN%05d", i+1),
			NoOfAdults:              adults,
			NoOfChildren:            children,
			NoOfWeekendNights:       r.IntN(3),
			NoOfWeekNights:          1 + r.IntN(5),
			TypeOfMealPlan:          mealPlans[r.IntN(len(mealPlans))],
			RequiredCarParkingSpace: r.IntN(2),
			RoomTypeReserved:        roomTypes[r.IntN(len(roomTypes))],
			LeadTime:                lead,
			ArrivalYear:             2017 + r.IntN(2),
			ArrivalMonth:            1 + r.IntN(12),
			ArrivalDate:             1 + r.IntN(28),
			MarketSegmentType:       segments[r.IntN(len(segments))],
			AvgPricePerRoom:         float64(60 + r.IntN(120)),
			NoOfSpecialRequests:     requests,
			BookingStatus:           status,
		}
	}
	return out
}
