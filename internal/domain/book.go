package domain

import "time"

// Low-stock thresholds used by dashboard projections. Display heuristic
// only; the hard invariant is 0 <= available_copies <= total_copies.
const (
	lowStockAbsolute = 3
	lowStockPercent  = 30.0
)

type Book struct {
	ID              int32     `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	TotalCopies     int32     `json:"total_copies"`
	AvailableCopies int32     `json:"available_copies"`
	PriceCents      int32     `json:"price_cents"`
	ShelfLocation   string    `json:"shelf_location"`
	CreatedOn       time.Time `json:"created_on"`
}

// BorrowedCopies is the number of copies currently out on loan.
func (b *Book) BorrowedCopies() int32 {
	return b.TotalCopies - b.AvailableCopies
}

func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// AvailabilityPercentage returns available copies as a percentage of total.
func (b *Book) AvailabilityPercentage() float64 {
	if b.TotalCopies == 0 {
		return 0
	}
	return float64(b.AvailableCopies) * 100.0 / float64(b.TotalCopies)
}

// IsLowStock reports whether the book shows up on the low-stock dashboard:
// fewer than 3 available copies, or less than 30% of total available.
func (b *Book) IsLowStock() bool {
	return b.AvailableCopies < lowStockAbsolute || b.AvailabilityPercentage() < lowStockPercent
}
