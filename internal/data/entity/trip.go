package entity

type TripStatus string

const (
	TripStatusDraft     TripStatus = "DRAFT"
	TripStatusPublished TripStatus = "PUBLISHED"
	TripStatusArchived  TripStatus = "ARCHIVED"
)

// Trip is owned by the trip-management side of the system; this core only
// reads it for price and capacity.
type Trip struct {
	Base
	Title    string     `db:"title"`
	Price    int64      `db:"price"` // per guest, minor currency units
	Capacity int        `db:"capacity"`
	Status   TripStatus `db:"status"`
}
