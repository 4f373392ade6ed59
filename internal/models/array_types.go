package models

import (
	"database/sql/driver"
	"sort"

	"github.com/lib/pq"
)

// SeatNumbers is a custom type for handling INTEGER[] seat arrays in PostgreSQL
type SeatNumbers []int

// Value implements the driver.Valuer interface
func (s SeatNumbers) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	arr := make(pq.Int64Array, len(s))
	for i, n := range s {
		arr[i] = int64(n)
	}
	return arr.Value()
}

// Scan implements the sql.Scanner interface
func (s *SeatNumbers) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return err
	}
	seats := make(SeatNumbers, len(arr))
	for i, n := range arr {
		seats[i] = int(n)
	}
	*s = seats
	return nil
}

// Contains reports whether seat is part of the set
func (s SeatNumbers) Contains(seat int) bool {
	for _, n := range s {
		if n == seat {
			return true
		}
	}
	return false
}

// Sorted returns an ascending copy
func (s SeatNumbers) Sorted() SeatNumbers {
	out := make(SeatNumbers, len(s))
	copy(out, s)
	sort.Ints(out)
	return out
}
