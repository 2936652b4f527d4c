/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package period

import (
	"fmt"
	"time"
)

// Anniversary is a card-open month/day. Year is zero when only MM-DD was given.
type Anniversary struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseAnniversary accepts MM-DD and YYYY-MM-DD.
func ParseAnniversary(value string) (Anniversary, error) {
	switch len(value) {
	case len("01-02"):
		// 2000 is a leap year so 02-29 is accepted.
		t, err := time.Parse(DateLayout, "2000-"+value)
		if err != nil {
			return Anniversary{}, fmt.Errorf("%w: %q (expected MM-DD or YYYY-MM-DD)", ErrBadAnniversary, value)
		}
		return Anniversary{Month: t.Month(), Day: t.Day()}, nil
	case len(DateLayout):
		t, err := time.Parse(DateLayout, value)
		if err != nil {
			return Anniversary{}, fmt.Errorf("%w: %q (expected MM-DD or YYYY-MM-DD)", ErrBadAnniversary, value)
		}
		return Anniversary{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	default:
		return Anniversary{}, fmt.Errorf("%w: %q (expected MM-DD or YYYY-MM-DD)", ErrBadAnniversary, value)
	}
}

// In resolves the anniversary in the given year.
func (a Anniversary) In(year int) time.Time {
	return sameDayIn(year, a.Month, a.Day)
}

// String returns the anniversary in the format it was given.
func (a Anniversary) String() string {
	if a.Year > 0 {
		return fmt.Sprintf("%04d-%02d-%02d", a.Year, int(a.Month), a.Day)
	}
	return fmt.Sprintf("%02d-%02d", int(a.Month), a.Day)
}

// NextOccurrence is the first anniversary strictly after today.
func (a Anniversary) NextOccurrence(today time.Time) time.Time {
	today = Civil(today)
	next := a.In(today.Year())
	if !next.After(today) {
		next = a.In(today.Year() + 1)
	}
	return next
}

// DaysUntilRenewal counts days from today to the next anniversary.
func (a Anniversary) DaysUntilRenewal(today time.Time) int {
	return DaysBetween(today, a.NextOccurrence(today))
}
