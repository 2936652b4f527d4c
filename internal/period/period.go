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

// DefaultResetYears applies to rolling windows without an explicit span.
const DefaultResetYears = 4

// Window is an inclusive civil-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(d time.Time) bool {
	d = Civil(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// DaysRemaining is max(0, End - today) in days.
func (w Window) DaysRemaining(today time.Time) int {
	days := DaysBetween(today, w.End)
	if days < 0 {
		return 0
	}
	return days
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", FormatDate(w.Start), FormatDate(w.End))
}

// Params describes the benefit schedule a window is computed for.
type Params struct {
	Cadence     Cadence
	Reset       ResetType
	Anniversary *Anniversary
	ResetYears  int
	LastUsed    *time.Time
}

// Bounds returns the window of p that contains ref.
func Bounds(p Params, ref time.Time) (Window, error) {
	ref = Civil(ref)
	year, month := ref.Year(), ref.Month()

	switch p.Cadence {
	case Monthly:
		start := Date(year, month, 1)
		return Window{Start: start, End: start.AddDate(0, 1, -1)}, nil

	case Quarterly:
		first := time.Month((int(month)-1)/3*3 + 1)
		start := Date(year, first, 1)
		return Window{Start: start, End: start.AddDate(0, 3, -1)}, nil

	case SemiAnnual:
		if month <= time.June {
			return Window{Start: Date(year, time.January, 1), End: Date(year, time.June, 30)}, nil
		}
		return Window{Start: Date(year, time.July, 1), End: Date(year, time.December, 31)}, nil

	case Annual:
		if p.Reset == CardmemberYear && p.Anniversary != nil {
			return cardmemberYear(*p.Anniversary, ref), nil
		}
		return Window{Start: Date(year, time.January, 1), End: Date(year, time.December, 31)}, nil

	case Rolling:
		years := p.ResetYears
		if years <= 0 {
			years = DefaultResetYears
		}
		if p.LastUsed != nil {
			start := Civil(*p.LastUsed)
			return Window{Start: start, End: addYears(start, years).AddDate(0, 0, -1)}, nil
		}
		return Window{Start: addYears(ref, -years), End: addYears(ref, years)}, nil

	case OneTime:
		return Window{Start: Date(year-4, time.January, 1), End: Date(year+4, time.December, 31)}, nil

	case PerBooking:
		return Window{Start: ref, End: ref}, nil

	default:
		return Window{}, fmt.Errorf("%w: %q", ErrBadCadence, p.Cadence)
	}
}

func cardmemberYear(a Anniversary, ref time.Time) Window {
	this := a.In(ref.Year())
	if !ref.Before(this) {
		return Window{Start: this, End: a.In(ref.Year() + 1).AddDate(0, 0, -1)}
	}
	return Window{Start: a.In(ref.Year() - 1), End: this.AddDate(0, 0, -1)}
}
