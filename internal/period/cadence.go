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
	"strings"
)

// Cadence is how often a benefit resets.
type Cadence string

const (
	Monthly    Cadence = "monthly"
	Quarterly  Cadence = "quarterly"
	SemiAnnual Cadence = "semi-annual"
	Annual     Cadence = "annual"
	Rolling    Cadence = "rolling"
	OneTime    Cadence = "one-time"
	PerBooking Cadence = "per-booking"
)

var cadences = map[Cadence]struct{}{
	Monthly: {}, Quarterly: {}, SemiAnnual: {}, Annual: {},
	Rolling: {}, OneTime: {}, PerBooking: {},
}

func ParseCadence(value string) (Cadence, error) {
	c := Cadence(strings.TrimSpace(value))
	if _, ok := cadences[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrBadCadence, value)
	}
	return c, nil
}

// ResetType anchors an annual or rolling window. The zero value means no anchor.
type ResetType string

const (
	ResetNone      ResetType = ""
	CalendarYear   ResetType = "calendar_year"
	CardmemberYear ResetType = "cardmember_year"
	RollingYears   ResetType = "rolling_years"
)

func ParseResetType(value string) (ResetType, error) {
	switch r := ResetType(strings.TrimSpace(value)); r {
	case ResetNone, CalendarYear, CardmemberYear, RollingYears:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown reset type %q", ErrBadCadence, value)
	}
}

// TrackingMode says how usage of a benefit is recorded.
type TrackingMode string

const (
	TrackAuto   TrackingMode = "auto"
	TrackManual TrackingMode = "manual"
	TrackInfo   TrackingMode = "info"
)

// ParseTrackingMode defaults an empty value to manual.
func ParseTrackingMode(value string) (TrackingMode, error) {
	switch m := TrackingMode(strings.TrimSpace(value)); m {
	case "":
		return TrackManual, nil
	case TrackAuto, TrackManual, TrackInfo:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown tracking mode %q", ErrBadCadence, value)
	}
}
