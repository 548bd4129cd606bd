// Copyright 2021 Silvio Böhler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package date

import (
	"fmt"
	"time"
)

// Layout is the canonical date layout.
const Layout = "2006-01-02"

// Date creates a new date in UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the calendar date.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// Today returns today's date.
func Today() time.Time {
	return Truncate(time.Now().Local())
}

// Period is a closed date interval. A zero Start or End leaves that side
// unbounded.
type Period struct {
	Start, End time.Time
}

// Clip narrows p to the bounds of p2.
func (p Period) Clip(p2 Period) Period {
	if !p2.Start.IsZero() && (p.Start.IsZero() || p2.Start.After(p.Start)) {
		p.Start = p2.Start
	}
	if !p2.End.IsZero() && (p.End.IsZero() || p2.End.Before(p.End)) {
		p.End = p2.End
	}
	return p
}

// Contains reports whether t lies within the period.
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

// IsZero reports whether the period is unbounded on both sides.
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s]", format(p.Start), format(p.End))
}

func format(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.Format(Layout)
}
