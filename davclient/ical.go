package davclient

import (
	"fmt"
	"strings"

	"github.com/emersion/go-ical"
)

// ParseEvents decodes raw calendar-data blocks, as returned by Events, and
// returns their VEVENT components in order.
func ParseEvents(raw []string) ([]ical.Event, error) {
	events := make([]ical.Event, 0, len(raw))
	for i, data := range raw {
		calendar, err := ical.NewDecoder(strings.NewReader(data)).Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to parse iCalendar data of event %d: %w", i, err)
		}
		events = append(events, calendar.Events()...)
	}
	return events, nil
}
