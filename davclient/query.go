package davclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyp0633/caldora-events/internal/xml"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

// TimeFormat is the UTC basic date-time format used in time-range filters.
const TimeFormat = "20060102T150405Z"

// CalendarEvents holds the outcome of the event query for one calendar.
type CalendarEvents struct {
	Calendar string
	Result   mo.Result[[]string]
}

// Events queries every discovered calendar for VEVENTs overlapping
// [start, end) and returns the raw iCalendar text of each match. Results
// follow the calendar list order, then the server's document order. The
// first failing calendar aborts the query and no partial result is
// returned.
func (p *Principal) Events(ctx context.Context, start, end string) ([]string, error) {
	if err := validateTimeRange(start, end); err != nil {
		return nil, err
	}

	results, err := p.queryCalendars(ctx, start, end, true)
	if err != nil {
		return nil, err
	}

	events := make([]string, 0)
	for _, r := range results {
		events = append(events, r.Result.MustGet()...)
	}
	return events, nil
}

// EventsBetween is Events with the bounds given as times.
func (p *Principal) EventsBetween(ctx context.Context, start, end time.Time) ([]string, error) {
	return p.Events(ctx, start.UTC().Format(TimeFormat), end.UTC().Format(TimeFormat))
}

// EventsByCalendar queries every calendar even when some fail. Each entry
// carries that calendar's events or its error, in calendar list order.
func (p *Principal) EventsByCalendar(ctx context.Context, start, end string) ([]CalendarEvents, error) {
	if err := validateTimeRange(start, end); err != nil {
		return nil, err
	}
	results, _ := p.queryCalendars(ctx, start, end, false)
	return results, nil
}

// queryCalendars runs one REPORT per calendar, at most p.client.concurrency
// at a time. Results are stored by calendar index so the order never
// depends on scheduling. With failFast the error of the lowest failing
// index is returned, the same one a sequential run reports; calendars after
// it are cancelled or never started.
func (p *Principal) queryCalendars(ctx context.Context, start, end string, failFast bool) ([]CalendarEvents, error) {
	calendars := p.Calendars()
	results := make([]CalendarEvents, len(calendars))
	body := xml.EventQuery(start, end)

	if p.client.concurrency < 2 {
		for i, calendar := range calendars {
			events, err := p.queryCalendar(ctx, calendar, body)
			results[i] = calendarResult(calendar, events, err)
			if err != nil && failFast {
				return results, err
			}
		}
		return results, nil
	}

	var (
		mu      sync.Mutex
		failed  = len(calendars)
		cancels = make([]context.CancelFunc, len(calendars))
	)
	// fail records a failure at index i and cancels every later calendar.
	fail := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		if i >= failed {
			return
		}
		failed = i
		for j := i + 1; j < len(cancels); j++ {
			if cancels[j] != nil {
				cancels[j]()
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(p.client.concurrency)
	for i, calendar := range calendars {
		i, calendar := i, calendar
		queryCtx, cancel := context.WithCancel(ctx)
		mu.Lock()
		cancels[i] = cancel
		skip := failFast && failed < i
		mu.Unlock()
		if skip {
			cancel()
			break
		}

		g.Go(func() error {
			defer cancel()
			events, err := p.queryCalendar(queryCtx, calendar, body)
			results[i] = calendarResult(calendar, events, err)
			if err != nil && failFast {
				fail(i)
			}
			return nil
		})
	}
	g.Wait()

	if failFast {
		for _, r := range results {
			if r.Result.IsError() {
				return results, r.Result.Error()
			}
		}
	}
	return results, nil
}

func (p *Principal) queryCalendar(ctx context.Context, calendar, body string) ([]string, error) {
	step := stepEvents + " " + calendar
	target := withPath(p.url, calendar)

	root, err := p.client.http.DoREPORT(ctx, target.String(), 1, body)
	if err != nil {
		return nil, requestError(step, err)
	}

	data := xml.FindAll(root, xml.TagCalendarData)
	events := make([]string, 0, len(data))
	for _, elem := range data {
		events = append(events, xml.Text(elem))
	}

	p.client.logger.Debug("queried calendar",
		"calendar", calendar,
		"events", len(events))
	return events, nil
}

func calendarResult(calendar string, events []string, err error) CalendarEvents {
	if err != nil {
		return CalendarEvents{Calendar: calendar, Result: mo.Err[[]string](err)}
	}
	return CalendarEvents{Calendar: calendar, Result: mo.Ok(events)}
}

func validateTimeRange(start, end string) error {
	for _, v := range []string{start, end} {
		if _, err := time.Parse(TimeFormat, v); err != nil {
			return &Error{
				Type: ErrConfiguration,
				Step: stepEvents,
				Err:  fmt.Errorf("invalid time %q: want format %s", v, TimeFormat),
			}
		}
	}
	return nil
}
