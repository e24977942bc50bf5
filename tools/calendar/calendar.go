// Package calendar creates remote calendar events over the Google Calendar
// REST API. Auth is opaque, a bearer token is expected in the env.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"resty.dev/v3"

	"github.com/pancsta/studai/taskstore"
)

// EnvToken holds the OAuth bearer token for the calendar API.
const EnvToken = "GOOGLE_CALENDAR_TOKEN"

// ErrNoToken means the env token is unset. Callers may degrade to a
// store-only reminder.
var ErrNoToken = errors.New(EnvToken + " not set")

const baseURL = "https://www.googleapis.com/calendar/v3"

// EventDuration is the fixed length of created events.
const EventDuration = time.Hour

// reminder offsets before the event
const (
	emailReminderMin = 24 * 60
	popupReminderMin = 60
)

type Config struct {
	// CalendarId defaults to "primary".
	CalendarId string
	// Timezone for event times, defaults to time.Local.
	Timezone string
}

type Client struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config) *Client {
	if cfg.CalendarId == "" {
		cfg.CalendarId = "primary"
	}

	return &Client{cfg: cfg, client: resty.New()}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type reminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type eventReminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []reminderOverride `json:"overrides"`
}

type eventBody struct {
	Summary   string         `json:"summary"`
	Start     eventTime      `json:"start"`
	End       eventTime      `json:"end"`
	Reminders eventReminders `json:"reminders"`
}

type eventResp struct {
	Id       string `json:"id"`
	HtmlLink string `json:"htmlLink"`
}

// CreateEvent creates a 1h event at [deadline] ("YYYY-MM-DD HH:MM") with
// 24h and 1h reminder offsets, and returns a confirmation text.
func (c *Client) CreateEvent(ctx context.Context, title, deadline string) (string, error) {
	token := os.Getenv(EnvToken)
	if token == "" {
		return "", ErrNoToken
	}

	loc := time.Local
	if c.cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(c.cfg.Timezone); err != nil {
			return "", fmt.Errorf("calendar timezone: %w", err)
		}
	}
	start, err := time.ParseInLocation(taskstore.DeadlineLayout, deadline, loc)
	if err != nil {
		return "", fmt.Errorf("deadline %q not in form %s: %w", deadline,
			taskstore.DeadlineLayout, err)
	}
	end := start.Add(EventDuration)

	body := eventBody{
		Summary: title,
		Start:   eventTime{DateTime: start.Format(time.RFC3339), TimeZone: c.cfg.Timezone},
		End:     eventTime{DateTime: end.Format(time.RFC3339), TimeZone: c.cfg.Timezone},
		Reminders: eventReminders{
			UseDefault: false,
			Overrides: []reminderOverride{
				{Method: "email", Minutes: emailReminderMin},
				{Method: "popup", Minutes: popupReminderMin},
			},
		},
	}

	var out eventResp
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("%s/calendars/%s/events", baseURL, c.cfg.CalendarId))
	if err != nil {
		return "", fmt.Errorf("calendar: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("calendar: HTTP %d: %s", resp.StatusCode(),
			resp.String())
	}

	txt := fmt.Sprintf("Acara %q masuk kalender untuk %s.", title, deadline)
	if out.HtmlLink != "" {
		txt += "\n🔗 " + out.HtmlLink
	}

	return txt, nil
}
