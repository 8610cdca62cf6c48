package config

// CalendarConfig holds the Google Calendar credentials used by the
// notifier.  When ClientID or RefreshToken is empty the notifier falls
// back to logging events instead of writing them to a calendar.
type CalendarConfig struct {
    ClientID     string
    ClientSecret string
    RefreshToken string
    CalendarID   string
    TimeZone     string
}

// Enabled reports whether enough credentials are present to call Google.
func (c CalendarConfig) Enabled() bool {
    return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

func LoadCalendarConfig() CalendarConfig {
    return CalendarConfig{
        ClientID:     envStr("GOOGLE_CLIENT_ID", ""),
        ClientSecret: envStr("GOOGLE_CLIENT_SECRET", ""),
        RefreshToken: envStr("GOOGLE_REFRESH_TOKEN", ""),
        CalendarID:   envStr("GOOGLE_CALENDAR_ID", "primary"),
        TimeZone:     envStr("CALENDAR_TIMEZONE", "UTC"),
    }
}
