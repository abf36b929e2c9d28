package domain

import "time"

// Keys of the configuration store used by the engine.
const (
	SettingRedThresholdDays    = "redThresholdDays"
	SettingYellowThresholdDays = "yellowThresholdDays"
	SettingReopenWindowDays    = "reopenWindowDays"
	SettingCapturedStatusID    = "capturedStatusId"
	SettingExpiredStatusID     = "expiredStatusId"
)

// Defaults applied when a key is absent.
const (
	DefaultRedThresholdDays    = 10
	DefaultYellowThresholdDays = 5
	DefaultReopenWindowDays    = 3
)

// Settings is the typed policy configuration of the lifecycle engine.
type Settings struct {
	RedThresholdDays    int
	YellowThresholdDays int
	ReopenWindowDays    int
	CapturedStatusID    *string
	ExpiredStatusID     *string
}

// DefaultSettings returns the policy used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		RedThresholdDays:    DefaultRedThresholdDays,
		YellowThresholdDays: DefaultYellowThresholdDays,
		ReopenWindowDays:    DefaultReopenWindowDays,
	}
}

// ReopenWindow returns the reopen window as a duration.
func (s Settings) ReopenWindow() time.Duration {
	return time.Duration(s.ReopenWindowDays) * 24 * time.Hour
}
