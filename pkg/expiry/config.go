package expiry

import (
	"os"
	"strconv"
	"time"
)

// SweepConfig controls expiry and review sweep behavior.
type SweepConfig struct {
	ReminderDays   int           // Days before expiry_date to start reminding. Default 30.
	ReviewDays     int           // Days before next_review_date to start reminding. Default 14.
	OverdueDays    int           // Days a document may sit pending before its approvers get an overdue notice. Default 7.
	Interval       time.Duration // Background sweep interval. 0 disables the loop; external cron still works via HTTP. Default 0.
	RetentionDays  int           // How long to keep sweep run records. Default 30.
	Enabled        bool          // Whether sweeping is active at all. Default true.
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() *SweepConfig {
	return &SweepConfig{
		ReminderDays:  30,
		ReviewDays:    14,
		OverdueDays:   7,
		Interval:      0,
		RetentionDays: 30,
		Enabled:       true,
	}
}

// SweepConfigFromEnv loads config from environment variables.
// DOCUVAULT_SWEEP_REMINDER_DAYS, DOCUVAULT_SWEEP_REVIEW_DAYS,
// DOCUVAULT_SWEEP_OVERDUE_DAYS, DOCUVAULT_SWEEP_INTERVAL_MINUTES,
// DOCUVAULT_SWEEP_RETENTION_DAYS, DOCUVAULT_SWEEP_ENABLED
func SweepConfigFromEnv() *SweepConfig {
	cfg := DefaultSweepConfig()

	if v := os.Getenv("DOCUVAULT_SWEEP_REMINDER_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReminderDays = n
		}
	}

	if v := os.Getenv("DOCUVAULT_SWEEP_REVIEW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReviewDays = n
		}
	}

	if v := os.Getenv("DOCUVAULT_SWEEP_OVERDUE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OverdueDays = n
		}
	}

	if v := os.Getenv("DOCUVAULT_SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Interval = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("DOCUVAULT_SWEEP_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}

	if v := os.Getenv("DOCUVAULT_SWEEP_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
