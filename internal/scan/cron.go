package scan

import (
	"errors"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule reports why a CronJob schedule is invalid, or nil if
// it parses. Accepts the standard five-field grammar (names, ranges, steps,
// and lists included, every numeric value range-checked) plus the @every and
// @hourly style descriptors the CronJob controller honors.
func ValidateCronSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return errors.New("schedule is empty")
	}
	_, err := cron.ParseStandard(schedule)
	return err
}
