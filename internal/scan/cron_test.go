package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{
		"*/5 * * * *",
		"0 0 * * 0",
		"30 4 1,15 * 5",
		"0 22 * * 1-5",
		"@hourly",
		"@every 1h30m",
	}
	for _, schedule := range valid {
		assert.NoError(t, ValidateCronSchedule(schedule), "schedule %q", schedule)
	}

	invalid := []string{
		"",
		"   ",
		"*",
		"* * * *",
		"* * * * * *",
		"61 * * * *",
		"0 25 * * *",
		"0 0 32 * *",
		"not a cron",
	}
	for _, schedule := range invalid {
		assert.Error(t, ValidateCronSchedule(schedule), "schedule %q", schedule)
	}
}
