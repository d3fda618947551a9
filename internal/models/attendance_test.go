package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionWindowEnd(t *testing.T) {
	saturday := AttendanceSession{Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)}
	sunday := AttendanceSession{Date: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), saturday.WindowEnd(),
		"Saturday sessions stay open through the end of Sunday")
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), sunday.WindowEnd(),
		"Sunday sessions end with their own day")
}

func TestSessionEffectiveClosed(t *testing.T) {
	saturday := AttendanceSession{Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"during the session day", time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC), false},
		{"sunday still open", time.Date(2026, 3, 8, 23, 59, 59, 0, time.UTC), false},
		{"monday midnight closes", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), true},
		{"well past the window", time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, saturday.EffectiveClosed(tc.now))
		})
	}
}

func TestSessionExplicitCloseWins(t *testing.T) {
	session := AttendanceSession{
		Date:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		Closed: true,
	}
	assert.True(t, session.EffectiveClosed(time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)))
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Valid())
	assert.True(t, AttendanceStatusExcused.Valid())
	assert.False(t, AttendanceStatus("SLEEPING").Valid())
	assert.False(t, AttendanceStatus("").Valid())
}
