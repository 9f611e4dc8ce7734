package botcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	sensor := NewSensor()

	tests := []struct {
		name      string
		content   string
		title     string
		blocked   bool
		indicator string
	}{
		{
			name:      "human verification prompt",
			content:   "<p>Please verify you are human to continue</p>",
			blocked:   true,
			indicator: "verify you are human",
		},
		{
			name:      "captcha challenge",
			content:   "<div>Complete the CAPTCHA below</div>",
			blocked:   true,
			indicator: "captcha",
		},
		{
			name:      "access denied uppercase",
			content:   "ACCESS DENIED",
			blocked:   true,
			indicator: "access denied",
		},
		{
			name:      "blocking title only",
			content:   "<html><body></body></html>",
			title:     "Robot Check",
			blocked:   true,
			indicator: "robot check",
		},
		{
			name:    "regular product page",
			content: "<h1>Oak Chair</h1><p>Solid oak dining chair</p>",
			title:   "Oak Chair - Example Shop",
			blocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, indicator := sensor.IsBlocked(tt.content, tt.title)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.indicator, indicator)
		})
	}
}

func TestWithIndicatorsNarrowsFalsePositives(t *testing.T) {
	// a robotics shop page mentions "robot" legitimately
	content := "<h1>Robot Vacuum Cleaner</h1><p>This is not a bot toy, it cleans floors.</p>"

	full := NewSensor()
	blocked, _ := full.IsBlocked(content, "Robot Vacuum")
	assert.True(t, blocked, "default indicators are broad")

	narrow := full.WithIndicators([]string{"press & hold", "access denied"})
	blocked, _ = narrow.IsBlocked(content, "Robot Vacuum")
	assert.False(t, blocked, "narrowed indicators must skip incidental mentions")
}

func TestWithIndicatorsEmptyKeepsDefaults(t *testing.T) {
	sensor := NewSensor().WithIndicators(nil)
	blocked, _ := sensor.IsBlocked("captcha here", "")
	assert.True(t, blocked)
}
