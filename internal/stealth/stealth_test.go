package stealth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crosslister/product-scraper/internal/browser/browsertest"
)

// failingSession rejects every nth Evaluate call.
type failingSession struct {
	*browsertest.FakeSession
	failEvery int
	calls     int
}

func (s *failingSession) Evaluate(js string) (any, error) {
	s.calls++
	if s.failEvery > 0 && s.calls%s.failEvery == 0 {
		return nil, errors.New("evaluation rejected")
	}
	return s.FakeSession.Evaluate(js)
}

func TestApplyShimsAllSucceed(t *testing.T) {
	s := browsertest.New("<html><body></body></html>")
	c := NewController(time.Millisecond, 2*time.Millisecond)

	applied := c.ApplyShims(s)
	assert.Equal(t, 6, applied)
	assert.Len(t, s.Evaluated, 6)
}

func TestApplyShimsSwallowsFailures(t *testing.T) {
	s := &failingSession{
		FakeSession: browsertest.New("<html></html>"),
		failEvery:   2,
	}
	c := NewController(time.Millisecond, 2*time.Millisecond)

	applied := c.ApplyShims(s)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 6, s.calls, "every shim must be attempted despite failures")
}

func TestSimulateHumanBehavior(t *testing.T) {
	s := browsertest.New("<html><body></body></html>")
	c := NewController(time.Millisecond, 2*time.Millisecond)

	c.SimulateHumanBehavior(s)
	assert.Equal(t, 3, s.MouseMoves)
	assert.Len(t, s.Evaluated, 3)
}
