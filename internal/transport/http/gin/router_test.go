package httpgin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/venuepulse/venuepulse/internal/notifier"
	"github.com/venuepulse/venuepulse/internal/service"
	"github.com/venuepulse/venuepulse/internal/service/occupancy"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	passthrough := func(c *gin.Context) { c.Next() }

	return NewRouter(RouterDeps{
		Services: &service.Services{},
		Hub:      notifier.NewHub(),
		Auth:     passthrough,
		OptAuth:  passthrough,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRouterRegistersAPISurface(t *testing.T) {
	r := newTestRouter(t)

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /healthz",
		"GET /venues",
		"GET /venues/occupancy",
		"GET /trending",
		"GET /events",
		"GET /ws",
		"POST /venues/:id/occupancy/increment",
		"PUT /venues/:id/occupancy",
		"POST /venues/:id/votes",
		"POST /venues/:id/favorite",
		"POST /events/:id/interest",
		"POST /bookings",
		"GET /me/votes",
		"GET /me/interests",
		"GET /me/favorites",
		"POST /me/profile",
		"GET /me/profile",
	} {
		assert.True(t, registered[want], "route %s is not registered", want)
	}
}

func TestIsDefinitiveReject(t *testing.T) {
	for _, err := range []error{
		occupancy.ErrUnauthenticated,
		occupancy.ErrNotAuthorized,
		occupancy.ErrInvalidArgument,
		occupancy.ErrAtCapacity,
		occupancy.ErrVenueNotFound,
		occupancy.ErrRateLimited,
	} {
		assert.True(t, isDefinitiveReject(err), "%v refuses before commit", err)
	}

	// Anything else may have committed; the idempotency lock must stay.
	assert.False(t, isDefinitiveReject(errors.New("connection reset")))
	assert.False(t, isDefinitiveReject(context.DeadlineExceeded))
}
