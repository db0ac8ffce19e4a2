package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "venuepulse:v1"

func KeyTrending(window string, limit int) string {
	return fmt.Sprintf("%s:trending:%s:%d", ns, window, limit)
}

func KeyTrendingPrefix() string {
	return ns + ":trending:"
}

func KeyVenueOccupancy(venueID uuid.UUID) string {
	return fmt.Sprintf("%s:venue:%s:occupancy", ns, venueID)
}

func KeyVenueList() string {
	return ns + ":venues:active"
}

func KeyUpcomingEvents() string {
	return ns + ":events:upcoming"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelChanges() string {
	return ns + ":changes"
}
