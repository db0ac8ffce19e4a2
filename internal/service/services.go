package service

import (
	redisx "github.com/venuepulse/venuepulse/internal/redis"
	postgres "github.com/venuepulse/venuepulse/internal/repository/postgres"
	redis "github.com/venuepulse/venuepulse/internal/repository/redis"
	"github.com/venuepulse/venuepulse/internal/service/engagement"
	"github.com/venuepulse/venuepulse/internal/service/guard"
	"github.com/venuepulse/venuepulse/internal/service/occupancy"
	"github.com/venuepulse/venuepulse/internal/service/votes"
)

type Services struct {
	Occupancy  *occupancy.Service
	Votes      *votes.Service
	Engagement *engagement.Service
	Guard      *guard.Guard
}

type Config struct {
	Occupancy occupancy.Config
	Votes     votes.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	changes *redisx.ChangeStream,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	g := guard.New(store.Venues())

	return &Services{
		Occupancy:  occupancy.New(store, cache, changes, limiter, g, cfg.Occupancy),
		Votes:      votes.New(store, cache, changes, limiter, cfg.Votes),
		Engagement: engagement.New(store, cache),
		Guard:      g,
	}
}
