package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/venuepulse/venuepulse/internal/notifier"
	redisrepo "github.com/venuepulse/venuepulse/internal/repository/redis"
	"github.com/venuepulse/venuepulse/internal/service"
	"github.com/venuepulse/venuepulse/internal/service/engagement"
	"github.com/venuepulse/venuepulse/internal/service/occupancy"
	"github.com/venuepulse/venuepulse/internal/service/votes"
)

type RouterDeps struct {
	Services    *service.Services
	Idempotency *redisrepo.IdempotencyStore
	Hub         *notifier.Hub
	Auth        gin.HandlerFunc // required-auth middleware
	OptAuth     gin.HandlerFunc // optional-auth middleware
	Logger      *slog.Logger
}

func NewRouter(deps RouterDeps, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(deps.Logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	svcs := deps.Services

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/venues", handleListVenues(svcs))
	r.GET("/venues/occupancy", handleGetOccupancy(svcs))
	r.GET("/trending", handleGetTrending(svcs))
	r.GET("/events", handleListEvents(svcs))

	r.GET("/ws", deps.OptAuth, handleSubscribe(deps.Hub, deps.Logger))

	// Authenticated API
	authed := r.Group("/", deps.Auth)
	{
		authed.POST("/venues/:id/occupancy/increment", handleIncrementOccupancy(svcs, deps.Idempotency))
		authed.PUT("/venues/:id/occupancy", handleSetOccupancy(svcs))
		authed.POST("/venues/:id/votes", handleCastVote(svcs))
		authed.POST("/venues/:id/favorite", handleToggleFavorite(svcs))
		authed.POST("/events/:id/interest", handleSetInterest(svcs))
		authed.POST("/bookings", handleCreateBooking(svcs))
		authed.GET("/me/votes", handleMyVotes(svcs))
		authed.GET("/me/interests", handleMyInterests(svcs))
		authed.GET("/me/favorites", handleMyFavorites(svcs))
		authed.POST("/me/profile", handleEnsureProfile(svcs))
		authed.GET("/me/profile", handleGetProfile(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List active venues
// @Success  200  {array}  VenueResponse
// @Router   /venues [get]
func handleListVenues(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		vs, err := svcs.Engagement.Venues(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]VenueResponse, 0, len(vs))
		for _, v := range vs {
			out = append(out, VenueResponse{
				ID:       v.ID,
				Name:     v.Name,
				Address:  v.Address,
				GeoLat:   v.GeoLat,
				GeoLng:   v.GeoLng,
				CoverURL: v.CoverURL,
			})
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Batch occupancy read
// @Param    ids  query  string  true  "comma-separated venue ids"
// @Success  200  {array}  OccupancyResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /venues/occupancy [get]
func handleGetOccupancy(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := ParseVenueIDs(c.Query("ids"))
		if err != nil || len(ids) == 0 {
			badRequest(c, "invalid ids")
			return
		}

		recs, err := svcs.Occupancy.Get(c.Request.Context(), ids)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]OccupancyResponse, 0, len(recs))
		for i := range recs {
			out = append(out, toOccupancyResponse(&recs[i]))
		}
		// ETag + Cache-Control 10s: occupancy is the most volatile read
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=10", true)
	}
}

// @Summary  Increment venue occupancy (idempotent via Idempotency-Key)
// @Param    id   path  string  true  "Venue ID (uuid)"
// @Param    req  body  IncrementOccupancyRequest  true  "payload"
// @Success  200  {object}  OccupancyResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  401  {object}  ErrorResponse
// @Failure  403  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "venue at capacity / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /venues/{id}/occupancy/increment [post]
func handleIncrementOccupancy(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req IncrementOccupancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemOccupancy(venueID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rec, err := svcs.Occupancy.Increment(
			c.Request.Context(),
			actorFrom(c),
			venueID,
			*req.Delta,
			req.Reason,
			statusTagPtr(req.StatusTag),
			"ip:"+c.ClientIP(),
		)
		if err != nil {
			// Release only when the mutation was definitively refused
			// before commit. An ambiguous failure may have committed, so
			// the lock stays until it expires and a blind retry replays
			// instead of double-applying.
			if idemStorageKey != "" && idem != nil && isDefinitiveReject(err) {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toOccupancyResponse(rec)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Set absolute venue occupancy
// @Param    id   path  string  true  "Venue ID (uuid)"
// @Param    req  body  SetOccupancyRequest  true  "payload"
// @Success  200  {object}  OccupancyResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  403  {object}  ErrorResponse
// @Router   /venues/{id}/occupancy [put]
func handleSetOccupancy(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetOccupancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rec, err := svcs.Occupancy.SetAbsolute(
			c.Request.Context(),
			actorFrom(c),
			venueID,
			*req.TargetCount,
			req.Reason,
			statusTagPtr(req.StatusTag),
			"ip:"+c.ClientIP(),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toOccupancyResponse(rec))
	}
}

// @Summary  Cast or replace a crowd vote
// @Param    id   path  string  true  "Venue ID (uuid)"
// @Param    req  body  CastVoteRequest  true  "payload"
// @Success  200  {object}  VoteResponse
// @Failure  401  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /venues/{id}/votes [post]
func handleCastVote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req CastVoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		v, err := svcs.Votes.Cast(
			c.Request.Context(),
			actorFrom(c),
			venueID,
			voteStatus(req.Status),
			"ip:"+c.ClientIP(),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toVoteResponse(v))
	}
}

// @Summary  Trending venues by recent yes-votes
// @Param    window  query  string  false  "trailing window, e.g. 24h"
// @Param    limit   query  int     false  "page size"
// @Success  200  {array}  TrendingVenueResponse
// @Router   /trending [get]
func handleGetTrending(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var window time.Duration
		if s := c.Query("window"); s != "" {
			var err error
			window, err = time.ParseDuration(s)
			if err != nil {
				badRequest(c, "invalid window")
				return
			}
		}
		limit := parseIntDefault(c.Query("limit"), 20)

		tvs, err := svcs.Votes.TrendingSince(c.Request.Context(), window, limit)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]TrendingVenueResponse, 0, len(tvs))
		for _, tv := range tvs {
			out = append(out, TrendingVenueResponse{
				VenueID:  tv.VenueID,
				Name:     tv.Name,
				CoverURL: tv.CoverURL,
				YesCount: tv.YesCount,
			})
		}
		// ETag + Cache-Control 15s, matching the aggregator's refresh cadence
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Caller's own votes
// @Success  200  {array}  VoteResponse
// @Router   /me/votes [get]
func handleMyVotes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		vs, err := svcs.Votes.ListForUser(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]VoteResponse, 0, len(vs))
		for i := range vs {
			out = append(out, toVoteResponse(&vs[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Upcoming events
// @Param    limit  query  int  false  "page size"
// @Success  200  {array}  EventResponse
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 50)

		evs, err := svcs.Engagement.UpcomingEvents(c.Request.Context(), limit)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]EventResponse, 0, len(evs))
		for _, e := range evs {
			out = append(out, EventResponse{
				ID:      e.ID,
				VenueID: e.VenueID,
				Title:   e.Title,
				StartAt: e.StartAt,
				EndAt:   e.EndAt,
			})
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=30", true)
	}
}

// @Summary  Set RSVP state for an event
// @Param    id   path  string  true  "Event ID (uuid)"
// @Param    req  body  SetInterestRequest  true  "payload"
// @Success  200  {object}  InterestResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/interest [post]
func handleSetInterest(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetInterestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ei, err := svcs.Engagement.SetInterest(
			c.Request.Context(),
			actorFrom(c),
			eventID,
			interestStatus(req.Status),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, InterestResponse{
			EventID:   ei.EventID,
			Status:    string(ei.Status),
			UpdatedAt: ei.UpdatedAt,
		})
	}
}

// @Summary  Create a booking
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Success  201  {object}  BookingResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /bookings [post]
func handleCreateBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		var venueID, eventID *uuid.UUID
		if req.VenueID != "" {
			id, err := uuid.Parse(req.VenueID)
			if err != nil {
				badRequest(c, "invalid venue_id")
				return
			}
			venueID = &id
		}
		if req.EventID != "" {
			id, err := uuid.Parse(req.EventID)
			if err != nil {
				badRequest(c, "invalid event_id")
				return
			}
			eventID = &id
		}

		b, err := svcs.Engagement.CreateBooking(
			c.Request.Context(),
			actorFrom(c),
			venueID,
			eventID,
			req.PartySize,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, BookingResponse{
			BookingID: b.ID,
			VenueID:   b.VenueID,
			EventID:   b.EventID,
			PartySize: b.PartySize,
			CreatedAt: b.CreatedAt,
		})
	}
}

// @Summary  Toggle a favorite venue
// @Param    id  path  string  true  "Venue ID (uuid)"
// @Success  200  {object}  FavoriteToggleResponse
// @Router   /venues/{id}/favorite [post]
func handleToggleFavorite(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		favorited, err := svcs.Engagement.ToggleFavorite(c.Request.Context(), actorFrom(c), venueID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, FavoriteToggleResponse{VenueID: venueID, Favorited: favorited})
	}
}

// @Summary  Caller's event RSVPs
// @Success  200  {array}  InterestEntryResponse
// @Router   /me/interests [get]
func handleMyInterests(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ies, err := svcs.Engagement.Interests(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]InterestEntryResponse, 0, len(ies))
		for _, ie := range ies {
			out = append(out, InterestEntryResponse{
				EventID:   ie.EventID,
				Title:     ie.Title,
				StartAt:   ie.StartAt,
				Status:    string(ie.Status),
				UpdatedAt: ie.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Caller's saved venues
// @Success  200  {array}  FavoriteResponse
// @Router   /me/favorites [get]
func handleMyFavorites(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		fs, err := svcs.Engagement.Favorites(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]FavoriteResponse, 0, len(fs))
		for _, f := range fs {
			out = append(out, FavoriteResponse{
				VenueID:  f.VenueID,
				Name:     f.VenueName,
				CoverURL: f.CoverURL,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Ensure the caller's profile row exists (idempotent)
// @Param    req  body  EnsureProfileRequest  true  "payload"
// @Success  200  {object}  ProfileResponse
// @Router   /me/profile [post]
func handleEnsureProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EnsureProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		p, err := svcs.Engagement.EnsureProfile(
			c.Request.Context(),
			actorFrom(c),
			req.Email,
			req.DisplayName,
			req.University,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toProfileResponse(p))
	}
}

// @Summary  Caller's profile
// @Success  200  {object}  ProfileResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /me/profile [get]
func handleGetProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svcs.Engagement.Profile(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toProfileResponse(p))
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// isDefinitiveReject reports whether the occupancy service refused the
// mutation without any chance of a commit having happened.
func isDefinitiveReject(err error) bool {
	return errors.Is(err, occupancy.ErrUnauthenticated) ||
		errors.Is(err, occupancy.ErrNotAuthorized) ||
		errors.Is(err, occupancy.ErrInvalidArgument) ||
		errors.Is(err, occupancy.ErrAtCapacity) ||
		errors.Is(err, occupancy.ErrVenueNotFound) ||
		errors.Is(err, occupancy.ErrRateLimited)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// occupancy service
	case errors.Is(err, occupancy.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	case errors.Is(err, occupancy.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not authorized"})
		return
	case errors.Is(err, occupancy.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid argument"})
		return
	case errors.Is(err, occupancy.ErrAtCapacity):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "venue at capacity"})
		return
	case errors.Is(err, occupancy.ErrVenueNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "venue not found"})
		return
	case errors.Is(err, occupancy.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	// votes service
	case errors.Is(err, votes.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	case errors.Is(err, votes.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid argument"})
		return
	case errors.Is(err, votes.ErrVenueNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "venue not found"})
		return
	case errors.Is(err, votes.ErrProfileRequired):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "create a profile first"})
		return
	case errors.Is(err, votes.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	// engagement service
	case errors.Is(err, engagement.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	case errors.Is(err, engagement.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid argument"})
		return
	case errors.Is(err, engagement.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	case errors.Is(err, engagement.ErrProfileRequired):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "create a profile first"})
		return
	}

	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable"})
}
