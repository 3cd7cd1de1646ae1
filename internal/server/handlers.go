package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hopalong/core/internal/api"
	"hopalong/core/internal/geo"
	"hopalong/core/internal/models"
	"hopalong/core/internal/storage"
)

// costPerKilometer prices a ride from its straight-line distance.
const costPerKilometer = 8.0

type loginRequest struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type routeRequest struct {
	Start     string `json:"start" binding:"required"`
	End       string `json:"end" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	RideID    string `json:"rideId"`
}

// handleLogin finds or creates the account for an email and hands back a
// session token. The devstack trusts the caller; there is no password.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "email is required"})
		return
	}

	account, err := s.store.AccountByEmail(req.Email)
	if err != nil {
		s.log.Error("login lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	if account == nil {
		account = &models.Account{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}
		if err := s.store.SaveAccount(account); err != nil {
			s.log.Error("account create failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
			return
		}
	}

	token, err := s.tokens.IssueSession(account.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"account": gin.H{
			"id":        account.ID,
			"email":     account.Email,
			"firstName": account.FirstName,
			"lastName":  account.LastName,
		},
	})
}

func (s *Server) handleAutocomplete(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "address is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "payload": matchPlaces(req.Address)})
}

// handleFindMatch scores every ride departing inside the match window
// against the requested route and returns the candidates best first.
func (s *Server) handleFindMatch(c *gin.Context) {
	_, route, ok := s.bindRoute(c)
	if !ok {
		return
	}

	rides, err := s.store.RidesStartingBetween(route.startAt.Add(-s.matchWindow), route.startAt.Add(s.matchWindow))
	if err != nil {
		s.log.Error("match query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	accountID := s.accountID(c)
	var matches []models.RideMatch
	for i := range rides {
		rec := &rides[i]
		if rec.OwnerID == accountID {
			continue
		}
		overlap, segments := geo.RouteOverlap(
			route.startLat, route.startLon, route.endLat, route.endLon,
			rec.StartLat, rec.StartLon, rec.EndLat, rec.EndLon,
		)
		if overlap == 0 {
			continue
		}
		matches = append(matches, models.RideMatch{
			Ride:                s.recordToRide(rec),
			TimeDifference:      math.Abs(rec.StartAt.Sub(route.startAt).Minutes()),
			OverlapPercentage:   overlap,
			OverlapSegmentCount: segments,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].OverlapPercentage != matches[j].OverlapPercentage {
			return matches[i].OverlapPercentage > matches[j].OverlapPercentage
		}
		return matches[i].TimeDifference < matches[j].TimeDifference
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "matches": matches})
}

func (s *Server) handleCreateRide(c *gin.Context) {
	if !s.claimIdempotency(c) {
		return
	}
	_, route, ok := s.bindRoute(c)
	if !ok {
		return
	}

	distance := geo.Haversine(route.startLat, route.startLon, route.endLat, route.endLon)
	rec := &models.RideRecord{
		OwnerID:        s.accountID(c),
		StartPlaceName: placeNameFor(route.startLat, route.startLon, coordLabel(route.startLat, route.startLon)),
		EndPlaceName:   placeNameFor(route.endLat, route.endLon, coordLabel(route.endLat, route.endLon)),
		StartLat:       route.startLat,
		StartLon:       route.startLon,
		EndLat:         route.endLat,
		EndLon:         route.endLon,
		Distance:       distance,
		StartAt:        route.startAt,
		TotalCost:      distance / 1000 * costPerKilometer,
	}
	if err := s.store.CreateRide(rec); err != nil {
		s.log.Error("ride create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ride": s.recordToRide(rec)})
}

func (s *Server) handleMergeRide(c *gin.Context) {
	if !s.claimIdempotency(c) {
		return
	}
	req, _, ok := s.bindRoute(c)
	if !ok {
		return
	}
	if req.RideID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "rideId is required"})
		return
	}

	if err := s.store.AppendMember(req.RideID, s.accountID(c)); err != nil {
		if errors.Is(err, storage.ErrRideNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "ride no longer exists"})
			return
		}
		s.log.Error("ride merge failed", "ride_id", req.RideID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	rec, err := s.store.RideByID(req.RideID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ride": s.recordToRide(rec)})
}

func (s *Server) handleRideByID(c *gin.Context) {
	rec, err := s.store.RideByID(c.Param("id"))
	if errors.Is(err, storage.ErrRideNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "ride not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	ride := s.recordToRide(rec)
	details := models.RideDetails{
		ID:           rec.ID,
		PrimaryRoute: ride.PrimaryRoute,
		Start:        rec.StartAt,
		Owner:        s.memberFor(rec.OwnerID),
		Members:      make([]models.Member, 0, len(rec.MemberIDs)),
	}
	for _, id := range rec.MemberIDs {
		details.Members = append(details.Members, s.memberFor(id))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ride": details})
}

func (s *Server) handlePreviousRides(c *gin.Context) {
	recs, err := s.store.RidesForAccount(s.accountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	rides := make([]models.Ride, 0, len(recs))
	for i := range recs {
		rides = append(rides, s.recordToRide(&recs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rides": rides})
}

// claimIdempotency enforces the per-attempt key on ride mutations. A
// replayed key means a duplicate retry; the caller gets a conflict.
func (s *Server) claimIdempotency(c *gin.Context) bool {
	key := c.GetHeader(api.IdempotencyKeyHeader)
	fresh, err := s.store.ClaimIdempotencyKey(key)
	if err != nil {
		s.log.Warn("idempotency check failed, allowing request", "error", err)
		return true
	}
	if !fresh {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "duplicate request"})
		return false
	}
	return true
}

type parsedRoute struct {
	startLat, startLon float64
	endLat, endLon     float64
	startAt            time.Time
}

func (s *Server) bindRoute(c *gin.Context) (routeRequest, parsedRoute, bool) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "start, end and startTime are required"})
		return req, parsedRoute{}, false
	}

	var route parsedRoute
	var err error
	if route.startLat, route.startLon, err = parseCoords(req.Start); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid start coordinates"})
		return req, route, false
	}
	if route.endLat, route.endLon, err = parseCoords(req.End); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid end coordinates"})
		return req, route, false
	}
	if route.startAt, err = time.Parse(time.RFC3339, req.StartTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid startTime"})
		return req, route, false
	}
	return req, route, true
}

func parseCoords(raw string) (lat, lon float64, err error) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want \"lat,lon\", got %q", raw)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, err
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func coordLabel(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}

func (s *Server) recordToRide(rec *models.RideRecord) models.Ride {
	owner := s.creatorFor(rec.OwnerID)
	return models.Ride{
		ID:             rec.ID,
		PrimaryRouteID: rec.ID,
		OwnerID:        rec.OwnerID,
		Start:          rec.StartAt,
		TotalCost:      rec.TotalCost,
		CreatedAt:      rec.CreatedAt,
		Owner:          owner,
		PrimaryRoute: models.PrimaryRoute{
			ID:             rec.ID,
			CreatorID:      rec.OwnerID,
			StartPlaceName: rec.StartPlaceName,
			EndPlaceName:   rec.EndPlaceName,
			StartLat:       rec.StartLat,
			StartLon:       rec.StartLon,
			EndLat:         rec.EndLat,
			EndLon:         rec.EndLon,
			Distance:       rec.Distance,
			Creator:        owner,
		},
	}
}

func (s *Server) creatorFor(accountID string) models.Creator {
	account, err := s.store.AccountByID(accountID)
	if err != nil || account == nil {
		return models.Creator{}
	}
	return models.Creator{FirstName: account.FirstName, LastName: account.LastName}
}

func (s *Server) memberFor(accountID string) models.Member {
	member := models.Member{ID: accountID}
	if account, err := s.store.AccountByID(accountID); err == nil && account != nil {
		member.FirstName = account.FirstName
		member.LastName = account.LastName
	}
	return member
}
