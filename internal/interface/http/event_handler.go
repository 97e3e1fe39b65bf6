package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rumbleroad/pokerrun-api/internal/application"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
	"github.com/rumbleroad/pokerrun-api/pkg/response"
	"github.com/rumbleroad/pokerrun-api/pkg/validation"
)

type EventHandler struct {
	Svc    *application.EventService
	Logger *logrus.Logger
}

func NewEventHandler(svc *application.EventService, logger *logrus.Logger) *EventHandler {
	return &EventHandler{Svc: svc, Logger: logger}
}

type locationRequest struct {
	Name        string              `json:"name" binding:"required"`
	Address     string              `json:"address" binding:"required"`
	Coordinates *entity.Coordinates `json:"coordinates"`
}

func (r locationRequest) toEntity() entity.Location {
	loc := entity.Location{Name: r.Name, Address: r.Address}
	if r.Coordinates != nil {
		loc.Coordinates = *r.Coordinates
	}
	return loc
}

type stopRequest struct {
	Number      int                 `json:"number" binding:"required"`
	Name        string              `json:"name" binding:"required"`
	Address     string              `json:"address" binding:"required"`
	Coordinates *entity.Coordinates `json:"coordinates"`
	Description string              `json:"description"`
	IsRequired  *bool               `json:"is_required"`
}

type prizeRequest struct {
	Place       int     `json:"place" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Value       float64 `json:"value"`
	Sponsor     string  `json:"sponsor"`
}

type createEventRequest struct {
	Title           string          `json:"title" binding:"required"`
	Description     string          `json:"description" binding:"required"`
	Date            time.Time       `json:"date" binding:"required"`
	StartLocation   locationRequest `json:"start_location" binding:"required"`
	EndLocation     locationRequest `json:"end_location" binding:"required"`
	Stops           []stopRequest   `json:"stops" binding:"omitempty,dive"`
	RegistrationFee float64         `json:"registration_fee" binding:"gte=0"`
	MaxParticipants int             `json:"max_participants" binding:"required,gt=0"`
	Prizes          []prizeRequest  `json:"prizes" binding:"omitempty,dive"`
	Rules           string          `json:"rules"`
	Requirements    []string        `json:"requirements"`
	Images          []string        `json:"images" binding:"omitempty,dive,url"`
}

func toStops(reqs []stopRequest) []entity.Stop {
	stops := make([]entity.Stop, 0, len(reqs))
	for _, r := range reqs {
		s := entity.Stop{
			Number:      r.Number,
			Name:        r.Name,
			Address:     r.Address,
			Description: r.Description,
			IsRequired:  true,
		}
		if r.Coordinates != nil {
			s.Coordinates = *r.Coordinates
		}
		if r.IsRequired != nil {
			s.IsRequired = *r.IsRequired
		}
		stops = append(stops, s)
	}
	return stops
}

func toPrizes(reqs []prizeRequest) []entity.Prize {
	prizes := make([]entity.Prize, 0, len(reqs))
	for _, r := range reqs {
		prizes = append(prizes, entity.Prize{Place: r.Place, Description: r.Description, Value: r.Value, Sponsor: r.Sponsor})
	}
	return prizes
}

// eventJSON is the event document plus its derived attributes.
func eventJSON(ev *entity.Event) gin.H {
	return gin.H{
		"event":             ev,
		"participant_count": ev.ParticipantCount(),
		"spots_remaining":   ev.SpotsRemaining(),
		"registration_open": ev.IsRegistrationOpen(),
	}
}

func (h *EventHandler) Create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ev, err := h.Svc.Create(c.Request.Context(), c.GetString("userID"), application.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		StartLocation:   req.StartLocation.toEntity(),
		EndLocation:     req.EndLocation.toEntity(),
		Stops:           toStops(req.Stops),
		RegistrationFee: req.RegistrationFee,
		MaxParticipants: req.MaxParticipants,
		Prizes:          toPrizes(req.Prizes),
		Rules:           req.Rules,
		Requirements:    req.Requirements,
		Images:          req.Images,
	})
	if err != nil {
		h.Logger.WithError(err).Error("event creation failed")
		response.Error[any](c, http.StatusInternalServerError, "could not create event", nil)
		return
	}
	response.Success(c, http.StatusCreated, eventJSON(ev), "event created", nil)
}

func (h *EventHandler) List(c *gin.Context) {
	f := repository.EventFilter{Status: c.Query("status")}
	if f.Status != "" && !entity.ValidStatus(f.Status) {
		response.Error[any](c, http.StatusBadRequest, "unknown status", nil)
		return
	}
	if day := c.Query("date"); day != "" {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			response.Error[any](c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		f.Day = d
	}
	events, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.Logger.WithError(err).Error("event listing failed")
		response.Error[any](c, http.StatusInternalServerError, "could not list events", nil)
		return
	}
	response.Success(c, http.StatusOK, events, "events", gin.H{"count": len(events)})
}

func (h *EventHandler) Get(c *gin.Context) {
	ev, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, eventJSON(ev), "event", nil)
}

type updateEventRequest struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Date            *time.Time       `json:"date"`
	StartLocation   *locationRequest `json:"start_location"`
	EndLocation     *locationRequest `json:"end_location"`
	Stops           *[]stopRequest   `json:"stops" binding:"omitempty,dive"`
	RegistrationFee *float64         `json:"registration_fee" binding:"omitempty,gte=0"`
	MaxParticipants *int             `json:"max_participants" binding:"omitempty,gt=0"`
	Prizes          *[]prizeRequest  `json:"prizes" binding:"omitempty,dive"`
	Rules           *string          `json:"rules"`
	Requirements    *[]string        `json:"requirements"`
	Images          *[]string        `json:"images" binding:"omitempty,dive,url"`
}

func (h *EventHandler) Update(c *gin.Context) {
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	upd := repository.EventUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		RegistrationFee: req.RegistrationFee,
		MaxParticipants: req.MaxParticipants,
		Rules:           req.Rules,
		Requirements:    req.Requirements,
		Images:          req.Images,
	}
	if req.StartLocation != nil {
		loc := req.StartLocation.toEntity()
		upd.StartLocation = &loc
	}
	if req.EndLocation != nil {
		loc := req.EndLocation.toEntity()
		upd.EndLocation = &loc
	}
	if req.Stops != nil {
		stops := toStops(*req.Stops)
		upd.Stops = &stops
	}
	if req.Prizes != nil {
		prizes := toPrizes(*req.Prizes)
		upd.Prizes = &prizes
	}
	ev, err := h.Svc.Update(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"), upd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, eventJSON(ev), "event updated", nil)
}

func (h *EventHandler) Delete(c *gin.Context) {
	err := h.Svc.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "event deleted", nil)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,eventstatus"`
}

func (h *EventHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ev, err := h.Svc.UpdateStatus(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"), req.Status)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, eventJSON(ev), "status updated", nil)
}

func (h *EventHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	events, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("event search failed")
		response.Error[any](c, http.StatusInternalServerError, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, events, "search results", gin.H{"count": len(events)})
}
