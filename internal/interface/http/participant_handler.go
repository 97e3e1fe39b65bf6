package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rumbleroad/pokerrun-api/internal/application"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/pkg/response"
	"github.com/rumbleroad/pokerrun-api/pkg/validation"
)

type ParticipantHandler struct {
	Svc    *application.ParticipationService
	Logger *logrus.Logger
}

func NewParticipantHandler(svc *application.ParticipationService, logger *logrus.Logger) *ParticipantHandler {
	return &ParticipantHandler{Svc: svc, Logger: logger}
}

type registerParticipantRequest struct {
	BikeInfo struct {
		Make  string `json:"make" binding:"required"`
		Model string `json:"model" binding:"required"`
		Year  int    `json:"year" binding:"required"`
		Color string `json:"color"`
	} `json:"bike_info" binding:"required"`
	EmergencyContact struct {
		Name         string `json:"name" binding:"required"`
		Phone        string `json:"phone" binding:"required"`
		Relationship string `json:"relationship"`
	} `json:"emergency_contact" binding:"required"`
	SpecialRequests string `json:"special_requests"`
}

// Register signs the caller up for the event.
func (h *ParticipantHandler) Register(c *gin.Context) {
	var req registerParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.Register(c.Request.Context(), c.Param("id"), c.GetString("userID"), registration.RegisterInput{
		BikeInfo: entity.ParticipantBike{
			Make:  req.BikeInfo.Make,
			Model: req.BikeInfo.Model,
			Year:  req.BikeInfo.Year,
			Color: req.BikeInfo.Color,
		},
		EmergencyContact: entity.ParticipantContact{
			Name:         req.EmergencyContact.Name,
			Phone:        req.EmergencyContact.Phone,
			Relationship: req.EmergencyContact.Relationship,
		},
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p, "registered for event", nil)
}

// Unregister cancels the caller's registration.
func (h *ParticipantHandler) Unregister(c *gin.Context) {
	if err := h.Svc.Unregister(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"unregistered": true}, "registration cancelled", nil)
}

type patchParticipantRequest struct {
	BikeInfo *struct {
		Make  *string `json:"make"`
		Model *string `json:"model"`
		Year  *int    `json:"year"`
		Color *string `json:"color"`
	} `json:"bike_info"`
	EmergencyContact *struct {
		Name         *string `json:"name"`
		Phone        *string `json:"phone"`
		Relationship *string `json:"relationship"`
	} `json:"emergency_contact"`
	SpecialRequests *string `json:"special_requests"`
}

// UpdateRegistration patches the caller's own registration. Absent fields
// stay untouched; an explicit empty string clears special requests.
func (h *ParticipantHandler) UpdateRegistration(c *gin.Context) {
	var req patchParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	patch := registration.ParticipantPatch{SpecialRequests: req.SpecialRequests}
	if req.BikeInfo != nil {
		patch.BikeInfo = &registration.BikePatch{
			Make:  req.BikeInfo.Make,
			Model: req.BikeInfo.Model,
			Year:  req.BikeInfo.Year,
			Color: req.BikeInfo.Color,
		}
	}
	if req.EmergencyContact != nil {
		patch.EmergencyContact = &registration.ContactPatch{
			Name:         req.EmergencyContact.Name,
			Phone:        req.EmergencyContact.Phone,
			Relationship: req.EmergencyContact.Relationship,
		}
	}
	p, err := h.Svc.UpdateRegistration(c.Request.Context(), c.Param("id"), c.GetString("userID"), patch)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "registration updated", nil)
}

// Summary returns the organizer's roster for the event.
func (h *ParticipantHandler) Summary(c *gin.Context) {
	s, err := h.Svc.Summary(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, s, "participant summary", nil)
}

// MyEvents lists every event the caller is registered for, with the
// caller's own registration pulled out of the roster.
func (h *ParticipantHandler) MyEvents(c *gin.Context) {
	uid := c.GetString("userID")
	events, err := h.Svc.MyEvents(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).Error("my events listing failed")
		response.Error[any](c, http.StatusInternalServerError, "could not list registrations", nil)
		return
	}
	items := make([]gin.H, 0, len(events))
	for i := range events {
		items = append(items, gin.H{
			"event":           events[i],
			"my_registration": events[i].FindParticipant(uid),
		})
	}
	response.Success(c, http.StatusOK, items, "my events", gin.H{"count": len(items)})
}
