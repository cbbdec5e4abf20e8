package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/internal/service"
	"invitely/rsvphub/pkg/response"
)

// RSVPHandler serves the guest-facing endpoints and the session-gated list.
type RSVPHandler struct {
	rsvpService service.RSVPService
}

func NewRSVPHandler(rsvpService service.RSVPService) *RSVPHandler {
	return &RSVPHandler{rsvpService: rsvpService}
}

// Field presence is checked by the service so every missing field reports
// the same way as a malformed one.
type CreateRSVPRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PlusOne   bool   `json:"plusOne"`
	EventSlug string `json:"eventSlug"`
}

type CancelRSVPRequest struct {
	RSVPID string `json:"rsvpId"`
	Token  string `json:"token"`
}

type UpdateRSVPRequest struct {
	RSVPID    string `json:"rsvpId"`
	Token     string `json:"token"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PlusOne   bool   `json:"plusOne"`
	Reconfirm bool   `json:"reconfirm"`
}

// GuestRSVP is what a token holder may see and edit.
type GuestRSVP struct {
	ID        uuid.UUID        `json:"id"`
	EventID   string           `json:"eventId"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	PlusOne   bool             `json:"plusOne"`
	Status    model.RSVPStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

func guestView(r *model.RSVP) GuestRSVP {
	return GuestRSVP{
		ID:        r.ID,
		EventID:   r.EventID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		PlusOne:   r.PlusOne,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

// Create handles POST /api/rsvp.
func (h *RSVPHandler) Create(c *gin.Context) {
	var req CreateRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.rsvpService.Create(c.Request.Context(), service.CreateRSVPInput{
		EventSlug: req.EventSlug,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		PlusOne:   req.PlusOne,
	})
	if err != nil {
		writeServiceError(c, err, "failed to save rsvp")
		return
	}

	response.Created(c, gin.H{
		"rsvp":               result.RSVP,
		"cancelToken":        result.RSVP.CancelToken,
		"notification":       result.Notification,
		"notificationReason": result.NotificationReason,
	})
}

// List handles GET /api/rsvp?eventId=. EventScope has already checked access.
func (h *RSVPHandler) List(c *gin.Context) {
	rsvps, err := h.rsvpService.ListByEvent(c.Request.Context(), c.Query("eventId"))
	if err != nil {
		writeServiceError(c, err, "failed to list rsvps")
		return
	}
	response.Success(c, gin.H{"rsvps": rsvps})
}

// Get handles GET /api/rsvp/get?rsvpId=&token=.
func (h *RSVPHandler) Get(c *gin.Context) {
	rsvp, err := h.rsvpService.GetForGuest(c.Request.Context(), c.Query("rsvpId"), c.Query("token"))
	if err != nil {
		writeServiceError(c, err, "failed to load rsvp")
		return
	}
	response.Success(c, gin.H{"rsvp": guestView(rsvp)})
}

// Cancel handles POST /api/rsvp/cancel.
func (h *RSVPHandler) Cancel(c *gin.Context) {
	var req CancelRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rsvp, err := h.rsvpService.CancelByGuest(c.Request.Context(), req.RSVPID, req.Token)
	if err != nil {
		writeServiceError(c, err, "failed to cancel rsvp")
		return
	}
	response.Success(c, gin.H{"rsvp": guestView(rsvp)})
}

// Update handles POST /api/rsvp/update. The returned token replaces the old
// one when the email changed.
func (h *RSVPHandler) Update(c *gin.Context) {
	var req UpdateRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rsvp, err := h.rsvpService.UpdateByGuest(c.Request.Context(), service.GuestUpdateInput{
		RSVPID:    req.RSVPID,
		Token:     req.Token,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		PlusOne:   req.PlusOne,
		Reconfirm: req.Reconfirm,
	})
	if err != nil {
		writeServiceError(c, err, "failed to update rsvp")
		return
	}
	response.Success(c, gin.H{"rsvp": guestView(rsvp), "token": rsvp.CancelToken})
}
