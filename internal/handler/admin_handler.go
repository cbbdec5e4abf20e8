package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invitely/rsvphub/internal/handler/middleware"
	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/internal/service"
	"invitely/rsvphub/pkg/response"
)

// AdminHandler serves /api/admin. Routes under /events/:slug run behind
// EventScope, so handlers only read the slug.
type AdminHandler struct {
	eventService service.EventService
	rsvpService  service.RSVPService
}

func NewAdminHandler(eventService service.EventService, rsvpService service.RSVPService) *AdminHandler {
	return &AdminHandler{
		eventService: eventService,
		rsvpService:  rsvpService,
	}
}

type UpdateEventSettingsRequest struct {
	Title                    *string `json:"title"`
	HostName                 *string `json:"hostName"`
	Date                     *string `json:"date"`
	Time                     *string `json:"time"`
	Location                 *string `json:"location"`
	Address                  *string `json:"address"`
	PrimaryColor             *string `json:"primaryColor"`
	AccentColor              *string `json:"accentColor"`
	IsActive                 *bool   `json:"isActive"`
	EmailConfirmationEnabled *bool   `json:"emailConfirmationEnabled"`
}

type AdminUpdateRSVPRequest struct {
	Name    *string           `json:"name"`
	Email   *string           `json:"email"`
	Phone   *string           `json:"phone"`
	PlusOne *bool             `json:"plusOne"`
	Status  *model.RSVPStatus `json:"status"`
}

type BulkSendRequest struct {
	RSVPIDs []uuid.UUID `json:"rsvpIds" binding:"required,min=1,max=500"`
}

type ImportRequest struct {
	Guests []service.ImportGuest `json:"guests" binding:"required,min=1,max=2000"`
}

// ListEvents returns the events visible to the session.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	events, err := h.eventService.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "failed to list events")
		return
	}
	visible := make([]model.Event, 0, len(events))
	for _, e := range events {
		if claims.CanAccessEvent(e.Slug) {
			visible = append(visible, e)
		}
	}
	response.Success(c, gin.H{"events": visible})
}

func (h *AdminHandler) GetEvent(c *gin.Context) {
	event, err := h.eventService.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeServiceError(c, err, "failed to load event")
		return
	}
	response.Success(c, gin.H{
		"event":       event,
		"dateVerdict": h.eventService.DateVerdict(event).String(),
	})
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req UpdateEventSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	event, err := h.eventService.UpdateSettings(c.Request.Context(), c.Param("slug"), model.EventSettings{
		Title:                    req.Title,
		HostName:                 req.HostName,
		Date:                     req.Date,
		Time:                     req.Time,
		Location:                 req.Location,
		Address:                  req.Address,
		PrimaryColor:             req.PrimaryColor,
		AccentColor:              req.AccentColor,
		IsActive:                 req.IsActive,
		EmailConfirmationEnabled: req.EmailConfirmationEnabled,
	})
	if err != nil {
		writeServiceError(c, err, "failed to save settings")
		return
	}
	response.Success(c, gin.H{"event": event})
}

func (h *AdminHandler) ListRSVPs(c *gin.Context) {
	rsvps, err := h.rsvpService.ListByEvent(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeServiceError(c, err, "failed to list rsvps")
		return
	}
	response.Success(c, gin.H{"rsvps": rsvps})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.rsvpService.Stats(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeServiceError(c, err, "failed to compute stats")
		return
	}
	response.Success(c, stats)
}

func (h *AdminHandler) UpdateRSVP(c *gin.Context) {
	id, ok := parseRSVPID(c)
	if !ok {
		return
	}

	var req AdminUpdateRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	rsvp, err := h.rsvpService.AdminUpdate(c.Request.Context(), c.Param("slug"), id, service.AdminUpdateInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		PlusOne: req.PlusOne,
		Status:  req.Status,
	})
	if err != nil {
		writeServiceError(c, err, "failed to update rsvp")
		return
	}
	response.Success(c, gin.H{"rsvp": rsvp})
}

func (h *AdminHandler) SendEmail(c *gin.Context) {
	id, ok := parseRSVPID(c)
	if !ok {
		return
	}

	result, err := h.rsvpService.SendEmail(c.Request.Context(), c.Param("slug"), id)
	if err != nil {
		writeServiceError(c, err, "failed to send email")
		return
	}
	response.Success(c, result)
}

func (h *AdminHandler) SendBulk(c *gin.Context) {
	var req BulkSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.rsvpService.SendBulk(c.Request.Context(), c.Param("slug"), req.RSVPIDs)
	if err != nil {
		writeServiceError(c, err, "failed to send emails")
		return
	}
	response.Success(c, result)
}

func (h *AdminHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.rsvpService.Import(c.Request.Context(), c.Param("slug"), req.Guests)
	if err != nil && result != nil {
		// Rows before the failure are already stored.
		_ = c.Error(err)
		response.ErrorWithData(c, http.StatusInternalServerError, 500, "import stopped partway", result)
		return
	}
	if err != nil {
		writeServiceError(c, err, "failed to import guests")
		return
	}
	response.Success(c, result)
}

func parseRSVPID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, service.ErrRSVPNotFound.Error())
		return uuid.Nil, false
	}
	return id, true
}
