package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
	"plategate/internal/service"
)

type Handler struct {
	decisions *service.DecisionService
	registry  *service.RegistryService
	cameras   *service.CameraService
	auth      *service.AuthService
	apiToken  string
	log       zerolog.Logger
}

func NewHandler(
	decisions *service.DecisionService,
	registry *service.RegistryService,
	cameras *service.CameraService,
	auth *service.AuthService,
	apiToken string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		decisions: decisions,
		registry:  registry,
		cameras:   cameras,
		auth:      auth,
		apiToken:  apiToken,
		log:       log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")

	api.POST("/auth/login", h.login)

	// Detection ingress, authenticated by the pre-shared worker token.
	ingress := api.Group("")
	ingress.Use(APITokenAuth(h.apiToken))
	{
		ingress.POST("/detections", h.submitDetection)
	}

	// Admin API, authenticated by JWT.
	admin := api.Group("")
	admin.Use(JWTAuth(h.auth))
	{
		admin.GET("/authorized-plates", h.listPlates)
		admin.POST("/authorized-plates", h.createPlate)
		admin.GET("/authorized-plates/:id", h.getPlate)
		admin.PUT("/authorized-plates/:id", h.updatePlate)
		admin.DELETE("/authorized-plates/:id", h.deletePlate)
		admin.POST("/authorized-plates/:id/activate", h.activatePlate)
		admin.POST("/authorized-plates/:id/deactivate", h.deactivatePlate)

		admin.GET("/plate-records", h.listPlateRecords)
		admin.GET("/authorization-history", h.listHistory)

		admin.GET("/cameras", h.listCameras)
		admin.POST("/cameras", h.createCamera)
		admin.GET("/cameras/:id", h.getCamera)
		admin.PUT("/cameras/:id", h.updateCamera)
		admin.DELETE("/cameras/:id", h.deleteCamera)
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("invalid credentials"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type detectionRequest struct {
	EventID     string  `json:"event_id"`
	PlateNumber string  `json:"plate_number" binding:"required"`
	Confidence  float64 `json:"confidence"`
	ProcessedBy string  `json:"processed_by"`
	CameraID    *int64  `json:"camera_id"`
}

func (h *Handler) submitDetection(c *gin.Context) {
	var req detectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	event := plate.DetectionEvent{
		EventID:     req.EventID,
		PlateNumber: req.PlateNumber,
		Confidence:  req.Confidence,
		ProcessedBy: req.ProcessedBy,
		CameraID:    req.CameraID,
		Timestamp:   time.Now(),
	}

	result, err := h.decisions.Decide(c.Request.Context(), event)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"is_authorized": result.IsAuthorized,
		"action_taken":  result.ActionTaken,
	})
}

type createPlateRequest struct {
	PlateNumber string   `json:"plate_number" binding:"required"`
	Description string   `json:"description"`
	Sensitivity *float64 `json:"sensitivity"`
}

func (h *Handler) createPlate(c *gin.Context) {
	var req createPlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	rec, err := h.registry.Create(c.Request.Context(), service.CreatePlateInput{
		PlateNumber: req.PlateNumber,
		Description: req.Description,
		Sensitivity: req.Sensitivity,
	}, currentUsername(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(rec))
}

type updatePlateRequest struct {
	PlateNumber *string  `json:"plate_number"`
	Description *string  `json:"description"`
	Sensitivity *float64 `json:"sensitivity"`
	IsActive    *bool    `json:"is_active"`
}

func (h *Handler) updatePlate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	var req updatePlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	rec, err := h.registry.Update(c.Request.Context(), id, service.UpdatePlateInput{
		PlateNumber: req.PlateNumber,
		Description: req.Description,
		Sensitivity: req.Sensitivity,
		IsActive:    req.IsActive,
	}, currentUsername(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) getPlate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	rec, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) listPlates(c *gin.Context) {
	plates, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(plates))
}

func (h *Handler) deletePlate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	if err := h.registry.Delete(c.Request.Context(), id, currentUsername(c)); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) activatePlate(c *gin.Context) {
	h.setPlateActive(c, true)
}

func (h *Handler) deactivatePlate(c *gin.Context) {
	h.setPlateActive(c, false)
}

func (h *Handler) setPlateActive(c *gin.Context, active bool) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	rec, err := h.registry.SetActive(c.Request.Context(), id, active, currentUsername(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) listPlateRecords(c *gin.Context) {
	limit, offset := parsePaging(c)
	records, err := h.decisions.ListPlateRecords(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) listHistory(c *gin.Context) {
	limit, offset := parsePaging(c)
	entries, err := h.decisions.ListHistory(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(entries))
}

type cameraRequest struct {
	Name       string                 `json:"name" binding:"required"`
	IPAddress  string                 `json:"ip_address" binding:"required"`
	Port       int                    `json:"port"`
	Username   string                 `json:"username"`
	Password   string                 `json:"password"`
	StreamType string                 `json:"stream_type"`
	RTSPPath   string                 `json:"rtsp_path"`
	IsActive   *bool                  `json:"is_active"`
	Settings   map[string]interface{} `json:"settings"`
}

func (h *Handler) createCamera(c *gin.Context) {
	var req cameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	cam, err := h.cameras.Create(c.Request.Context(), plate.Camera{
		Name:       req.Name,
		IPAddress:  req.IPAddress,
		Port:       req.Port,
		Username:   req.Username,
		Password:   req.Password,
		StreamType: req.StreamType,
		RTSPPath:   req.RTSPPath,
		Settings:   req.Settings,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(cam))
}

func (h *Handler) getCamera(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	cam, err := h.cameras.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(cam))
}

func (h *Handler) listCameras(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	cams, err := h.cameras.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(cams))
}

func (h *Handler) updateCamera(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	var req cameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	cam := plate.Camera{
		ID:         id,
		Name:       req.Name,
		IPAddress:  req.IPAddress,
		Port:       req.Port,
		Username:   req.Username,
		Password:   req.Password,
		StreamType: req.StreamType,
		RTSPPath:   req.RTSPPath,
		IsActive:   true,
		Settings:   req.Settings,
	}
	if req.IsActive != nil {
		cam.IsActive = *req.IsActive
	}
	updated, err := h.cameras.Update(c.Request.Context(), cam)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(updated))
}

func (h *Handler) deleteCamera(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	if err := h.cameras.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func parsePaging(c *gin.Context) (limit, offset int) {
	limit = 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
