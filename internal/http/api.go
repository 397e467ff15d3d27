package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"timeclock/internal/backup"
	"timeclock/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	clock     service.ClockService
	summaries service.SummaryService
	backups   backup.Manager
	tokens    *TokenIssuer
	logger    *logrus.Logger
}

// NewHandler builds the API. backups may be nil when snapshots are not configured.
func NewHandler(users service.UserService, clock service.ClockService, summaries service.SummaryService, backups backup.Manager, tokens *TokenIssuer, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:     users,
		clock:     clock,
		summaries: summaries,
		backups:   backups,
		tokens:    tokens,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/login", h.login)
		api.POST("/users", h.createUser)
	}

	authed := api.Group("")
	authed.Use(authMiddleware(h.tokens))
	{
		authed.GET("/users", h.listUsers)
		authed.GET("/me", h.me)
		authed.PUT("/me/password", h.changePassword)
		authed.PUT("/me/hourly-rate", h.changeHourlyRate)
		authed.GET("/me/records", h.listRecords)
		authed.GET("/clock", h.clockState)
		authed.POST("/clock/in", h.clockIn)
		authed.POST("/clock/out", h.clockOut)
		authed.POST("/clock/toggle", h.clockToggle)
		authed.GET("/summary/weekly", h.weeklySummary)
		authed.GET("/summary/weekly-average", h.weeklyAverage)
		if h.backups != nil {
			authed.GET("/backups", h.listBackups)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

type hourlyRateRequest struct {
	HourlyRate *float64 `json:"hourly_rate" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.SignIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:              token,
		ExpiresAt:          expiresAt.UTC().Format(time.RFC3339),
		User:               userToResponse(*user),
		MustChangePassword: !user.HasChangedPassword,
	})
}

func (h *Handler) createUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.GetUsers(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateUserPassword(c.Request.Context(), currentUserID(c), req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) changeHourlyRate(c *gin.Context) {
	var req hourlyRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateHourlyRate(c.Request.Context(), currentUserID(c), *req.HourlyRate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) listRecords(c *gin.Context) {
	records, err := h.clock.TimeRecords(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recordsToResponse(records))
}

func (h *Handler) clockState(c *gin.Context) {
	state, err := h.clock.CurrentState(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stateToResponse(state))
}

func (h *Handler) clockIn(c *gin.Context) {
	record, err := h.clock.ClockIn(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, recordToResponse(*record))
}

func (h *Handler) clockOut(c *gin.Context) {
	record, err := h.clock.ClockOut(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recordToResponse(*record))
}

func (h *Handler) clockToggle(c *gin.Context) {
	record, state, err := h.clock.Toggle(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ToggleResponse{
		Record: recordToResponse(*record),
		State:  stateToResponse(state),
	})
}

func (h *Handler) weeklySummary(c *gin.Context) {
	summary, err := h.summaries.WeeklySummary(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summaryToResponse(*summary))
}

func (h *Handler) weeklyAverage(c *gin.Context) {
	avg, err := h.summaries.WeeklyAverage(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, WeeklyAverageResponse{
		Weeks:        avg.Weeks,
		TotalHours:   avg.TotalHours,
		AverageHours: avg.AverageHours,
		AveragePay:   avg.AveragePay,
	})
}

func (h *Handler) listBackups(c *gin.Context) {
	objects, err := h.backups.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := make([]BackupResponse, len(objects))
	for i := range objects {
		resp[i] = BackupResponse{Key: objects[i].Key, Size: objects[i].Size}
		if objects[i].LastModified != nil && !objects[i].LastModified.IsZero() {
			v := objects[i].LastModified.UTC().Format(time.RFC3339)
			resp[i].LastModified = &v
		}
	}
	c.JSON(http.StatusOK, resp)
}
