package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"herald-bot/internal/analytics"
	"herald-bot/internal/engine"
	"herald-bot/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ResyncFunc pushes a guild's slash commands after a registry change. The
// server treats resync failures as non-fatal: the database write already
// happened and the prefix path picks up the change immediately.
type ResyncFunc func(guildID string) error

type Server struct {
	store     *storage.Store
	engine    *engine.Engine
	analytics *analytics.Service
	logger    *zap.Logger
	token     string
	limiter   *rate.Limiter
	resync    ResyncFunc
}

func NewServer(store *storage.Store, commandEngine *engine.Engine, analyticsService *analytics.Service, logger *zap.Logger, token string, ratePerSecond float64, burst int, resync ResyncFunc) *Server {
	return &Server{
		store:     store,
		engine:    commandEngine,
		analytics: analyticsService,
		logger:    logger,
		token:     token,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		resync:    resync,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.rateLimit())

	api := router.Group("/api/guilds/:guildID", s.authorize())
	api.GET("/commands", s.listCommands)
	api.POST("/commands", s.createCommand)
	api.GET("/commands/:id", s.getCommand)
	api.PUT("/commands/:id", s.updateCommand)
	api.DELETE("/commands/:id", s.deleteCommand)
	api.GET("/variables", s.listVariables)
	api.PUT("/variables/:name", s.putVariable)
	api.DELETE("/variables/:name", s.deleteVariable)
	api.GET("/stats", s.stats)

	return router
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "Bearer "+s.token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// commandRequest is the write payload for command endpoints. List fields
// arrive as real JSON arrays and get serialized for storage.
type commandRequest struct {
	Trigger               string   `json:"trigger"`
	Aliases               []string `json:"aliases"`
	Response              string   `json:"response"`
	EmbedJSON             string   `json:"embed_json"`
	CommandType           string   `json:"command_type"`
	IsEnabled             *bool    `json:"is_enabled"`
	IsDraft               bool     `json:"is_draft"`
	IsHidden              bool     `json:"is_hidden"`
	Category              string   `json:"category"`
	RequiredRoleIDs       []string `json:"required_role_ids"`
	DeniedRoleIDs         []string `json:"denied_role_ids"`
	RequiredChannelIDs    []string `json:"required_channel_ids"`
	RequiredPermissions   []string `json:"required_permissions"`
	CooldownSeconds       int      `json:"cooldown_seconds"`
	GlobalCooldownSeconds int      `json:"global_cooldown_seconds"`
	DeleteUserMessage     bool     `json:"delete_user_message"`
	DeleteResponseAfter   int      `json:"delete_response_after"`
	MentionUser           bool     `json:"mention_user"`
	Ephemeral             bool     `json:"ephemeral"`
}

type commandResponse struct {
	ID                    int64    `json:"id"`
	GuildID               string   `json:"guild_id"`
	Trigger               string   `json:"trigger"`
	Aliases               []string `json:"aliases"`
	Response              string   `json:"response"`
	EmbedJSON             string   `json:"embed_json,omitempty"`
	CommandType           string   `json:"command_type"`
	IsEnabled             bool     `json:"is_enabled"`
	IsDraft               bool     `json:"is_draft"`
	IsHidden              bool     `json:"is_hidden"`
	Category              string   `json:"category,omitempty"`
	RequiredRoleIDs       []string `json:"required_role_ids"`
	DeniedRoleIDs         []string `json:"denied_role_ids"`
	RequiredChannelIDs    []string `json:"required_channel_ids"`
	RequiredPermissions   []string `json:"required_permissions"`
	CooldownSeconds       int      `json:"cooldown_seconds"`
	GlobalCooldownSeconds int      `json:"global_cooldown_seconds"`
	DeleteUserMessage     bool     `json:"delete_user_message"`
	DeleteResponseAfter   int      `json:"delete_response_after"`
	MentionUser           bool     `json:"mention_user"`
	Ephemeral             bool     `json:"ephemeral"`
	UsageCount            int64    `json:"usage_count"`
	LastUsedAt            *int64   `json:"last_used_at"`
}

func toResponse(cmd storage.CustomCommand) commandResponse {
	resp := commandResponse{
		ID:                    cmd.ID,
		GuildID:               cmd.GuildID,
		Trigger:               cmd.Trigger,
		Aliases:               decodeList(cmd.Aliases),
		Response:              cmd.Response,
		EmbedJSON:             cmd.EmbedJSON,
		CommandType:           cmd.CommandType,
		IsEnabled:             cmd.IsEnabled,
		IsDraft:               cmd.IsDraft,
		IsHidden:              cmd.IsHidden,
		Category:              cmd.Category,
		RequiredRoleIDs:       decodeList(cmd.RequiredRoleIDs),
		DeniedRoleIDs:         decodeList(cmd.DeniedRoleIDs),
		RequiredChannelIDs:    decodeList(cmd.RequiredChannelIDs),
		RequiredPermissions:   decodeList(cmd.RequiredPermissions),
		CooldownSeconds:       cmd.CooldownSeconds,
		GlobalCooldownSeconds: cmd.GlobalCooldownSeconds,
		DeleteUserMessage:     cmd.DeleteUserMessage,
		DeleteResponseAfter:   cmd.DeleteResponseAfter,
		MentionUser:           cmd.MentionUser,
		Ephemeral:             cmd.Ephemeral,
		UsageCount:            cmd.UsageCount,
	}
	if cmd.LastUsedAt != nil {
		unix := cmd.LastUsedAt.Unix()
		resp.LastUsedAt = &unix
	}
	return resp
}

func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func (req *commandRequest) validate() string {
	req.Trigger = strings.ToLower(strings.TrimSpace(req.Trigger))
	if req.Trigger == "" {
		return "trigger is required"
	}
	if strings.ContainsAny(req.Trigger, " \t\n") {
		return "trigger must not contain whitespace"
	}
	if req.Response == "" && req.EmbedJSON == "" {
		return "a response or an embed is required"
	}
	if req.EmbedJSON != "" && !json.Valid([]byte(req.EmbedJSON)) {
		return "embed_json is not valid JSON"
	}
	switch req.CommandType {
	case "", engine.TypePrefix, engine.TypeSlash, engine.TypeBoth:
	default:
		return "command_type must be prefix, slash or both"
	}
	if req.CooldownSeconds < 0 || req.GlobalCooldownSeconds < 0 || req.DeleteResponseAfter < 0 {
		return "durations must not be negative"
	}
	for i, alias := range req.Aliases {
		req.Aliases[i] = strings.ToLower(strings.TrimSpace(alias))
		if req.Aliases[i] == "" {
			return "aliases must not be empty"
		}
	}
	for _, name := range req.RequiredPermissions {
		if !engine.KnownPermission(name) {
			return "unknown permission: " + name
		}
	}
	return ""
}

func (req *commandRequest) toStorage(guildID string) storage.CustomCommand {
	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	return storage.CustomCommand{
		GuildID:               guildID,
		Trigger:               req.Trigger,
		Aliases:               encodeList(req.Aliases),
		Response:              req.Response,
		EmbedJSON:             req.EmbedJSON,
		CommandType:           req.CommandType,
		IsEnabled:             enabled,
		IsDraft:               req.IsDraft,
		IsHidden:              req.IsHidden,
		Category:              req.Category,
		RequiredRoleIDs:       encodeList(req.RequiredRoleIDs),
		DeniedRoleIDs:         encodeList(req.DeniedRoleIDs),
		RequiredChannelIDs:    encodeList(req.RequiredChannelIDs),
		RequiredPermissions:   encodeList(req.RequiredPermissions),
		CooldownSeconds:       req.CooldownSeconds,
		GlobalCooldownSeconds: req.GlobalCooldownSeconds,
		DeleteUserMessage:     req.DeleteUserMessage,
		DeleteResponseAfter:   req.DeleteResponseAfter,
		MentionUser:           req.MentionUser,
		Ephemeral:             req.Ephemeral,
	}
}

func (s *Server) listCommands(c *gin.Context) {
	guildID := c.Param("guildID")
	commands, err := s.store.ListCommands(c.Request.Context(), guildID)
	if err != nil {
		s.logger.Error("list commands failed", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list commands"})
		return
	}
	out := make([]commandResponse, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, toResponse(cmd))
	}
	c.JSON(http.StatusOK, gin.H{"commands": out})
}

func (s *Server) createCommand(c *gin.Context) {
	guildID := c.Param("guildID")
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	id, err := s.store.CreateCommand(c.Request.Context(), req.toStorage(guildID))
	if err != nil {
		if storage.IsConflict(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "A command with that trigger already exists"})
			return
		}
		s.logger.Error("create command failed", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create command"})
		return
	}
	s.refresh(c, guildID)

	cmd, _, err := s.store.GetCommand(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load created command"})
		return
	}
	c.JSON(http.StatusCreated, toResponse(cmd))
}

func (s *Server) getCommand(c *gin.Context) {
	guildID := c.Param("guildID")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid command id"})
		return
	}
	cmd, found, err := s.store.GetCommand(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load command"})
		return
	}
	if !found || cmd.GuildID != guildID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Command not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(cmd))
}

func (s *Server) updateCommand(c *gin.Context) {
	guildID := c.Param("guildID")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid command id"})
		return
	}
	existing, found, err := s.store.GetCommand(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load command"})
		return
	}
	if !found || existing.GuildID != guildID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Command not found"})
		return
	}

	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	cmd := req.toStorage(guildID)
	cmd.ID = id
	if err := s.store.UpdateCommand(c.Request.Context(), cmd); err != nil {
		if storage.IsConflict(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "A command with that trigger already exists"})
			return
		}
		s.logger.Error("update command failed", zap.Int64("command_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update command"})
		return
	}
	s.refresh(c, guildID)

	updated, _, err := s.store.GetCommand(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load updated command"})
		return
	}
	c.JSON(http.StatusOK, toResponse(updated))
}

func (s *Server) deleteCommand(c *gin.Context) {
	guildID := c.Param("guildID")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid command id"})
		return
	}
	if err := s.store.DeleteCommand(c.Request.Context(), guildID, id); err != nil {
		s.logger.Error("delete command failed", zap.Int64("command_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete command"})
		return
	}
	s.refresh(c, guildID)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) listVariables(c *gin.Context) {
	guildID := c.Param("guildID")
	vars, err := s.store.ListVariables(c.Request.Context(), guildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list variables"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"variables": vars})
}

func (s *Server) putVariable(c *gin.Context) {
	guildID := c.Param("guildID")
	name := c.Param("name")
	if !validVariableName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Variable names may only contain letters, digits, underscore and hyphen"})
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.UpsertVariable(c.Request.Context(), guildID, name, body.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save variable"})
		return
	}
	s.refresh(c, guildID)
	c.JSON(http.StatusOK, gin.H{"name": name, "value": body.Value})
}

func (s *Server) deleteVariable(c *gin.Context) {
	guildID := c.Param("guildID")
	name := c.Param("name")
	if err := s.store.DeleteVariable(c.Request.Context(), guildID, name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete variable"})
		return
	}
	s.refresh(c, guildID)
	c.JSON(http.StatusOK, gin.H{"deleted": name})
}

func (s *Server) stats(c *gin.Context) {
	guildID := c.Param("guildID")
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
			return
		}
		days = parsed
	}
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	report, err := s.analytics.Report(c.Request.Context(), guildID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// refresh reloads the guild registry after a write and, when wired, pushes
// the slash command set. Both are best-effort: the row is already durable.
func (s *Server) refresh(c *gin.Context, guildID string) {
	if err := s.engine.RefreshCommands(c.Request.Context(), guildID); err != nil {
		s.logger.Warn("registry refresh failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	if s.resync != nil {
		if err := s.resync(guildID); err != nil {
			s.logger.Warn("slash resync failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
}

func validVariableName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
