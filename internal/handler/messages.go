package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lsst-ts/narrativelog/internal/filter"
	"github.com/lsst-ts/narrativelog/internal/repository"
	"github.com/lsst-ts/narrativelog/internal/stream"
	"github.com/lsst-ts/narrativelog/internal/tags"
	"github.com/lsst-ts/narrativelog/internal/taxonomy"
	"github.com/lsst-ts/narrativelog/internal/timeutil"
)

// Array-valued filter parameters. Overlap selects rows whose array shares
// at least one element with the supplied values; exclude is the negation.
var (
	overlapFields = []string{
		"tags", "urls", "systems", "subsystems", "cscs",
		"components", "primary_software_components", "primary_hardware_components",
	}
	excludeFields = []string{
		"tags", "systems", "subsystems", "cscs",
		"components", "primary_software_components", "primary_hardware_components",
	}
	minMaxDateFields = []string{
		"date_begin", "date_end", "date_added", "date_invalidated",
	}
	hasFields = []string{
		"date_begin", "date_end", "date_invalidated", "parent_id",
	}
)

type MessagesHandler struct {
	Repo   repository.Repository
	Hub    *stream.Hub
	Logger *zap.Logger
}

func (h *MessagesHandler) Register(r *gin.Engine) {
	g := r.Group("/narrativelog")
	g.POST("/messages", h.add)
	g.GET("/messages", h.find)
	g.GET("/messages/subscribe", h.subscribe)
	g.GET("/messages/:id", h.get)
	g.PATCH("/messages/:id", h.edit)
	g.DELETE("/messages/:id", h.del)
}

type addMessageRequest struct {
	MessageText  *string  `json:"message_text"`
	Level        *int     `json:"level"`
	UserID       *string  `json:"user_id"`
	UserAgent    *string  `json:"user_agent"`
	IsHuman      *bool    `json:"is_human"`
	Category     *string  `json:"category"`
	TimeLostType *string  `json:"time_lost_type"`
	Tags         []string `json:"tags"`
	Urls         []string `json:"urls"`
	TimeLost     *float64 `json:"time_lost"`
	DateBegin    *string  `json:"date_begin"`
	DateEnd      *string  `json:"date_end"`

	Systems    *[]string `json:"systems"`
	Subsystems *[]string `json:"subsystems"`
	Cscs       *[]string `json:"cscs"`

	Components                *[]string      `json:"components"`
	PrimarySoftwareComponents *[]string      `json:"primary_software_components"`
	PrimaryHardwareComponents *[]string      `json:"primary_hardware_components"`
	ComponentsJSON            map[string]any `json:"components_json"`
}

// @Summary Add a message
// @Tags messages
// @Accept json
// @Produce json
// @Success 200 {object} messageResponse
// @Router /narrativelog/messages [post]
func (h *MessagesHandler) add(c *gin.Context) {
	var req addMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Detail(c, http.StatusUnprocessableEntity, "Invalid JSON body: "+err.Error())
		return
	}

	var missing []string
	if req.MessageText == nil {
		missing = append(missing, "message_text")
	}
	if req.Level == nil {
		missing = append(missing, "level")
	}
	if req.UserID == nil {
		missing = append(missing, "user_id")
	}
	if req.UserAgent == nil {
		missing = append(missing, "user_agent")
	}
	if req.IsHuman == nil {
		missing = append(missing, "is_human")
	}
	if len(missing) > 0 {
		Detail(c, http.StatusUnprocessableEntity, missingFieldsDetail(missing))
		return
	}

	normTags, err := tags.Normalize(req.Tags)
	if err != nil {
		Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	dateBegin, err := parseNaiveDate(req.DateBegin, "date_begin")
	if err != nil {
		Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	dateEnd, err := parseNaiveDate(req.DateEnd, "date_end")
	if err != nil {
		Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	timeLost := decimal.Zero
	if req.TimeLost != nil {
		timeLost = decimal.NewFromFloat(*req.TimeLost)
	}

	params := repository.AddMessageParams{
		MessageText:  *req.MessageText,
		Level:        *req.Level,
		Tags:         normTags,
		Urls:         req.Urls,
		TimeLost:     timeLost,
		DateBegin:    dateBegin,
		DateEnd:      dateEnd,
		UserID:       *req.UserID,
		UserAgent:    *req.UserAgent,
		IsHuman:      *req.IsHuman,
		Systems:      req.Systems,
		Subsystems:   req.Subsystems,
		Cscs:         req.Cscs,
		Category:     req.Category,
		TimeLostType: req.TimeLostType,

		Components:                req.Components,
		PrimarySoftwareComponents: req.PrimarySoftwareComponents,
		PrimaryHardwareComponents: req.PrimaryHardwareComponents,
		ComponentsJSON:            req.ComponentsJSON,
	}
	rec, err := h.Repo.AddMessage(c.Request.Context(), params)
	if err != nil {
		h.logError("add message failed", err)
		Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp := newMessageResponse(rec)
	h.publish(stream.EventAdded, resp)
	c.JSON(http.StatusOK, resp)
}

type editMessageRequest struct {
	MessageText  *string   `json:"message_text"`
	Level        *int      `json:"level"`
	UserID       *string   `json:"user_id"`
	UserAgent    *string   `json:"user_agent"`
	IsHuman      *bool     `json:"is_human"`
	Category     *string   `json:"category"`
	TimeLostType *string   `json:"time_lost_type"`
	Tags         *[]string `json:"tags"`
	Urls         *[]string `json:"urls"`
	TimeLost     *float64  `json:"time_lost"`
	DateBegin    *string   `json:"date_begin"`
	DateEnd      *string   `json:"date_end"`

	Systems    *[]string `json:"systems"`
	Subsystems *[]string `json:"subsystems"`
	Cscs       *[]string `json:"cscs"`

	Components                *[]string      `json:"components"`
	PrimarySoftwareComponents *[]string      `json:"primary_software_components"`
	PrimaryHardwareComponents *[]string      `json:"primary_hardware_components"`
	ComponentsJSON            map[string]any `json:"components_json"`
}

// @Summary Edit a message
// @Description Creates a new message carrying the old values overlaid with the supplied fields, and marks the old message invalid.
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} messageResponse
// @Router /narrativelog/messages/{id} [patch]
func (h *MessagesHandler) edit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Detail(c, http.StatusUnprocessableEntity, "Invalid JSON body: "+err.Error())
		return
	}

	params := repository.EditMessageParams{
		MessageText:  req.MessageText,
		Level:        req.Level,
		Urls:         req.Urls,
		UserID:       req.UserID,
		UserAgent:    req.UserAgent,
		IsHuman:      req.IsHuman,
		Systems:      req.Systems,
		Subsystems:   req.Subsystems,
		Cscs:         req.Cscs,
		Category:     req.Category,
		TimeLostType: req.TimeLostType,

		Components:                req.Components,
		PrimarySoftwareComponents: req.PrimarySoftwareComponents,
		PrimaryHardwareComponents: req.PrimaryHardwareComponents,
		ComponentsJSON:            req.ComponentsJSON,
	}
	if req.Tags != nil {
		normTags, err := tags.Normalize(*req.Tags)
		if err != nil {
			Detail(c, http.StatusBadRequest, err.Error())
			return
		}
		params.Tags = &normTags
	}
	var err error
	params.DateBegin, err = parseNaiveDate(req.DateBegin, "date_begin")
	if err != nil {
		Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	params.DateEnd, err = parseNaiveDate(req.DateEnd, "date_end")
	if err != nil {
		Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.TimeLost != nil {
		timeLost := decimal.NewFromFloat(*req.TimeLost)
		params.TimeLost = &timeLost
	}

	rec, err := h.Repo.EditMessage(c.Request.Context(), id, params)
	if err != nil {
		h.logError("edit message failed", err)
		Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		Detail(c, http.StatusNotFound, fmt.Sprintf("Message with id=%s not found", id))
		return
	}
	resp := newMessageResponse(rec)
	h.publish(stream.EventEdited, resp)
	c.JSON(http.StatusOK, resp)
}

// @Summary Delete a message
// @Description Marks the message invalid. A no-op if the message is already invalid.
// @Tags messages
// @Param id path string true "Message ID"
// @Success 204
// @Router /narrativelog/messages/{id} [delete]
func (h *MessagesHandler) del(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.Repo.DeleteMessage(c.Request.Context(), id)
	if err != nil {
		h.logError("delete message failed", err)
		Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == 0 {
		Detail(c, http.StatusNotFound, fmt.Sprintf("No message found with id=%s", id))
		return
	}
	if rec, err := h.Repo.GetMessage(c.Request.Context(), id); err == nil && rec != nil {
		h.publish(stream.EventInvalidated, newMessageResponse(rec))
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get a message
// @Tags messages
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} messageResponse
// @Router /narrativelog/messages/{id} [get]
func (h *MessagesHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.Repo.GetMessage(c.Request.Context(), id)
	if err != nil {
		h.logError("get message failed", err)
		Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		Detail(c, http.StatusNotFound, fmt.Sprintf("No message found with id=%s", id))
		return
	}
	c.JSON(http.StatusOK, newMessageResponse(rec))
}

// @Summary Find messages
// @Description Returns the messages matching the filter parameters as a JSON array.
// @Tags messages
// @Produce json
// @Success 200 {array} messageResponse
// @Router /narrativelog/messages [get]
func (h *MessagesHandler) find(c *gin.Context) {
	params, ok := h.findParams(c)
	if !ok {
		return
	}
	compiled, err := filter.Compile(*params)
	if err != nil {
		Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.Repo.FindMessages(c.Request.Context(), compiled)
	if err != nil {
		h.logError("find messages failed", err)
		Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]messageResponse, 0, len(recs))
	for i := range recs {
		out = append(out, newMessageResponse(&recs[i]))
	}
	c.JSON(http.StatusOK, out)
}

// findParams converts query parameters to filter parameters, writing the
// error response itself when a parameter is invalid.
func (h *MessagesHandler) findParams(c *gin.Context) (*filter.Params, bool) {
	p := filter.Params{
		Min:      map[string]any{},
		Max:      map[string]any{},
		Has:      map[string]bool{},
		Overlap:  map[string][]string{},
		Exclude:  map[string][]string{},
		In:       map[string][]string{},
		Contains: map[string]string{},
	}

	limit, err := intQuery(c, "limit", filter.DefaultLimit)
	if err != nil {
		Detail(c, http.StatusUnprocessableEntity, queryErrorDetail("limit", err.Error()))
		return nil, false
	}
	if limit <= 1 {
		Detail(c, http.StatusUnprocessableEntity,
			queryErrorDetail("limit", "Input should be greater than 1"))
		return nil, false
	}
	p.Limit = limit

	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		Detail(c, http.StatusUnprocessableEntity, queryErrorDetail("offset", err.Error()))
		return nil, false
	}
	if offset < 0 {
		Detail(c, http.StatusUnprocessableEntity,
			queryErrorDetail("offset", "Input should be greater than or equal to 0"))
		return nil, false
	}
	p.Offset = offset

	for _, bound := range []struct {
		prefix string
		dest   map[string]any
	}{
		{"min_", p.Min},
		{"max_", p.Max},
	} {
		for _, field := range []string{"level", "time_lost"} {
			raw := c.Query(bound.prefix + field)
			if raw == "" {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				Detail(c, http.StatusUnprocessableEntity,
					queryErrorDetail(bound.prefix+field, "Input should be a valid number"))
				return nil, false
			}
			bound.dest[field] = value
		}
		for _, field := range minMaxDateFields {
			raw := c.Query(bound.prefix + field)
			if raw == "" {
				continue
			}
			value, err := timeutil.Parse(raw)
			if err != nil {
				Detail(c, http.StatusUnprocessableEntity,
					queryErrorDetail(bound.prefix+field, err.Error()))
				return nil, false
			}
			bound.dest[field] = value
		}
	}

	for _, field := range hasFields {
		raw := c.Query("has_" + field)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			Detail(c, http.StatusUnprocessableEntity,
				queryErrorDetail("has_"+field, "Input should be a valid boolean"))
			return nil, false
		}
		p.Has[field] = value
	}

	for _, field := range overlapFields {
		if values := c.QueryArray(field); len(values) > 0 {
			p.Overlap[field] = values
		}
	}
	for _, field := range excludeFields {
		if values := c.QueryArray("exclude_" + field); len(values) > 0 {
			p.Exclude[field] = values
		}
	}
	// Tag filters obey the same normal form as stored tags.
	for _, dest := range []map[string][]string{p.Overlap, p.Exclude} {
		if values, ok := dest["tags"]; ok {
			normTags, err := tags.Normalize(values)
			if err != nil {
				Detail(c, http.StatusBadRequest, err.Error())
				return nil, false
			}
			dest["tags"] = normTags
		}
	}

	for param, field := range map[string]string{
		"site_ids":    "site_id",
		"user_ids":    "user_id",
		"user_agents": "user_agent",
	} {
		if values := c.QueryArray(param); len(values) > 0 {
			p.In[field] = values
		}
	}

	if text := c.Query("message_text"); text != "" {
		p.Contains["message_text"] = text
	}

	p.IsHuman, err = filter.ParseTriState(c.Query("is_human"), filter.TriEither)
	if err != nil {
		Detail(c, http.StatusUnprocessableEntity, queryErrorDetail("is_human", err.Error()))
		return nil, false
	}
	p.IsValid, err = filter.ParseTriState(c.Query("is_valid"), filter.TriTrue)
	if err != nil {
		Detail(c, http.StatusUnprocessableEntity, queryErrorDetail("is_valid", err.Error()))
		return nil, false
	}

	p.ComponentsPath, err = taxonomy.ParsePathSpec(c.Query("components_path"))
	if err != nil {
		Detail(c, http.StatusBadRequest, fmt.Sprintf("Invalid components_path: %v", err))
		return nil, false
	}
	p.ExcludeComponentsPath, err = taxonomy.ParsePathSpec(c.Query("exclude_components_path"))
	if err != nil {
		Detail(c, http.StatusBadRequest, fmt.Sprintf("Invalid exclude_components_path: %v", err))
		return nil, false
	}

	p.OrderBy = c.QueryArray("order_by")
	return &p, true
}

func (h *MessagesHandler) publish(eventType string, resp messageResponse) {
	if h.Hub == nil {
		return
	}
	h.Hub.Publish(stream.Event{Type: eventType, Message: resp})
}

func (h *MessagesHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, zap.Error(err))
	}
}

// pathID parses the :id path parameter, writing the error response when
// it is not a UUID.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Detail(c, http.StatusUnprocessableEntity, []validationError{{
			Loc:  []string{"path", "id"},
			Msg:  "Input should be a valid UUID",
			Type: "uuid_parsing",
		}})
		return uuid.Nil, false
	}
	return id, true
}

func parseNaiveDate(raw *string, name string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := timeutil.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s=%s: %w", name, *raw, err)
	}
	return &parsed, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("Input should be a valid integer")
	}
	return value, nil
}
