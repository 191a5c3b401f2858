package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const rootPage = `<html>
    <head>
        <title>
            Narrative log service
        </title>
    </head>
    <body>
        <h1>Narrative log service</h1>
        <p>Create and manage log messages.</p>
        <p><a href="/swagger/index.html">Interactive OpenAPI documentation</a></p>
    </html>
`

// MetaHandler serves the service's self-description endpoints.
type MetaHandler struct {
	SiteID  string
	Version string
}

func (h *MetaHandler) Register(r *gin.Engine) {
	g := r.Group("/narrativelog")
	g.GET("", h.root)
	g.GET("/configuration", h.configuration)
	g.GET("/version", h.version)
}

func (h *MetaHandler) root(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rootPage))
}

// @Summary Get the configuration
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router /narrativelog/configuration [get]
func (h *MetaHandler) configuration(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"site_id": h.SiteID})
}

// @Summary Get the service version
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router /narrativelog/version [get]
func (h *MetaHandler) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.Version})
}
