package ahrsweb

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/westphae/goecompass/sensors/saul"
)

//go:embed templates/compass.html
var templates embed.FS

var compassTemplate = template.Must(template.ParseFS(templates, "templates/compass.html"))

// EntryInfo describes one registry entry.
type EntryInfo struct {
	ID    int    `json:"id"`
	Class string `json:"class"`
	Name  string `json:"name"`
}

// EntryReading is the JSON form of a registry read.
type EntryReading struct {
	EntryInfo
	Unit   string    `json:"unit"`
	Scale  int8      `json:"scale"`
	Raw    []int16   `json:"raw"`
	Values []float64 `json:"values"`
	Text   string    `json:"text"`
}

// NewRouter serves the websocket stream of room at /ahrsweb, a compass page
// viewing it at / and the sensors of reg under /api/saul.
func NewRouter(room *Room, reg *saul.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.SetHTMLTemplate(compassTemplate)

	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "compass.html", gin.H{
			"Title": "LSM303DLHC compass",
			"Path":  "/ahrsweb",
		})
	})
	router.GET("/ahrsweb", gin.WrapH(room))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": room.Clients(),
			"sensors": reg.Len(),
		})
	})

	api := router.Group("/api")
	api.GET("/saul", func(c *gin.Context) {
		entries := make([]EntryInfo, 0, reg.Len())
		for i := 0; i < reg.Len(); i++ {
			e, err := reg.Find(i)
			if err != nil {
				break
			}
			entries = append(entries, EntryInfo{ID: i, Class: e.Driver.Type.String(), Name: e.Name})
		}
		c.JSON(http.StatusOK, entries)
	})

	api.GET("/saul/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid device id " + c.Param("id")})
			return
		}
		e, err := reg.Find(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
			return
		}

		var p saul.Phydat
		dim, err := reg.Read(id, &p)
		switch {
		case errors.Is(err, saul.ErrNotSupported):
			c.JSON(http.StatusNotImplemented, gin.H{"err": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
			return
		}
		if dim < 1 || dim > len(p.Val) {
			dim = len(p.Val)
		}

		r := EntryReading{
			EntryInfo: EntryInfo{ID: id, Class: e.Driver.Type.String(), Name: e.Name},
			Unit:      p.Unit.String(),
			Scale:     p.Scale,
			Raw:       append([]int16(nil), p.Val[:dim]...),
			Text:      p.Dump(dim),
		}
		for i := 0; i < dim; i++ {
			r.Values = append(r.Values, p.Float(i))
		}
		c.JSON(http.StatusOK, r)
	})

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		log.Debugf("AHRSWeb: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(t))
	}
}
