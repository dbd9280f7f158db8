// Package api provides the REST API server for tune2midi
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/Southclaws/fault/ftag"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/james-see/tune2midi/pkg/converter"
	"github.com/james-see/tune2midi/pkg/converter/encodings"
	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Tune2MIDI API
// @version 1.0
// @description API for converting parsed scores to MIDI
// @host localhost:8080
// @BasePath /api/v1

// Config holds the server settings
type Config struct {
	Port      int
	SoundFont string // Optional .sf2 used as the instrument source
	Logger    *slog.Logger
}

// Server serves conversions over HTTP
type Server struct {
	instruments instrument.Source
	logger      *slog.Logger
}

// NewServer creates a server. Instruments come from the SoundFont when one
// is configured, otherwise from the General MIDI table.
func NewServer(cfg Config) *Server {
	s := &Server{
		instruments: instrument.GeneralMIDI(),
		logger:      cfg.Logger,
	}
	if cfg.SoundFont != "" {
		s.instruments = instrument.SoundFontFile(cfg.SoundFont)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// StartServer starts the API server on the configured port
func StartServer(cfg Config) error {
	return NewServer(cfg).Router().Run(fmt.Sprintf(":%d", cfg.Port))
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert", s.handleConvert)
		v1.POST("/events", s.handleEvents)
		v1.GET("/formats", listFormats)
		v1.GET("/encodings", listEncodings)
		v1.GET("/instruments", s.listInstruments)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tune2midi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the score document formats and the output format
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"json", "yaml", "midi"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listEncodings godoc
// @Summary List encodings
// @Description Returns the MIDI encodings a conversion can target
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]encodings.Info
// @Router /api/v1/encodings [get]
func listEncodings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"encodings": encodings.List(),
	})
}

// listInstruments godoc
// @Summary List instruments
// @Description Returns the instruments that can be selected
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]instrument.Instrument
// @Failure 503 {object} map[string]string
// @Router /api/v1/instruments [get]
func (s *Server) listInstruments(c *gin.Context) {
	list, err := s.instruments.Instruments()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruments": list})
}

// handleConvert godoc
// @Summary Convert a score to MIDI
// @Description Post a score document and receive a standard MIDI file
// @Tags convert
// @Accept json
// @Produce audio/midi
// @Param score body notation.Document true "Score document"
// @Param encoding query string false "Target encoding (default: standard)"
// @Param instrument query string false "Instrument name or program number"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert [post]
func (s *Server) handleConvert(c *gin.Context) {
	doc, seq, ok := s.convert(c)
	if !ok {
		return
	}

	data, err := seq.Bytes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(doc.Title)))
	c.Data(http.StatusOK, "audio/midi", data)
}

// EventView is the JSON form of an output event
type EventView struct {
	Tick    int64  `json:"tick"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// handleEvents godoc
// @Summary Convert a score to an event list
// @Description Post a score document and receive the timed events as JSON
// @Tags convert
// @Accept json
// @Produce json
// @Param score body notation.Document true "Score document"
// @Param encoding query string false "Target encoding (default: standard)"
// @Param instrument query string false "Instrument name or program number"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/events [post]
func (s *Server) handleEvents(c *gin.Context) {
	_, seq, ok := s.convert(c)
	if !ok {
		return
	}

	events := make([]EventView, 0, len(seq.Events))
	for _, ev := range seq.Events {
		events = append(events, EventView{
			Tick:    ev.Tick,
			Kind:    ev.Kind.String(),
			Message: fmt.Sprintf("% X", []byte(ev.Message)),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"resolution": seq.Resolution,
		"duration":   seq.Duration(),
		"events":     events,
	})
}

func (s *Server) convert(c *gin.Context) (*notation.Document, *converter.Sequence, bool) {
	var doc notation.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid score document: " + err.Error()})
		return nil, nil, false
	}

	score, err := doc.Score()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	enc, err := encodings.ByName(c.DefaultQuery("encoding", "standard"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	conv := converter.New(enc)
	conv.SetInstrument(s.instruments, c.Query("instrument"))
	conv.SetLogger(s.logger.With("request_id", c.GetString("requestID")))

	seq, err := conv.Convert(score)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
			"kind":  string(ftag.Get(err)),
		})
		return nil, nil, false
	}
	return &doc, seq, true
}

func statusFor(err error) int {
	switch ftag.Get(err) {
	case converter.KindInstrumentUnavailable:
		if errors.Is(err, instrument.ErrUnknownInstrument) {
			return http.StatusBadRequest
		}
		return http.StatusServiceUnavailable
	case converter.KindInvalidEvent:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func outputName(title string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(title, "_"), "_")
	if name == "" {
		name = "converted-" + uuid.New().String()[:8]
	}
	return name + ".mid"
}
