// Package api provides the REST API server for chartwright
package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/chartwright/pkg/config"
	"github.com/james-see/chartwright/pkg/converter"
	"github.com/james-see/chartwright/pkg/score"
)

// @title Chartwright API
// @version 1.0
// @description API for converting and editing rhythm-game charts
// @host localhost:8080
// @BasePath /api/v1

// Server serves the conversion endpoints and editing sessions
type Server struct {
	cfg      *config.Config
	sessions *SessionStore
	router   *gin.Engine
}

// NewServer creates a server configured by cfg
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.Server.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		sessions: NewSessionStore(cfg.Server.MaxSessions, cfg.Editor.MaxHistory),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.POST("/convert/sus2json", s.handleSUSToJSON)
		v1.POST("/convert/json2sus", s.handleJSONToSUS)
		v1.POST("/convert/sus2midi", s.handleSUSToMIDI)
		v1.POST("/convert/json2midi", s.handleJSONToMIDI)
		v1.POST("/info", s.handleInfo)

		sessions := v1.Group("/sessions")
		sessions.POST("", s.createSession)
		sessions.GET("/:id", s.getSession)
		sessions.DELETE("/:id", s.deleteSession)
		sessions.GET("/:id/score", s.getSessionScore)
		sessions.GET("/:id/history", s.getSessionHistory)
		sessions.GET("/:id/export", s.exportSession)
		sessions.PUT("/:id/selection", s.setSelection)
		sessions.POST("/:id/notes", s.insertNote)
		sessions.POST("/:id/holds", s.insertHold)
		sessions.POST("/:id/edit/:op", s.editSession)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address
func (s *Server) Run() error {
	return s.router.Run(s.cfg.Addr())
}

// StartServer starts the API server with cfg
func StartServer(cfg *config.Config) error {
	return NewServer(cfg).Run()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

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
		"service": "chartwright",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(converter.FormatSUS), string(converter.FormatJSON), string(converter.FormatMIDI)},
		"conversions": converter.GetSupportedConversions(),
		"values": gin.H{
			"step":  score.StepTypeNames(),
			"ease":  score.EaseTypeNames(),
			"flick": score.FlickTypeNames(),
		},
	})
}

// handleSUSToJSON godoc
// @Summary Convert SUS to a score document
// @Description Upload a .sus chart and receive a JSON score document
// @Tags convert
// @Accept multipart/form-data
// @Produce application/json
// @Param file formData file true "SUS chart to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /convert/sus2json [post]
func (s *Server) handleSUSToJSON(c *gin.Context) {
	s.handleConversion(c, converter.FormatSUS, converter.FormatJSON)
}

// handleJSONToSUS godoc
// @Summary Convert a score document to SUS
// @Description Upload a JSON score document and receive a .sus chart
// @Tags convert
// @Accept multipart/form-data
// @Produce text/plain
// @Param file formData file true "Score document to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /convert/json2sus [post]
func (s *Server) handleJSONToSUS(c *gin.Context) {
	s.handleConversion(c, converter.FormatJSON, converter.FormatSUS)
}

// handleSUSToMIDI godoc
// @Summary Render a SUS chart as MIDI
// @Description Upload a .sus chart and receive a MIDI preview
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "SUS chart to render"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /convert/sus2midi [post]
func (s *Server) handleSUSToMIDI(c *gin.Context) {
	s.handleConversion(c, converter.FormatSUS, converter.FormatMIDI)
}

// handleJSONToMIDI godoc
// @Summary Render a score document as MIDI
// @Description Upload a JSON score document and receive a MIDI preview
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "Score document to render"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /convert/json2midi [post]
func (s *Server) handleJSONToMIDI(c *gin.Context) {
	s.handleConversion(c, converter.FormatJSON, converter.FormatMIDI)
}

// handleInfo godoc
// @Summary Describe a chart
// @Description Upload a .sus chart or score document and receive its metadata and statistics
// @Tags info
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Chart to describe"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /info [post]
func (s *Server) handleInfo(c *gin.Context) {
	data, filename, ok := s.readUpload(c, true)
	if !ok {
		return
	}

	conv := s.newConverter()
	sc, err := conv.Decode(data, uploadFormat(filename, data))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metadata": sc.Metadata,
		"stats":    score.CalculateStats(sc),
		"warnings": nonNil(conv.Warnings()),
	})
}

func (s *Server) handleConversion(c *gin.Context, from, to converter.Format) {
	data, filename, ok := s.readUpload(c, true)
	if !ok {
		return
	}

	result, err := s.convert(data, filename, from, to)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	c.Header("X-Conversion-Warnings", fmt.Sprint(len(result.Warnings)))
	c.Data(http.StatusOK, contentType(to), result.Data)
}

func (s *Server) convert(data []byte, filename string, from, to converter.Format) (*converter.ConversionResult, error) {
	conv := s.newConverter()
	sc, err := conv.Decode(data, from)
	if err != nil {
		return nil, err
	}
	warnings := conv.Warnings()

	out, err := conv.Encode(sc, to)
	if err != nil {
		return nil, err
	}
	return &converter.ConversionResult{
		Data:     out,
		Filename: outputName(filename, to),
		Format:   to,
		Warnings: append(warnings, conv.Warnings()...),
	}, nil
}

func (s *Server) newConverter() *converter.Converter {
	conv := converter.New(nil)
	conv.SetMIDIExporter(converter.NewMIDIExporterWithOptions(uint8(s.cfg.MIDI.BaseKey), s.cfg.MIDI.TapLength))
	return conv
}

// readUpload reads the "file" form field; with required unset a missing file is not an error
func (s *Server) readUpload(c *gin.Context, required bool) ([]byte, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if !required && err == http.ErrMissingFile {
			return nil, "", true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

func uploadFormat(filename string, data []byte) converter.Format {
	if format := converter.DetectFormat(filename); format != converter.FormatUnknown {
		return format
	}
	return converter.DetectFormatFromContent(data)
}

func outputName(filename string, to converter.Format) string {
	ext := map[converter.Format]string{
		converter.FormatSUS:  ".sus",
		converter.FormatJSON: ".json",
		converter.FormatMIDI: ".mid",
	}[to]

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = "converted"
	}
	return base + ext
}

func contentType(format converter.Format) string {
	switch format {
	case converter.FormatMIDI:
		return "audio/midi"
	case converter.FormatJSON:
		return "application/json"
	case converter.FormatSUS:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
