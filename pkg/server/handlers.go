package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/source"
)

type errorResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Row     *source.RowError `json:"row,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listSegments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"segments": models.Segments})
}

// segmentation runs the whole pipeline on the CSV request body.
//
// Query parameters:
//   - reference_date: overrides the configured reference date
//   - segment: repeatable, keeps only customers of these segments
//   - delimiter, encoding: CSV decoding options
func (s *Server) segmentation(c *gin.Context) {
	ref := s.cfg.ReferenceDate
	if raw := c.Query("reference_date"); raw != "" {
		parsed, err := calculator.ParseReferenceDate(raw)
		if err != nil {
			s.fail(c, http.StatusBadRequest, "INVALID_REFERENCE_DATE", err)
			return
		}
		ref = parsed
	}

	var filter []models.Segment
	for _, name := range c.QueryArray("segment") {
		seg, ok := models.ParseSegment(name)
		if !ok {
			s.fail(c, http.StatusBadRequest, "UNKNOWN_SEGMENT", errors.New("unknown segment: "+name))
			return
		}
		filter = append(filter, seg)
	}

	encoding := c.DefaultQuery("encoding", s.cfg.Source.Encoding)
	opts := []source.CSVOption{source.WithEncoding(encoding)}
	delimiter := c.DefaultQuery("delimiter", s.cfg.Source.Delimiter)
	if delimiter != "" {
		runes := []rune(delimiter)
		if len(runes) != 1 {
			s.fail(c, http.StatusBadRequest, "INVALID_DELIMITER", errors.New("delimiter must be a single character"))
			return
		}
		opts = append(opts, source.WithDelimiter(runes[0]))
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxBodySize)
	lines, err := source.ReadCSV(body, opts...)
	if err != nil {
		s.failRead(c, err)
		return
	}

	runID := c.GetString(requestIDKey)
	result, err := calculator.Run(c.Request.Context(), lines, models.Config{
		ReferenceDate: ref,
		RunID:         runID,
	}, requestLoggerFrom(c).With(zap.String("run_id", runID)))
	if err != nil {
		s.failRun(c, err)
		return
	}
	if len(filter) > 0 {
		result.Customers = calculator.Filter(result.Customers, filter...)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) failRead(c *gin.Context, err error) {
	var (
		rowErr   source.RowError
		missing  *source.MissingColumnsError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		s.fail(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err)
	case errors.As(err, &rowErr):
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_ROW", Message: err.Error(), Row: &rowErr})
	case errors.As(err, &missing):
		s.fail(c, http.StatusBadRequest, "MISSING_COLUMNS", err)
	case errors.Is(err, source.ErrEmptyFile):
		s.fail(c, http.StatusBadRequest, "EMPTY_BODY", err)
	case errors.Is(err, source.ErrUnsupportedEncoding):
		s.fail(c, http.StatusBadRequest, "UNSUPPORTED_ENCODING", err)
	default:
		s.fail(c, http.StatusBadRequest, "INVALID_CSV", err)
	}
}

func (s *Server) failRun(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calculator.ErrInsufficientPopulation),
		errors.Is(err, calculator.ErrDuplicateBinEdges),
		errors.Is(err, calculator.ErrInvoiceAfterReference),
		errors.Is(err, calculator.ErrMissingReferenceDate):
		s.fail(c, http.StatusUnprocessableEntity, "UNPROCESSABLE_DATASET", err)
	default:
		s.fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
	}
}

func (s *Server) fail(c *gin.Context, status int, code string, err error) {
	_ = c.Error(err)
	c.JSON(status, errorResponse{Code: code, Message: err.Error()})
}
