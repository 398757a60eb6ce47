package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/middleware"
	"countdowntodo-sync/internal/repos"
	"countdowntodo-sync/internal/services"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags and reports field
// names by their JSON keys. It is safe to call repeatedly; every call
// returns the outcome of the first.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("day", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(services.DayLayout, fl.Field().String())
			return err == nil
		}); err != nil {
			registerErr = fmt.Errorf("register day validator: %w", err)
		}
	})
	return registerErr
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// bindJSON decodes the body strictly: unknown fields and trailing data are
// rejected, then binding tags are validated. An empty body decodes as {}.
func bindJSON(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &services.ValidationError{Message: fmt.Sprintf("invalid json body: %v", err)}
	}
	if dec.More() {
		return &services.ValidationError{Message: "invalid json body: trailing data"}
	}
	return binding.Validator.ValidateStruct(dst)
}

func writeError(c *gin.Context, logger *logging.Logger, err error) {
	var (
		ve  *services.ValidationError
		ves validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &ves):
		fields := make([]fieldError, 0, len(ves))
		for _, fe := range ves {
			fields = append(fields, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
	case errors.Is(err, repos.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repos.ErrStorageUnavailable):
		logger.Errorf("%s %s %s: %v", middleware.RequestIDFromContext(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable", "retryable": true})
	default:
		logger.Errorf("%s %s %s: %v", middleware.RequestIDFromContext(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, &services.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

func parseInt64Default(v string, fallback int64) int64 {
	if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
		return i
	}
	return fallback
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}
