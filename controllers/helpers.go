package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
)

var errInternal = errors.New("Server error")

// respondServiceError maps a service failure onto the response envelope.
// Anything that is not a *services.Error is logged and reported as 500.
func respondServiceError(c *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case services.KindNotFound:
			utils.RespondError(c, http.StatusNotFound, se)
		case services.KindUnauthorized:
			utils.RespondError(c, http.StatusUnauthorized, se)
		default:
			utils.RespondError(c, http.StatusBadRequest, se)
		}
		return
	}

	utils.ErrorLogger.WithFields(logrus.Fields{
		"path":  c.FullPath(),
		"error": err.Error(),
	}).Error("request failed")
	utils.RespondError(c, http.StatusInternalServerError, errInternal)
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("Invalid id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

// formNumber accepts a JSON number, a numeric string, or an empty value.
// set reports whether the field was present at all, null whether it was blank.
type formNumber struct {
	set   bool
	null  bool
	value float64
}

func (n *formNumber) UnmarshalParam(param string) error {
	n.set = true
	param = strings.TrimSpace(param)
	if param == "" {
		n.null = true
		return nil
	}
	v, err := strconv.ParseFloat(param, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("%q is not a number", param)
	}
	n.value = v
	return nil
}

func (n *formNumber) UnmarshalJSON(data []byte) error {
	n.set = true
	if string(data) == "null" {
		n.null = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return n.UnmarshalParam(s)
	}
	return json.Unmarshal(data, &n.value)
}

// Ptr returns the value, or nil when absent or blank.
func (n formNumber) Ptr() *float64 {
	if !n.set || n.null {
		return nil
	}
	v := n.value
	return &v
}
