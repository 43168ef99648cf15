package response

import (
	"sync/atomic"

	"finsurvey/lib/clock"
)

var verbose atomic.Bool

// SetVerbose exposes error details to clients; enabled outside production
func SetVerbose(v bool) {
	verbose.Store(v)
}

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	StatusMessage string      `json:"status_message"`
	Error         string      `json:"error,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

func Message(message string, data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

// Failure hides err from clients unless verbose mode is on
func Failure(message string, err error) Response {
	resp := Error(message)
	if err != nil && verbose.Load() {
		resp.Error = err.Error()
	}
	return resp
}
