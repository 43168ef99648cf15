package health

import (
	"net/http"

	"github.com/go-chi/render"

	"finsurvey/lib/api/response"
)

type status struct {
	Status string `json:"status"`
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Message("Server is running", status{Status: "OK"}))
	}
}
