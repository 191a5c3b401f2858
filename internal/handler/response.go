package handler

import (
	"github.com/gin-gonic/gin"
)

// Error bodies are {"detail": ...}: a string for domain errors, a list of
// objects for request validation failures.
func Detail(c *gin.Context, status int, detail any) {
	c.JSON(status, gin.H{"detail": detail})
}

type validationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func missingFieldsDetail(fields []string) []validationError {
	out := make([]validationError, 0, len(fields))
	for _, field := range fields {
		out = append(out, validationError{
			Loc:  []string{"body", field},
			Msg:  "Field required",
			Type: "missing",
		})
	}
	return out
}

func queryErrorDetail(param, msg string) []validationError {
	return []validationError{{
		Loc:  []string{"query", param},
		Msg:  msg,
		Type: "value_error",
	}}
}
