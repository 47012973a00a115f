package domain

import (
	"net/http"
	"strconv"
)

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func statusText(code int) string {
	return strconv.Itoa(code) + " " + http.StatusText(code)
}
