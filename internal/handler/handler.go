package handler

import (
	"net/http"
	"strconv"
)

type listQueryValues struct {
	Limit  int
	Offset int
}

func retrieveListQueryValues(r *http.Request) *listQueryValues {
	limitStr := r.URL.Query().Get("limit")
	pageStr := r.URL.Query().Get("page")

	// Default pagination values
	offset := 0
	limit := 10

	if limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	if pageStr != "" {
		if parsedPage, err := strconv.Atoi(pageStr); err == nil && parsedPage >= 1 {
			offset = (parsedPage - 1) * limit
		}
	}

	return &listQueryValues{
		Limit:  limit,
		Offset: offset,
	}
}
