package routes

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
)

var reNoIdent = regexp.MustCompile(`\W+`)

// slugify turns a display name into a URL-friendly identifier: "Food & Drink" -> "food-drink".
func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = reNoIdent.ReplaceAllLiteralString(slug, " ")
	return strings.Join(strings.Fields(slug), "-")
}

// urlID reads a numeric URL parameter, answering 400 itself when it is not one.
func urlID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param."+name)
		return 0, false
	}
	return id, true
}

// queryBool reads an optional boolean query parameter ("1", "true", "0", "false").
func queryBool(w http.ResponseWriter, r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param."+name, "%s must be a boolean", name)
		return nil, false
	}
	return &v, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param."+name, "%s must be an integer", name)
		return nil, false
	}
	return &v, true
}
