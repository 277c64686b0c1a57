package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

const notFoundPage = "404.html"

// PageHandler serves the static HTML pages from a public directory.
type PageHandler struct {
	dir string
}

func NewPageHandler(dir string) *PageHandler {
	return &PageHandler{dir: dir}
}

// Page serves one file from the public directory.
func (h *PageHandler) Page(name string) gin.HandlerFunc {
	path := filepath.Join(h.dir, name)
	return func(c *gin.Context) {
		c.File(path)
	}
}

// NotFound answers with the 404 page (used for GET on the auth API paths and unknown routes).
func (h *PageHandler) NotFound(c *gin.Context) {
	b, err := os.ReadFile(filepath.Join(h.dir, notFoundPage))
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", b)
}

// AssetsDir is the directory served under /assets.
func (h *PageHandler) AssetsDir() string {
	return filepath.Join(h.dir, "assets")
}
