package testutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"tasksync/internal/service"
)

// ItemServer is an in-process HTTP fake of the remote item endpoint.
// Items live in an embedded FakeStore.
type ItemServer struct {
	*httptest.Server
	Store *FakeStore

	mu         sync.Mutex
	failStatus map[string]int // HTTP method -> status
	authHeader string
}

// NewItemServer starts a server exposing both collections. Close it when done.
func NewItemServer() *ItemServer {
	gin.SetMode(gin.TestMode)

	s := &ItemServer{
		Store:      NewFakeStore(),
		failStatus: make(map[string]int),
	}

	r := gin.New()
	r.Use(s.intercept)
	r.GET("/:coll", s.handleList)
	r.POST("/:coll", s.handleCreate)
	r.PUT("/:coll/:id", s.handleReplace)
	r.DELETE("/:coll/:id", s.handleDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// FailWith makes every request with the given HTTP method answer status.
// A zero status clears the failure.
func (s *ItemServer) FailWith(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failStatus, method)
		return
	}
	s.failStatus[method] = status
}

// LastAuthorization returns the Authorization header of the latest request.
func (s *ItemServer) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authHeader
}

func (s *ItemServer) intercept(c *gin.Context) {
	s.mu.Lock()
	s.authHeader = c.GetHeader("Authorization")
	status := s.failStatus[c.Request.Method]
	s.mu.Unlock()

	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.Next()
}

func (s *ItemServer) collection(c *gin.Context) (service.Collection, bool) {
	coll, err := service.ParseCollection(c.Param("coll"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return "", false
	}
	return coll, true
}

func (s *ItemServer) handleList(c *gin.Context) {
	coll, ok := s.collection(c)
	if !ok {
		return
	}
	items, err := s.Store.List(c.Request.Context(), coll)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []service.Item{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *ItemServer) handleCreate(c *gin.Context) {
	coll, ok := s.collection(c)
	if !ok {
		return
	}
	var item service.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.Store.Create(c.Request.Context(), coll, item)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *ItemServer) handleReplace(c *gin.Context) {
	coll, ok := s.collection(c)
	if !ok {
		return
	}
	var item service.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item.ID = c.Param("id")
	stored, err := s.Store.Replace(c.Request.Context(), coll, item)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *ItemServer) handleDelete(c *gin.Context) {
	coll, ok := s.collection(c)
	if !ok {
		return
	}
	if err := s.Store.Delete(c.Request.Context(), coll, c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func statusFor(err error) int {
	if errors.Is(err, service.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
