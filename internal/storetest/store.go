// Package storetest provides an in-memory fake of the scheduling store's REST API for tests.
package storetest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Call records one request received by the fake store.
type Call struct {
	Method     string
	Collection string
	ID         int64
	Body       map[string]interface{}
	RequestID  string
}

type failure struct {
	status int
	body   string
}

// Store is a gin-backed fake that follows the store's collection conventions.
type Store struct {
	mu          sync.Mutex
	nextID      int64
	docs        map[string]map[int64]map[string]interface{}
	calls       []Call
	failures    map[string][]failure
	listDelay   time.Duration
	ignorePages bool

	server *httptest.Server
}

var singular = map[string]string{
	"teachers":             "Teacher",
	"courses":              "Course",
	"sections":             "Section",
	"teaching-assignments": "Assignment",
}

// New starts a fake store that is shut down when the test ends.
func New(t testing.TB) *Store {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Store{
		docs:     make(map[string]map[int64]map[string]interface{}),
		failures: make(map[string][]failure),
	}

	r := gin.New()
	r.GET("/:collection/", s.list)
	r.POST("/:collection/", s.create)
	r.DELETE("/:collection/:id", s.remove)

	s.server = httptest.NewServer(r)
	t.Cleanup(s.server.Close)
	return s
}

// URL returns the base URL of the fake store.
func (s *Store) URL() string {
	return s.server.URL
}

// Seed inserts a document and returns its assigned id.
func (s *Store) Seed(collection string, doc map[string]interface{}) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(collection, doc)
}

// Items returns the stored documents of a collection ordered by id.
func (s *Store) Items(collection string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(collection)
}

// Calls returns a copy of every request received so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts requests for a method and collection.
func (s *Store) CallCount(method, collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, call := range s.calls {
		if call.Method == method && call.Collection == collection {
			n++
		}
	}
	return n
}

// FailNext makes the next request for method+collection answer with status and a raw body.
func (s *Store) FailNext(method, collection string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + collection
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// SetListDelay slows every list response down, which keeps fetches in flight.
func (s *Store) SetListDelay(d time.Duration) {
	s.mu.Lock()
	s.listDelay = d
	s.mu.Unlock()
}

// IgnorePaging makes list return the whole collection regardless of skip/limit.
func (s *Store) IgnorePaging(ignore bool) {
	s.mu.Lock()
	s.ignorePages = ignore
	s.mu.Unlock()
}

func (s *Store) list(c *gin.Context) {
	collection := c.Param("collection")
	s.record(c, collection, 0, nil)
	if s.fail(c, http.MethodGet, collection) {
		return
	}

	s.mu.Lock()
	delay := s.listDelay
	items := s.sortedLocked(collection)
	ignore := s.ignorePages
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if !ignore {
		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if skip > len(items) {
			skip = len(items)
		}
		end := skip + limit
		if limit <= 0 || end > len(items) {
			end = len(items)
		}
		items = items[skip:end]
	}
	c.JSON(http.StatusOK, items)
}

func (s *Store) create(c *gin.Context) {
	collection := c.Param("collection")
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.record(c, collection, 0, nil)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"msg": err.Error()}}})
		return
	}
	s.record(c, collection, 0, body)
	if s.fail(c, http.MethodPost, collection) {
		return
	}

	doc := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		doc[k] = v
	}
	if collection == "teachers" {
		if _, ok := doc["active"]; !ok {
			doc["active"] = true
		}
	}
	s.mu.Lock()
	id := s.insertLocked(collection, doc)
	stored := s.docs[collection][id]
	s.mu.Unlock()

	c.JSON(http.StatusOK, stored)
}

func (s *Store) remove(c *gin.Context) {
	collection := c.Param("collection")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	s.record(c, collection, id, nil)
	if s.fail(c, http.MethodDelete, collection) {
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid id"})
		return
	}

	s.mu.Lock()
	_, ok := s.docs[collection][id]
	if ok {
		delete(s.docs[collection], id)
	}
	s.mu.Unlock()

	if !ok {
		label := singular[collection]
		if label == "" {
			label = "Item"
		}
		c.JSON(http.StatusNotFound, gin.H{"detail": label + " not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Store) record(c *gin.Context, collection string, id int64, body map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{
		Method:     c.Request.Method,
		Collection: collection,
		ID:         id,
		Body:       body,
		RequestID:  c.GetHeader("X-Request-ID"),
	})
}

func (s *Store) fail(c *gin.Context, method, collection string) bool {
	s.mu.Lock()
	key := method + " " + collection
	queue := s.failures[key]
	if len(queue) == 0 {
		s.mu.Unlock()
		return false
	}
	next := queue[0]
	s.failures[key] = queue[1:]
	s.mu.Unlock()

	contentType := "text/plain"
	if strings.HasPrefix(strings.TrimSpace(next.body), "{") {
		contentType = "application/json"
	}
	c.Data(next.status, contentType, []byte(next.body))
	return true
}

func (s *Store) insertLocked(collection string, doc map[string]interface{}) int64 {
	s.nextID++
	id := s.nextID
	stored := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored["id"] = id
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[int64]map[string]interface{})
	}
	s.docs[collection][id] = stored
	return id
}

func (s *Store) sortedLocked(collection string) []map[string]interface{} {
	ids := make([]int64, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.docs[collection][id])
	}
	return out
}
