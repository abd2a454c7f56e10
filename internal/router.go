package internal

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"mymodels-api/meta"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router handles HTTP requests for a resource. Its handler methods back both
// the per-operation endpoints wired by RegisterResource and the
// method-dispatching endpoints wired by Register.
type Router[T any] struct {
	dao        *DAO[T]
	serializer *Serializer[T]
	logger     *zap.Logger
}

// NewRouter creates a new router for the given resource
func NewRouter[T any](db *gorm.DB, logger *zap.Logger) *Router[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router[T]{
		dao:        NewDAO[T](db),
		serializer: NewSerializer[T](),
		logger:     logger,
	}
}

// Register mounts the resource under path with one endpoint for the
// collection and one for a single object, dispatching on the HTTP method.
func (r *Router[T]) Register(router gin.IRouter, path string) {
	group := router.Group(path)
	{
		group.Any("/", dispatch(map[string]gin.HandlerFunc{
			http.MethodGet:  r.List,
			http.MethodPost: r.Create,
		}))
		group.Any("/:id/", dispatch(map[string]gin.HandlerFunc{
			http.MethodGet:    r.Get,
			http.MethodPut:    r.Update,
			http.MethodPatch:  r.PartialUpdate,
			http.MethodDelete: r.Delete,
		}))
	}
}

// dispatch routes a request to the handler for its method. HEAD follows GET
// and OPTIONS reports the allowed methods.
func dispatch(handlers map[string]gin.HandlerFunc) gin.HandlerFunc {
	if get, ok := handlers[http.MethodGet]; ok {
		handlers[http.MethodHead] = get
	}
	allowed := make([]string, 0, len(handlers)+1)
	for method := range handlers {
		allowed = append(allowed, method)
	}
	allowed = append(allowed, http.MethodOptions)
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return func(c *gin.Context) {
		if h, ok := handlers[c.Request.Method]; ok {
			h(c)
			return
		}
		c.Header("Allow", allow)
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusOK)
			return
		}
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"detail": fmt.Sprintf("Method %q not allowed.", c.Request.Method),
		})
	}
}

// List handles GET requests to list resources
func (r *Router[T]) List(c *gin.Context) {
	items, err := r.dao.List(c.Request.Context())
	if err != nil {
		r.fail(c, err)
		return
	}

	// Return empty list instead of null
	out := make([]any, 0, len(items))
	for i := range items {
		if s, ok := any(&items[i]).(meta.Summarizer); ok {
			out = append(out, s.Summary())
			continue
		}
		out = append(out, items[i])
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET requests to retrieve a resource by ID
func (r *Router[T]) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		r.fail(c, gorm.ErrRecordNotFound)
		return
	}
	resource, err := r.dao.Get(c.Request.Context(), id)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resource)
}

// Create handles POST requests to create a new resource
func (r *Router[T]) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		r.fail(c, &ParseError{Err: err})
		return
	}

	ctx := c.Request.Context()
	var resource T
	err = r.dao.Transaction(ctx, func(tx *DAO[T]) error {
		if err := r.serializer.Bind(ctx, tx, body, &resource); err != nil {
			return err
		}
		return tx.Create(ctx, &resource)
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resource)
}

// Update handles PUT requests. Fields missing from the payload are reset to
// their zero value.
func (r *Router[T]) Update(c *gin.Context) {
	r.update(c, false)
}

// PartialUpdate handles PATCH requests. Fields missing from the payload keep
// their stored value.
func (r *Router[T]) PartialUpdate(c *gin.Context) {
	r.update(c, true)
}

func (r *Router[T]) update(c *gin.Context, partial bool) {
	id, ok := parseID(c)
	if !ok {
		r.fail(c, gorm.ErrRecordNotFound)
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		r.fail(c, &ParseError{Err: err})
		return
	}

	ctx := c.Request.Context()
	var resource *T
	err = r.dao.Transaction(ctx, func(tx *DAO[T]) error {
		existing, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		resource = existing
		if !partial {
			resource = fresh(existing)
		}
		if err := r.serializer.Bind(ctx, tx, body, resource); err != nil {
			return err
		}
		return tx.Save(ctx, resource)
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resource)
}

// fresh returns a zero T carrying only the metadata of existing. Types
// without metadata are returned unchanged.
func fresh[T any](existing *T) *T {
	src, ok := any(existing).(meta.Object)
	if !ok {
		return existing
	}
	resource := new(T)
	if dst, ok := any(resource).(meta.Object); ok {
		*dst.GetObjectMeta() = *src.GetObjectMeta()
	}
	return resource
}

// Delete handles DELETE requests to delete a resource
func (r *Router[T]) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		r.fail(c, gorm.ErrRecordNotFound)
		return
	}
	ctx := c.Request.Context()
	if err := r.dao.Transaction(ctx, func(tx *DAO[T]) error {
		return tx.Delete(ctx, id)
	}); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// fail maps err to a response. Anything not recognized is logged and
// reported as a 500 without details.
func (r *Router[T]) fail(c *gin.Context, err error) {
	var fieldErrs FieldErrors
	var parseErr *ParseError
	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, fieldErrs)
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": parseErr.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "A record with these values already exists."})
	default:
		r.logger.Error("request failed",
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
	}
}
