package internal

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterResource registers one endpoint per CRUD operation under path:
//
//	GET    {path}/                    list
//	GET    {path}/:id/                detail
//	POST   {path}/create/             create
//	PUT    {path}/:id/update/         full update
//	PATCH  {path}/:id/partial_update/ partial update
//	DELETE {path}/:id/delete/         delete
func RegisterResource[T any](router gin.IRouter, db *gorm.DB, logger *zap.Logger, path string) *Router[T] {
	r := NewRouter[T](db, logger)

	group := router.Group(path)
	{
		group.GET("/", r.List)
		group.GET("/:id/", r.Get)
		group.POST("/create/", r.Create)
		group.PUT("/:id/update/", r.Update)
		group.PATCH("/:id/partial_update/", r.PartialUpdate)
		group.DELETE("/:id/delete/", r.Delete)
	}
	return r
}
