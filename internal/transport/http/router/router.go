package router

import (
	"go.uber.org/zap"

	"econet/internal/transport/http/handler"
	"econet/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
)

type Router struct {
	rout *gin.Engine
	h    *handler.Handler
	log  *zap.Logger
}

func NewRouter(h *handler.Handler, mode string, log *zap.Logger) *Router {
	switch mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	router := &Router{
		rout: gin.Default(),
		h:    h,
		log:  log.Named("router"),
	}
	router.setupRouter()

	return router
}

func (r *Router) setupRouter() {
	r.rout.Use(middleware.LoggingMiddleware(r.log))
	r.rout.Use(middleware.IdentityMiddleware())
	gr := r.rout.Group("")

	r.addReviews(gr)
	r.addRating(gr)
}

func (r *Router) addReviews(rg *gin.RouterGroup) {
	reviews := rg.Group("/reviews")

	reviews.GET("/get", r.h.GetReview)
	reviews.GET("/getByProduct", r.h.GetReviewsByProduct)
	reviews.GET("/getByUser", r.h.GetReviewsByUser)
	reviews.GET("/stats", r.h.GetStats)

	authed := reviews.Group("", middleware.RequireUser())
	authed.POST("/create", r.h.CreateReview)
	authed.POST("/update", r.h.UpdateReview)
	authed.POST("/delete", r.h.DeleteReview)
	authed.GET("/my", r.h.GetMyReviews)
	authed.GET("/canReview", r.h.CanReview)
}

func (r *Router) addRating(rg *gin.RouterGroup) {
	rating := rg.Group("/rating")

	rating.GET("/get", r.h.GetProductRating)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.rout
}

func (r *Router) Start(addr string) error {
	return r.rout.Run(addr)
}
