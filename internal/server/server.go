package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/config"
	"github.com/asksenior/backend/internal/database"
	"github.com/asksenior/backend/internal/handlers"
	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/middleware"
	"github.com/asksenior/backend/internal/repository"
	"github.com/asksenior/backend/internal/service"
	"github.com/asksenior/backend/internal/storage"
)

type Server struct {
	cfg      *config.Config
	db       database.Service
	handler  *handlers.Handler
	verifier middleware.TokenVerifier
}

// New wires the services over db and store.
func New(cfg *config.Config, db database.Service, store storage.ObjectStore, verifier middleware.TokenVerifier) *Server {
	svc := service.New(repository.New(db.GetDB()), store)
	return &Server{
		cfg:      cfg,
		db:       db,
		handler:  handlers.NewHandler(svc),
		verifier: verifier,
	}
}

// NewServer creates and configures a new server
func NewServer(cfg *config.Config, db database.Service, store storage.ObjectStore, verifier middleware.TokenVerifier) *http.Server {
	s := New(cfg, db, store, verifier)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}

	logger.L.Info("server configured", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.PrometheusMiddleware())

	// CORS configuration
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := s.cfg.Origins(); len(origins) > 0 {
		corsCfg.AllowOrigins = origins
	} else {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	}
	r.Use(cors.New(corsCfg))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health(c.Request.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// Public reads; a valid token adds the caller's own votes and memberships.
	public := api.Group("")
	public.Use(middleware.OptionalAuth(s.verifier))
	{
		public.GET("/topics", s.handler.Topic.GetTopics)
		public.GET("/topics/tree", s.handler.Topic.GetTopicTree)

		public.GET("/posts", s.handler.Post.GetPosts)
		public.GET("/posts/:id", s.handler.Post.GetPost)
		public.GET("/posts/:id/comments", s.handler.Comment.GetPostComments)
		public.GET("/posts/:id/comments/thread", s.handler.Comment.GetThread)
		public.GET("/comments", s.handler.Comment.GetComments)

		public.GET("/users/:id", s.handler.User.GetUser)
		public.GET("/users/:id/votes", s.handler.User.GetUserVotes)

		public.GET("/communities", s.handler.Community.GetCommunities)
		public.GET("/communities/search", s.handler.Community.SearchCommunities)
		public.GET("/communities/:id", s.handler.Community.GetCommunity)
	}

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(s.verifier))
	{
		protected.GET("/me", s.handler.Auth.GetMe)

		protected.POST("/users/profile", s.handler.User.CreateProfile)
		protected.PUT("/users/me", s.handler.User.UpdateProfile)

		protected.POST("/topics", s.handler.Topic.CreateTopic)

		protected.POST("/posts", s.handler.Post.CreatePost)
		protected.PUT("/posts/:id", s.handler.Post.UpdatePost)
		protected.DELETE("/posts/:id", s.handler.Post.DeletePost)

		protected.POST("/comments", s.handler.Comment.CreateComment)
		protected.PUT("/comments/:id", s.handler.Comment.UpdateComment)
		protected.DELETE("/comments/:id", s.handler.Comment.DeleteComment)

		protected.POST("/votes", s.handler.Vote.Vote)
		protected.DELETE("/votes/:id", s.handler.Vote.DeleteVote)

		protected.POST("/communities", s.handler.Community.CreateCommunity)
		protected.PUT("/communities/:id", s.handler.Community.UpdateCommunity)
		protected.POST("/communities/:id/join", s.handler.Community.JoinCommunity)
		protected.DELETE("/communities/:id/leave", s.handler.Community.LeaveCommunity)
		protected.GET("/communities/:id/members", s.handler.Community.GetMembers)
		protected.DELETE("/communities/:id/members/:userId", s.handler.Community.KickMember)
		protected.POST("/communities/:id/ban", s.handler.Community.BanCommunity)
		protected.DELETE("/communities/:id/ban", s.handler.Community.UnbanCommunity)

		protected.GET("/bans", s.handler.Moderation.ListBans)
		protected.POST("/bans/:kind/:id", s.handler.Moderation.Ban)
		protected.DELETE("/bans/:kind/:id", s.handler.Moderation.Unban)
	}

	return r
}
