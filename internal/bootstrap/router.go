package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/aie-platform/innovation-backend/internal/api/http"
	appshttp "github.com/aie-platform/innovation-backend/internal/applications/http"
	appsvc "github.com/aie-platform/innovation-backend/internal/applications/service"
	"github.com/aie-platform/innovation-backend/internal/auth"
	authhttp "github.com/aie-platform/innovation-backend/internal/auth/http"
	"github.com/aie-platform/innovation-backend/internal/categories"
	"github.com/aie-platform/innovation-backend/internal/dashboard"
	usershttp "github.com/aie-platform/innovation-backend/internal/users/http"
	usersvc "github.com/aie-platform/innovation-backend/internal/users/service"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Sessions     *auth.SessionStore
	Applications *appsvc.Service
	Users        *usersvc.Service
	Categories   *categories.Repo
	Dashboard    *dashboard.Repo
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	authhttp.Register(api.Group("/auth"), dep.Users, dep.Sessions)
	categories.Register(api.Group("/categories"), dep.Categories)
	appshttp.Register(api.Group("/applications"), dep.Applications, dep.Sessions)
	appshttp.RegisterAttachments(api.Group("/attachments"), dep.Applications, dep.Sessions)
	usershttp.Register(api.Group("/experts"), dep.Users, dep.Sessions)
	dashboard.Register(api.Group("/dashboard"), dep.Dashboard, dep.Sessions)

	return r
}
