package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/app"
	iauth "github.com/charlesng35/inkhub/internal/auth"
	"github.com/charlesng35/inkhub/internal/handlers"
	"github.com/charlesng35/inkhub/internal/middleware"
	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/internal/slug"
)

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	svc, err := buildServices(db, cfg)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, db)
	registerMetricsRoutes(r, cfg.Monitoring.Prometheus)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt, svc.users))

	registerMeRoutes(api, handlers.NewMeHandler(svc.users, svc.checker, svc.memberships))
	registerGroupRoutes(api, handlers.NewGroupHandler(svc.groups))
	registerWorkRoutes(api, handlers.NewWorkHandler(svc.works, svc.claims), handlers.NewChapterHandler(svc.chapters))
	registerAuthorRoutes(api, handlers.NewAuthorHandler(svc.authors))
	registerRoleRoutes(api, handlers.NewRoleHandler(svc.roles), svc.checker)
	registerActivityRoutes(api, handlers.NewActivityHandler(svc.activity), svc.checker)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

type serviceSet struct {
	checker     *permissions.Checker
	activity    *services.ActivityService
	users       *services.UserService
	memberships *services.MembershipService
	claims      *services.ClaimService
	groups      *services.GroupService
	works       *services.WorkService
	chapters    *services.ChapterService
	authors     *services.AuthorService
	roles       *services.RoleService
}

func buildServices(db *gorm.DB, cfg *app.Config) (*serviceSet, error) {
	var (
		set serviceSet
		err error
	)

	if set.checker, err = permissions.NewChecker(db); err != nil {
		return nil, err
	}
	if set.activity, err = services.NewActivityService(db); err != nil {
		return nil, err
	}
	if set.users, err = services.NewUserService(db, set.activity); err != nil {
		return nil, err
	}
	if set.memberships, err = services.NewMembershipService(db); err != nil {
		return nil, err
	}
	if set.claims, err = services.NewClaimService(db, set.checker, set.activity); err != nil {
		return nil, err
	}

	slugs := slug.NewAllocator(cfg.Content.SlugAllocatorConfig())

	if set.groups, err = services.NewGroupService(db, set.checker, set.activity, slugs); err != nil {
		return nil, err
	}
	if set.works, err = services.NewWorkService(db, set.checker, set.claims, set.activity, slugs); err != nil {
		return nil, err
	}
	if set.chapters, err = services.NewChapterService(db, set.claims, set.activity); err != nil {
		return nil, err
	}
	if set.authors, err = services.NewAuthorService(db, set.checker, set.activity, slugs); err != nil {
		return nil, err
	}
	if set.roles, err = services.NewRoleService(db, set.activity); err != nil {
		return nil, err
	}
	return &set, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg app.PrometheusConfig) {
	if !cfg.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
