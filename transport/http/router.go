package http

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/burner/service"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// RouterConfig wires the services behind the router
type RouterConfig struct {
	Shell         *service.ShellService
	Burners       *service.BurnerService
	VRF           *service.VRFService
	Sessions      *service.SessionService
	SecureCookies bool
	Logger        logrus.FieldLogger
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))
	router.SetHTMLTemplate(templates)

	handlers := NewHandlers(cfg.Shell, cfg.Burners, cfg.VRF, cfg.Logger)

	router.Use(SessionMiddleware(cfg.Sessions, cfg.SecureCookies, cfg.Logger))

	router.GET("/", handlers.Page)

	api := router.Group("/api")
	{
		api.GET("/state", handlers.State)
		api.GET("/accounts", handlers.ListAccounts)
		api.POST("/accounts", handlers.CreateAccount)
		api.POST("/accounts/select", handlers.SelectAccount)
		api.POST("/accounts/clear", handlers.ClearAccounts)
		api.POST("/random", handlers.Generate)
	}

	return router
}
