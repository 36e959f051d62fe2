package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/batchprint/internal/database"
	"github.com/mdouchement/batchprint/internal/document"
	"github.com/mdouchement/batchprint/internal/server/middlewares"
	"github.com/sirupsen/logrus"
)

// A Controller is an Inversion Of Control pattern used to init the server package.
type Controller struct {
	Version  string
	Registry database.Resolver
	Pipeline *document.Pipeline
	Logger   logrus.FieldLogger
}

// EchoEngine instantiates the web server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.BodyLimit("64M"))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	////////////
	// Router //
	////////////

	router := engine.Group("")

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})
	router.GET("/admin/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	//
	// print entry handlers, all tenant scoped
	//
	tenanted := router.Group("", middlewares.Tenant(ctrl.Registry))

	print := &print{
		pipeline: ctrl.Pipeline,
		logger:   ctrl.Logger,
	}
	tenanted.GET("/print/entries", print.List)
	tenanted.POST("/print/entries", print.Create)
	tenanted.GET("/print/entries/:id", print.Get)
	tenanted.PUT("/print/entries/:id", print.Update)
	tenanted.DELETE("/print/entries/:id", print.Delete)
	tenanted.POST("/print/mail", print.SaveMail)
	tenanted.POST("/print/batches", print.CreateBatch)

	return engine
}

// PrintRoutes prints the Echo engine exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentStorage(c echo.Context) database.Client {
	storage, ok := c.Get(middlewares.CurrentStorageContextKey).(database.Client)
	if ok {
		return storage
	}
	return nil
}
