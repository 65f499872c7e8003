package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/raffle-service/api"
	"github.com/psds-microservice/raffle-service/internal/handler"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func New(ticketHandler *handler.TicketHandler, raffleHandler *handler.RaffleHandler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", handler.Health)
	r.GET("/ready", handler.Ready)
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/") })
	r.GET("/swagger/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = "/swagger/index.html"
			c.Request.RequestURI = "/swagger/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/tickets", ticketHandler.Reserve)
		v1.PATCH("/tickets/:id/pay", ticketHandler.MarkPaid)
		v1.GET("/tickets/occupied/:raffleId", ticketHandler.Occupied)
		v1.GET("/tickets/raffle/:raffleId", ticketHandler.ListByRaffle)
		v1.GET("/tickets/search/:phone", ticketHandler.SearchByPhone)
		v1.GET("/tickets/analytics/daily", ticketHandler.DailySales)

		v1.POST("/raffles", raffleHandler.Create)
		v1.GET("/raffles", raffleHandler.List)
		v1.GET("/raffles/:id", raffleHandler.Get)
		v1.DELETE("/raffles/:id", raffleHandler.Delete)
	}

	return r
}
