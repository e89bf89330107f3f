package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nahomt/bookbridge/internal/handlers"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
)

type Deps struct {
	Guard                 *authmw.Guard
	AuthHandler           *handlers.AuthHandler
	UserHandler           *handlers.UserHandler
	BookHandler           *handlers.BookHandler
	CartHandler           *handlers.CartHandler
	OrderHandler          *handlers.OrderHandler
	OrderItemHandler      *handlers.OrderItemHandler
	DeliveryHandler       *handlers.DeliveryHandler
	PaymentHandler        *handlers.PaymentHandler
	ConfirmationHandler   *handlers.ConfirmationHandler
	ReviewHandler         *handlers.ReviewHandler
	RecommendationHandler *handlers.RecommendationHandler
	ImageHandler          *handlers.ImageHandler
	EmailHandler          *handlers.EmailHandler
	AffiliateHandler      *handlers.AffiliateHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	api.POST("/Auth", d.AuthHandler.Exchange)

	private := api.Group("", d.Guard.RequireLogin)

	private.GET("/Auth", d.AuthHandler.Me)

	private.GET("/Users/:id", d.UserHandler.GetUser)
	private.PATCH("/Users/:id", d.UserHandler.PatchUser)

	private.GET("/Books", d.BookHandler.GetBooks)
	private.GET("/Books/me", d.BookHandler.GetMyBooks)
	private.GET("/Books/search", d.BookHandler.SearchBooks)
	private.GET("/Books/lookup", d.BookHandler.LookupBooks)
	private.GET("/Books/:id", d.BookHandler.GetBook)
	private.POST("/Books", d.BookHandler.CreateBook)
	private.PUT("/Books/:id", d.BookHandler.PutBook)
	private.PATCH("/Books/:id", d.BookHandler.PatchBook)
	private.DELETE("/Books/:id", d.BookHandler.DeleteBook)

	private.GET("/CartItems", d.CartHandler.GetCart)
	private.GET("/CartItems/:id", d.CartHandler.GetCartItem)
	private.POST("/CartItems", d.CartHandler.AddToCart)
	private.PUT("/CartItems/:id", d.CartHandler.PutCartItem)
	private.DELETE("/CartItems/:id", d.CartHandler.DeleteCartItem)
	private.POST("/CartItems/Delete", d.CartHandler.BulkDelete)

	private.GET("/Orders", d.OrderHandler.GetOrders)
	private.POST("/Orders", d.OrderHandler.CreateOrder)

	private.GET("/OrderItems", d.OrderItemHandler.GetOrderItems)
	private.GET("/Deliveries", d.DeliveryHandler.GetDeliveries)

	private.POST("/Payments", d.PaymentHandler.CreatePayment)

	private.GET("/Confirmations", d.ConfirmationHandler.GetConfirmations)
	private.GET("/Confirmations/:id", d.ConfirmationHandler.GetConfirmation)
	private.POST("/Confirmations", d.ConfirmationHandler.CreateConfirmation)
	private.PATCH("/Confirmations/:id", d.ConfirmationHandler.PatchConfirmation)

	private.GET("/Reviews", d.ReviewHandler.GetReviews)
	private.GET("/Reviews/:id", d.ReviewHandler.GetReview)
	private.POST("/Reviews", d.ReviewHandler.CreateReview)
	private.PUT("/Reviews/:id", d.ReviewHandler.PutReview)
	private.DELETE("/Reviews/:id", d.ReviewHandler.DeleteReview)

	private.GET("/Recommendations", d.RecommendationHandler.GetRecommendations)
	private.GET("/Recommendations/similar", d.RecommendationHandler.Similar)
	private.GET("/Recommendations/:id", d.RecommendationHandler.GetRecommendation)
	private.POST("/Recommendations", d.RecommendationHandler.Generate)
	private.DELETE("/Recommendations/:id", d.RecommendationHandler.DeleteRecommendation)

	private.POST("/Images", d.ImageHandler.UploadImage)
	private.DELETE("/Images/:id", d.ImageHandler.DeleteImage)

	private.POST("/Email", d.EmailHandler.SendEmail)

	private.GET("/AffiliateDetails", d.AffiliateHandler.GetAffiliates)
	private.GET("/AffiliateDetails/:id", d.AffiliateHandler.GetAffiliate)
	private.POST("/AffiliateDetails", d.AffiliateHandler.CreateAffiliate)
	private.DELETE("/AffiliateDetails/:id", d.AffiliateHandler.DeleteAffiliate)
}
