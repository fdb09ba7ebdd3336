package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/freshroute-backend/api/controllers"
	"github.com/angelmondragon/freshroute-backend/api/middleware"
	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/internal/products"
	"github.com/angelmondragon/freshroute-backend/internal/quotes"
	"github.com/angelmondragon/freshroute-backend/internal/stock"
	"github.com/angelmondragon/freshroute-backend/internal/transfers"
	"github.com/angelmondragon/freshroute-backend/internal/trips"
	"github.com/angelmondragon/freshroute-backend/internal/trucks"
	"github.com/angelmondragon/freshroute-backend/internal/warehouses"
	"github.com/angelmondragon/freshroute-backend/pkg/config"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/freshroute-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idempotency pkgredis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	productService products.Service,
	warehouseService warehouses.Service,
	truckService trucks.Service,
	quoteService quotes.Service,
	stockService stock.Service,
	orderService orders.Service,
	transferService transfers.Service,
	tripService trips.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotency, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(productService, logg))
		})

		r.Route("/warehouses", func(r chi.Router) {
			r.Post("/", controllers.CreateWarehouse(warehouseService, logg))
			r.Get("/", controllers.ListWarehouses(warehouseService, logg))
			r.Get("/{warehouseId}", controllers.GetWarehouse(warehouseService, logg))
			r.Patch("/{warehouseId}", controllers.UpdateWarehouse(warehouseService, logg))
			r.Get("/{warehouseId}/utilization", controllers.WarehouseUtilization(warehouseService, logg))
		})

		r.Route("/trucks", func(r chi.Router) {
			r.Post("/", controllers.CreateTruck(truckService, logg))
			r.Get("/", controllers.ListTrucks(truckService, logg))
			r.Get("/{truckId}", controllers.GetTruck(truckService, logg))
			r.Put("/{truckId}/location", controllers.UpdateTruckLocation(truckService, logg))
			r.Put("/{truckId}/driver", controllers.AssignTruckDriver(truckService, logg))
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Post("/", controllers.SubmitQuote(quoteService, logg))
			r.Get("/", controllers.ListQuotes(quoteService, logg))
			r.Get("/{quoteId}", controllers.GetQuote(quoteService, logg))
			r.Post("/{quoteId}/decision", controllers.DecideQuote(quoteService, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Post("/", controllers.RegisterStock(stockService, logg))
			r.Get("/", controllers.ListStock(stockService, logg))
			r.Get("/available", controllers.AvailableStock(stockService, logg))
			r.Get("/near-expiration", controllers.NearExpirationStock(stockService, logg))
			r.Get("/{recordId}", controllers.GetStock(stockService, logg))
			r.Patch("/{recordId}", controllers.UpdateStock(stockService, logg))
			r.Post("/{recordId}/donate", controllers.DonateStock(stockService, logg))
			r.Post("/{recordId}/discard", controllers.DiscardStock(stockService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(orderService, logg))
			r.Get("/", controllers.ListOrders(orderService, logg))
			r.Get("/{orderId}", controllers.GetOrder(orderService, logg))
			r.Post("/{orderId}/confirm", controllers.ConfirmOrder(orderService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(orderService, logg))
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", controllers.CreateTransfer(transferService, logg))
			r.Get("/", controllers.ListTransfers(transferService, logg))
			r.Get("/{transferId}", controllers.GetTransfer(transferService, logg))
			r.Post("/{transferId}/assign", controllers.AssignTransferTruck(transferService, logg))
			r.Post("/{transferId}/auto-assign", controllers.AutoAssignTransferTruck(transferService, logg))
			r.Post("/{transferId}/advance", controllers.AdvanceTransfer(transferService, logg))
			r.Post("/{transferId}/cancel", controllers.CancelTransfer(transferService, logg))
		})

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", controllers.CreateTrip(tripService, logg))
			r.Get("/", controllers.ListTrips(tripService, logg))
			r.Get("/{tripId}", controllers.GetTrip(tripService, logg))
			r.Post("/{tripId}/status", controllers.TransitionTrip(tripService, logg))
			r.Put("/{tripId}/location", controllers.UpdateTripLocation(tripService, logg))
		})
	})

	return r
}
