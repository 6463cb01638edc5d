package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/auth"
	"tchatsouvenir/bookshop/internal/bookgen"
	"tchatsouvenir/bookshop/internal/service"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth          *service.AuthService
	Cart          *service.CartService
	Orders        *service.OrderService
	Payments      *service.PaymentService
	Books         *service.BookService
	Printers      *service.PrinterService
	Notifications *service.NotificationService
	Stats         *service.StatsService
}

type Options struct {
	Logger        *zap.Logger
	Issuer        *auth.Issuer
	Runner        *bookgen.Runner
	Generator     *bookgen.Generator
	Store         *bookgen.Store
	MaxUploadSize int64
	MaxArchive    int64
}

type Handler struct {
	router *chi.Mux
	svc    Services
	opts   Options
	logger *zap.Logger
}

func NewHandler(svc Services, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 50 << 20
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(requestLogger(opts.Logger))
	router.Use(middleware.Recoverer)

	h := &Handler{
		router: router,
		svc:    svc,
		opts:   opts,
		logger: opts.Logger,
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	authn := h.opts.Issuer.Middleware
	admin := chi.Chain(authn, auth.RequireAdmin)

	h.router.Get("/preview/{file}", h.Preview)

	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
			r.Get("/verify", h.Verify)
			r.With(authn).Put("/update-password", h.UpdatePassword)
			r.With(authn).Put("/update-profile", h.UpdateProfile)
		})

		r.Post("/messages/extract", h.ExtractMessages)
		r.Get("/media/{id}/{file}", h.Media)

		r.Route("/books", func(r chi.Router) {
			r.Post("/create", h.CreateDesign)
			r.Get("/status/{id}", h.DesignStatus)
			r.Put("/{id}/cancel", h.CancelDesign)
			r.Post("/generate", h.GenerateBook)
			r.Get("/download/{id}", h.DownloadBook)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/", h.ListBooks)
				r.Post("/", h.CreateBook)
				r.Get("/{id}", h.GetBook)
				r.Put("/{id}", h.UpdateBook)
				r.Delete("/{id}", h.DeleteBook)
				r.Post("/{id}/restore", h.RestoreBook)
				r.Post("/{id}/mark-downloaded", h.MarkDownloaded)
			})
			r.Group(func(r chi.Router) {
				r.Use(admin...)
				r.Get("/deleted", h.DeletedBooks)
				r.Get("/stats/margins", h.MarginStats)
				r.Post("/{id}/assign-printer/{printerID}", h.AssignPrinter)
				r.Delete("/{id}/permanent", h.PermanentDeleteBook)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", h.Cart)
			r.Get("/summary", h.CartSummary)
			r.Post("/add", h.AddToCart)
			r.Delete("/clear", h.ClearCart)
			r.Put("/{id}", h.UpdateCartItem)
			r.Delete("/{id}", h.RemoveCartItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authn)
			r.Post("/", h.CreateOrder)
			r.Post("/checkout", h.Checkout)
			r.Get("/mine", h.MyOrders)
			r.Get("/reference/{ref}", h.OrderByReference)
			r.Get("/{id}", h.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/", h.ListOrders)
				r.Get("/stats", h.OrderStats)
				r.Put("/{id}", h.UpdateOrder)
				r.Patch("/{id}/status", h.UpdateOrderStatus)
				r.Delete("/{id}", h.DeleteOrder)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/status/{txID}", h.PaymentStatus)
			r.Post("/callback", h.PaymentCallback)
			r.With(authn).Post("/initiate", h.InitiatePayment)
			r.With(authn).Get("/history", h.PaymentHistory)
		})

		r.Route("/printers", func(r chi.Router) {
			r.Use(admin...)
			r.Get("/", h.ListPrinters)
			r.Post("/", h.CreatePrinter)
			r.Post("/notify", h.NotifyPrinter)
			r.Get("/{id}", h.GetPrinter)
			r.Put("/{id}", h.UpdatePrinter)
			r.Delete("/{id}", h.DeletePrinter)
			r.Get("/{id}/orders", h.PrinterOrders)
			r.Get("/{id}/total-cost", h.PrinterTotalCost)
		})

		r.With(authn).Get("/notifications", h.MyNotifications)
		r.With(admin...).Get("/admin/dashboard", h.Dashboard)
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
