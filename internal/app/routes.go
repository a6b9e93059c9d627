package app

import (
	"net/http"

	"github.com/prelink-app/identity/internal/handler"
	"github.com/prelink-app/identity/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)
	verificationHandler := handler.NewVerificationHandler(&handler.VerificationHandler{
		Engine:           app.Engine,
		VerificationRepo: app.DB.Verification(),
		Cache:            app.Cache,
		Uploader:         app.FileUploader,
		ErrHandler:       app.errorHandler,
		Helper:           app.helper,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /identity/verifications", middlewareRepo.RequireAuthenticatedUser(verificationHandler.HandleSubmitVerification))
	mux.HandleFunc("GET /identity/verifications/status", middlewareRepo.RequireAuthenticatedUser(verificationHandler.HandleVerificationStatus))
	mux.HandleFunc("GET /identity/verifications/history", middlewareRepo.RequireAuthenticatedUser(verificationHandler.HandleVerificationHistory))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
