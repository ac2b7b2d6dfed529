package main

import (
	"context"
	"net/http"
	"time"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"galleryBack/internal/delivery"
	"galleryBack/internal/limiter"
)

func (app *application) routes() (http.Handler, error) {
	standardMiddleware := alice.New(app.recoverPanic, requestID, app.logRequest, secureHeaders)
	deliveryMiddleware := standardMiddleware
	if app.limiter != nil {
		deliveryMiddleware = deliveryMiddleware.Append(limiter.Middleware(app.limiter, app.logger(), app.retryAfter))
	}

	mux := pat.New()

	mux.Get("/healthz", standardMiddleware.ThenFunc(app.healthz))

	// Delivery pricing
	if err := delivery.RegisterDeliveryRoutes(mux, deliveryMiddleware, app.deliveryDeps); err != nil {
		return nil, err
	}

	return mux, nil
}

func (app *application) healthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	code := http.StatusOK
	if app.rdb != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			resp["status"] = "degraded"
			resp["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp["redis"] = "ok"
		}
	}
	writeJSON(w, code, resp)
}
