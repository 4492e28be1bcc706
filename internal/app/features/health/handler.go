package health

import (
	"context"
	"net/http"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/jsonutil"
	"github.com/advocacy-resources/advo-sub000/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check is one dependency probe. A failing Required check turns the whole
// response into a 503; an optional one only marks the service degraded.
type Check struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Checks []Check
	Log    *zap.Logger
}

// NewHandler constructs a health Handler probing Mongo (required) and, when
// rdb is non-nil, Redis (optional; only the geocode cache depends on it).
func NewHandler(client *mongo.Client, rdb redis.UniversalClient, logger *zap.Logger) *Handler {
	h := &Handler{Log: logger}
	if client != nil {
		h.Checks = append(h.Checks, Check{
			Name:     "database",
			Required: true,
			Ping:     func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		})
	}
	if rdb != nil {
		h.Checks = append(h.Checks, Check{
			Name: "cache",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return h
}

type healthResponse struct {
	Status string            `json:"status"` // ok | degraded | error
	Checks map[string]string `json:"checks"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "checks":{"database":"connected","cache":"connected"} }
//
// On a required failure: 503 and
//
//	{ "status":"error", "checks":{"database":"disconnected"}, "errors":{"database":"…"} }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK

	for _, c := range h.Checks {
		if err := c.Ping(ctx); err != nil {
			h.Log.Error("health-check: ping failed", zap.String("check", c.Name), zap.Error(err))
			resp.Checks[c.Name] = "disconnected"
			if resp.Errors == nil {
				resp.Errors = map[string]string{}
			}
			resp.Errors[c.Name] = err.Error()
			if c.Required {
				resp.Status = "error"
				code = http.StatusServiceUnavailable
			} else if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[c.Name] = "connected"
	}

	jsonutil.WriteJSON(w, code, resp)
}
