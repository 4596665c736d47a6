package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/inkwell-cms/inkwell/internal/common"
	"github.com/inkwell-cms/inkwell/internal/identityservice"
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			ip     = r.RemoteAddr
			method = r.Method
			proto  = r.Proto
			uri    = r.URL.RequestURI()
		)

		app.logger.Info("request from", slog.String("method", method), slog.String("uri", uri), slog.String("remote_addr", ip), slog.String("proto", proto))

		next.ServeHTTP(w, r)
	})
}

func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Authorization")

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			r = app.createUserContext(r, &identityservice.AnonymousUser)
			next.ServeHTTP(w, r)
			return
		}

		token := app.extractTokenFromHeader(authHeader)
		if token == "" {
			app.invalidAuthenticationTokenResponse(w, r)
			return
		}

		user, err := app.identityService.UserByToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, identityservice.ErrNotFound):
				app.invalidAuthenticationTokenResponse(w, r)
			case errors.As(err, &common.ValidationError{}):
				app.invalidAuthenticationTokenResponse(w, r)
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		r = app.createUserContext(r, user)
		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAuthUser(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := app.getUserContext(r)
		if user == nil || user.IsAnonymous() {
			app.invalidAuthenticationTokenResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAdminUser(next http.HandlerFunc) http.HandlerFunc {
	fn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := app.getUserContext(r)
		if !user.IsAdmin() {
			app.unAuthorizedErrorResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})

	return app.requireAuthUser(fn)
}

// feedLimiter hands out one token bucket per remote IP. Idle buckets are
// evicted after three minutes so the map cannot grow without bound.
type feedLimiter struct {
	mu      sync.Mutex
	clients map[string]*feedClient
	rps     rate.Limit
	burst   int
}

type feedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newFeedLimiter(rps float64, burst int) *feedLimiter {
	fl := &feedLimiter{
		clients: make(map[string]*feedClient),
		rps:     rate.Limit(rps),
		burst:   burst,
	}

	go fl.cleanup()

	return fl
}

func (fl *feedLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		fl.mu.Lock()
		for ip, c := range fl.clients {
			if time.Since(c.lastSeen) > 3*time.Minute {
				delete(fl.clients, ip)
			}
		}
		fl.mu.Unlock()
	}
}

func (fl *feedLimiter) allow(ip string) bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	c, ok := fl.clients[ip]
	if !ok {
		c = &feedClient{limiter: rate.NewLimiter(fl.rps, fl.burst)}
		fl.clients[ip] = c
	}
	c.lastSeen = time.Now()

	return c.limiter.Allow()
}

func (app *application) rateLimitFeed(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.Feed.RateLimitEnabled {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !app.feedLimiter.allow(ip) {
				app.rateLimitExceededResponse(w, r)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
