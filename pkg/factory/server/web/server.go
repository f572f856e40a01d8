package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
	"github.com/solana-token-factory/factory/pkg/factory/promo"
	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/rate"
)

const (
	apiPathPrefix       = "/api"
	TokensPath          = apiPathPrefix + "/tokens"
	TokensCountPath     = TokensPath + "/count"
	PromoCodesPath      = apiPathPrefix + "/promoCodes"
	UsePromoCodePath    = PromoCodesPath + "/use"
	tokenSavedEventName = "TokenRecordSaved"
)

var (
	errDatabase = errors.New("database error")

	errInvalidPromoCode = errors.New("Invalid promo code")
	errPromoExpired     = errors.New("Promo code has expired")
	errPromoExhausted   = errors.New("Promo code has reached maximum uses")
)

// Server is the HTTP storage API for created tokens and promo codes
type Server struct {
	log     *logrus.Entry
	conf    *conf
	tokens  tokendata.Store
	promos  promodata.Store
	limiter rate.Limiter
	nr      *newrelic.Application
	now     func() time.Time
}

func NewServer(tokens tokendata.Store, promos promodata.Store, nr *newrelic.Application, configProvider ConfigProvider) *Server {
	conf := configProvider()
	ctx := context.Background()

	return &Server{
		log:     logrus.StandardLogger().WithField("type", "server/web"),
		conf:    conf,
		tokens:  tokens,
		promos:  promos,
		limiter: rate.NewWindowRateLimiter(int(conf.rateLimitMaxRequests.Get(ctx)), conf.rateLimitWindow.Get(ctx)),
		nr:      nr,
		now:     time.Now,
	}
}

// Handler returns the router serving every storage API route
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.NewRelicMiddleware(s.nr))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.conf.allowedOrigin.Get(context.Background())},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(rateLimitMiddleware(s.log, s.limiter))

	r.MethodNotAllowed(s.methodNotAllowedHandler)
	r.NotFound(s.notFoundHandler)

	r.Get(TokensPath, s.getTokensHandler(TokensPath))
	r.Post(TokensPath, s.saveTokenHandler(TokensPath))
	r.Get(TokensCountPath, s.getTokenCountHandler(TokensCountPath))
	r.Get(PromoCodesPath, s.getPromoCodesHandler(PromoCodesPath))
	r.Post(UsePromoCodePath, s.usePromoCodeHandler(UsePromoCodePath))

	return r
}

func (s *Server) getTokensHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			limit := parseTokenLimit(r)

			records, err := s.tokens.GetRecent(ctx, limit)
			if err != nil {
				log.WithError(err).Warn("failure getting recent tokens")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errDatabase)
			}

			views := make([]*tokenView, 0, len(records))
			for _, record := range records {
				view, ok := newTokenView(record)
				if !ok {
					log.WithField("mint", record.MintAddress).Debug("skipping malformed token record")
					continue
				}
				views = append(views, view)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["tokens"] = views
			respBody["count"] = len(views)
			return http.StatusOK, respBody
		}()

		if err := writeResponse(w, statusCode, body); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) getTokenCountHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			count, err := s.tokens.Count(r.Context())
			if err != nil {
				log.WithError(err).Warn("failure counting tokens")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errDatabase)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["count"] = count
			return http.StatusOK, respBody
		}()

		if err := writeResponse(w, statusCode, body); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) saveTokenHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			req, err := newSaveTokenRequestFromHttpContext(r, s.conf.maxRequestBodySize.Get(ctx))
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			record := req.toRecord(s.now())
			log = log.WithField("mint", record.MintAddress)

			if err := s.tokens.Save(ctx, record); err != nil {
				log.WithError(err).Warn("failure saving token")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errDatabase)
			}

			metrics.RecordEvent(ctx, tokenSavedEventName, map[string]interface{}{
				"mint":    record.MintAddress,
				"symbol":  record.Symbol,
				"creator": record.CreatorWallet,
			})

			respBody := NewGenericApiSuccessResponseBody()
			respBody[messageJsonKey] = "Token saved successfully"
			respBody["mintAddress"] = record.MintAddress
			return http.StatusOK, respBody
		}()

		if err := writeResponse(w, statusCode, body); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) getPromoCodesHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()
			now := s.now()

			var records []*promodata.Record
			if code := promo.Normalize(r.URL.Query().Get("code")); len(code) > 0 {
				record, err := s.promos.Get(ctx, code)
				if errors.Is(err, promodata.ErrPromoNotFound) || (err == nil && !record.IsUsable(now)) {
					return http.StatusOK, NewGenericApiMessageResponseBody("Invalid or expired promo code")
				} else if err != nil {
					log.WithError(err).Warn("failure getting promo code")
					return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errDatabase)
				}
				records = append(records, record)
			} else {
				var err error
				records, err = s.promos.GetAllUsable(ctx, now)
				if err != nil {
					log.WithError(err).Warn("failure getting promo codes")
					return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errDatabase)
				}
			}

			views := make([]*promoCodeView, len(records))
			for i, record := range records {
				views[i] = newPromoCodeView(record)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["promoCodes"] = views
			respBody["count"] = len(views)
			return http.StatusOK, respBody
		}()

		if err := writeResponse(w, statusCode, body); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) usePromoCodeHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			req, err := newUsePromoCodeRequestFromHttpContext(r, s.conf.maxRequestBodySize.Get(ctx))
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			code := promo.Normalize(req.Code)
			log = log.WithField("code", code)

			record, err := s.promos.IncrementUses(ctx, code, s.now())
			switch {
			case err == nil:
			case errors.Is(err, promodata.ErrPromoNotFound), errors.Is(err, promodata.ErrPromoInactive):
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errInvalidPromoCode)
			case errors.Is(err, promodata.ErrPromoExpired):
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errPromoExpired)
			case errors.Is(err, promodata.ErrPromoMaxUsesReached):
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errPromoExhausted)
			default:
				log.WithError(err).Warn("failure recording promo code use")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errDatabase)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody[messageJsonKey] = "Promo code usage recorded"
			respBody["code"] = record.Code
			respBody["remainingUses"] = record.RemainingUses()
			return http.StatusOK, respBody
		}()

		if err := writeResponse(w, statusCode, body); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	if err := writeResponse(w, http.StatusMethodNotAllowed, NewGenericApiFailureResponseBody(errors.Errorf("%s requests are not allowed", r.Method))); err != nil {
		s.log.WithError(err).Info("failed to write body")
	}
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	if err := writeResponse(w, http.StatusNotFound, NewGenericApiFailureResponseBody(errors.New("not found"))); err != nil {
		s.log.WithError(err).Info("failed to write body")
	}
}
