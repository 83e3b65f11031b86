// Package server exposes the adapter and its sandbox over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"venusadapter/native/adapter"
	"venusadapter/observability"
	adapterotel "venusadapter/observability/otel"
	"venusadapter/services/adapterd/api"
	"venusadapter/services/adapterd/receipts"
	"venusadapter/services/adapterd/sandbox"
)

const maxBodyBytes = 1 << 20

// Config captures the dependencies required to construct the server.
type Config struct {
	World     *sandbox.World
	Receipts  *receipts.Store
	Logger    *slog.Logger
	Metrics   *observability.AdapterMetrics
	Gatherer  prometheus.Gatherer
	Auth      AuthConfig
	RateLimit RateLimit
}

// Server serializes every state-changing request against the world: the
// adapter is not safe for concurrent use, and each operation is committed
// before the next one starts.
type Server struct {
	world    *sandbox.World
	receipts *receipts.Store
	logger   *slog.Logger
	metrics  *observability.AdapterMetrics
	gatherer prometheus.Gatherer
	auth     *Authenticator
	limiter  *RateLimiter
	hub      *Hub
	tracer   trace.Tracer

	mu     sync.Mutex
	router http.Handler
}

func New(cfg Config) (*Server, error) {
	if cfg.World == nil || cfg.Receipts == nil {
		return nil, errors.New("server: world and receipt store required")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.Secret) == "" {
		return nil, errors.New("server: auth enabled without a secret")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		world:    cfg.World,
		receipts: cfg.Receipts,
		logger:   logger,
		metrics:  cfg.Metrics,
		gatherer: cfg.Gatherer,
		auth:     NewAuthenticator(cfg.Auth, logger),
		limiter:  NewRateLimiter(cfg.RateLimit),
		hub:      NewHub(),
		tracer:   adapterotel.Tracer("venusadapter/adapterd"),
	}
	s.auth.onDeny = s.metrics.RecordThrottle
	s.limiter.onReject = s.metrics.RecordThrottle
	s.world.OnCommit(s.metrics.ObserveCommit)
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the receipt fan-out used by /v1/stream.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close ends open streams. The world and receipt store belong to the caller.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)

		v1.Get("/config", s.handleConfig)
		v1.Get("/markets", s.handleMarkets)
		v1.Get("/accounts/{address}", s.handleAccount)
		v1.Get("/accounts/{address}/receipts", s.handleAccountReceipts)
		v1.Get("/receipts/{id}", s.handleReceipt)
		v1.Get("/stream", s.handleStream)

		v1.Group(func(ops chi.Router) {
			ops.Use(s.auth.Middleware(api.ScopeWrite))
			ops.Post("/supply", s.handleSupply)
			ops.Post("/supply-native", s.handleSupplyNative)
			ops.Post("/withdraw", s.handleWithdraw)
			ops.Post("/repay", s.handleRepay)
			ops.Post("/repay-native", s.handleRepayNative)
			ops.Post("/repay-and-withdraw", s.handleRepayAndWithdraw)
		})

		v1.Route("/sandbox", func(sb chi.Router) {
			sb.Use(s.auth.Middleware(api.ScopeAdmin))
			sb.Post("/approve", s.handleApprove)
			sb.Post("/enter-markets", s.handleEnterMarkets)
			sb.Post("/borrow", s.handleBorrow)
			sb.Post("/mine", s.handleMine)
		})
	})

	return otelhttp.NewHandler(r, "adapterd")
}

// observe records the status written for each matched route pattern. The
// wrapped writer keeps http.Hijacker so websocket upgrades still work.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequest(route, status)
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := s.world.Config()
	s.mu.Lock()
	block := s.world.Ledger().BlockNumber()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.ConfigResponse{
		Address:      common.HexToAddress(cfg.Adapter.Address),
		Comptroller:  common.HexToAddress(cfg.Adapter.Comptroller),
		NativeMarket: s.world.NativeMarket(),
		NativeSymbol: cfg.Adapter.NativeSymbol,
		Block:        block,
		AuthEnabled:  s.auth.Enabled(),
	})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	markets, err := s.world.Markets(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.mu.Lock()
	view := s.world.Account(addr)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAccountReceipts(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			s.writeErr(w, fmt.Errorf("%w: limit: %v", errBadRequest, err))
			return
		}
	}
	records, err := s.receipts.ListByCaller(r.Context(), addr.Hex(), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	record, err := s.receipts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	receipt, err := record.Receipt()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.OperationResponse{ID: record.ID, Digest: record.Digest, Receipt: receipt})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	var req api.SupplyRequest
	caller, market, err := s.prepare(r, &req, &req.Caller, &req.Market)
	if err != nil {
		s.fail(w, adapter.OpSupply, err)
		return
	}
	s.runOperation(w, r, adapter.OpSupply, caller, func(ctx context.Context, a *adapter.Adapter) (*adapter.Receipt, error) {
		return a.Supply(ctx, adapter.Call{Caller: caller}, market, req.Amount)
	}, attribute.String("market", market.Hex()), attribute.String("amount", req.Amount.String()))
}

func (s *Server) handleSupplyNative(w http.ResponseWriter, r *http.Request) {
	var req api.SupplyNativeRequest
	caller, _, err := s.prepare(r, &req, &req.Caller, nil)
	if err != nil {
		s.fail(w, adapter.OpSupplyNative, err)
		return
	}
	s.runOperation(w, r, adapter.OpSupplyNative, caller, func(ctx context.Context, a *adapter.Adapter) (*adapter.Receipt, error) {
		return a.SupplyNative(ctx, adapter.Call{Caller: caller, Value: req.Value})
	}, attribute.String("value", decString(req.Value)))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req api.WithdrawRequest
	caller, market, err := s.prepare(r, &req, &req.Caller, &req.Market)
	if err != nil {
		s.fail(w, adapter.OpWithdraw, err)
		return
	}
	s.runOperation(w, r, adapter.OpWithdraw, caller, func(ctx context.Context, a *adapter.Adapter) (*adapter.Receipt, error) {
		return a.Withdraw(ctx, adapter.Call{Caller: caller}, market, req.Amount)
	}, attribute.String("market", market.Hex()), attribute.String("amount", req.Amount.String()))
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req api.RepayRequest
	caller, market, err := s.prepare(r, &req, &req.Caller, &req.Market)
	if err != nil {
		s.fail(w, adapter.OpRepay, err)
		return
	}
	s.runOperation(w, r, adapter.OpRepay, caller, func(ctx context.Context, a *adapter.Adapter) (*adapter.Receipt, error) {
		return a.Repay(ctx, adapter.Call{Caller: caller, Value: req.Value}, market, req.Amount)
	}, attribute.String("market", market.Hex()), attribute.String("amount", req.Amount.String()))
}

func (s *Server) handleRepayNative(w http.ResponseWriter, r *http.Request) {
	var req api.RepayNativeRequest
	caller, _, err := s.prepare(r, &req, &req.Caller, nil)
	if err != nil {
		s.fail(w, adapter.OpRepayNative, err)
		return
	}
	s.runOperation(w, r, adapter.OpRepayNative, caller, func(ctx context.Context, a *adapter.Adapter) (*adapter.Receipt, error) {
		return a.RepayNative(ctx, adapter.Call{Caller: caller, Value: req.Value}, req.Amount)
	}, attribute.String("amount", req.Amount.String()), attribute.String("value", decString(req.Value)))
}

func (s *Server) handleRepayAndWithdraw(w http.ResponseWriter, r *http.Request) {
	var req api.RepayAndWithdrawRequest
	caller, repayMarket, err := s.prepare(r, &req, &req.Caller, &req.RepayMarket)
	if err != nil {
		s.fail(w, adapter.OpRepayAndWithdraw, err)
		return
	}
	withdrawMarket, err := s.world.ResolveMarket(req.WithdrawMarket)
	if err != nil {
		s.fail(w, adapter.OpRepayAndWithdraw, err)
		return
	}
	s.runOperation(w, r, adapter.OpRepayAndWithdraw, caller, func(ctx context.Context, a *adapter.Adapter) (*adapter.Receipt, error) {
		return a.RepayAndWithdraw(ctx, adapter.Call{Caller: caller, Value: req.Value}, repayMarket, req.RepayAmount, withdrawMarket, req.WithdrawAmount)
	},
		attribute.String("repay_market", repayMarket.Hex()),
		attribute.String("withdraw_market", withdrawMarket.Hex()),
	)
}

// prepare decodes the body into req, settles the caller and, when market is
// non-nil, resolves the market reference it points at.
func (s *Server) prepare(r *http.Request, req any, caller *common.Address, market *string) (common.Address, common.Address, error) {
	if err := decode(r, req); err != nil {
		return common.Address{}, common.Address{}, err
	}
	who, err := s.resolveCaller(r, *caller)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if market == nil {
		return who, common.Address{}, nil
	}
	addr, err := s.world.ResolveMarket(*market)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return who, addr, nil
}

// runOperation executes one adapter call under the world lock, commits it,
// stores the receipt and publishes it to stream subscribers.
func (s *Server) runOperation(w http.ResponseWriter, r *http.Request, op string, caller common.Address, fn func(context.Context, *adapter.Adapter) (*adapter.Receipt, error), attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String("operation", op), attribute.String("caller", caller.Hex()))
	ctx, span := s.tracer.Start(r.Context(), "adapter."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	var receipt *adapter.Receipt
	s.mu.Lock()
	err := s.world.Apply(func() error {
		var err error
		receipt, err = fn(ctx, s.world.Adapter())
		return err
	})
	s.mu.Unlock()
	if err != nil {
		_, code := classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.fail(w, op, err)
		s.metrics.ObserveOperation(op, code, false, time.Since(start))
		return
	}

	resp := api.OperationResponse{Receipt: receipt}
	record, err := s.receipts.Save(ctx, receipt)
	if err != nil {
		// The ledger is already committed; the caller still gets the receipt.
		s.logger.Error("receipt not stored", "operation", op, "caller", caller.Hex(), "error", err)
		resp.Digest, _ = receipts.Digest(receipt.Events)
	} else {
		resp.ID, resp.Digest = record.ID, record.Digest
	}
	s.hub.Publish(api.StreamMessage(resp))

	refunded := receipt.Refunded != nil && !receipt.Refunded.IsZero()
	s.metrics.ObserveOperation(op, "", refunded, time.Since(start))
	span.SetAttributes(attribute.Int64("block", int64(receipt.Block)), attribute.String("receipt_id", resp.ID))
	s.logger.Info("operation applied",
		"operation", op,
		"caller", caller.Hex(),
		"value", decString(receipt.Value),
		"block", receipt.Block,
		"receipt", resp.ID)
	writeJSON(w, http.StatusOK, resp)
}

// fail logs and writes an operation error. 5xx other than pauses are logged
// at error level.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("operation failed", "operation", op, "error", err)
	} else {
		s.logger.Info("operation rejected", "operation", op, "reason", code, "error", err)
	}
	writeError(w, status, err.Error(), code)
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error(), code)
}

// resolveCaller reconciles the body's caller with the token subject. With
// authentication on, an empty body caller defaults to the subject and a
// different one is refused.
func (s *Server) resolveCaller(r *http.Request, body common.Address) (common.Address, error) {
	p, ok := principalFrom(r.Context())
	if !ok {
		if body == (common.Address{}) {
			return common.Address{}, errMissingCaller
		}
		return body, nil
	}
	if body == (common.Address{}) {
		return p.caller, nil
	}
	if body != p.caller {
		return common.Address{}, fmt.Errorf("%w: %s", errForbidden, body.Hex())
	}
	return body, nil
}

// actingFor is resolveCaller for sandbox administration, where the admin may
// act on behalf of any account.
func (s *Server) actingFor(r *http.Request, body common.Address) (common.Address, error) {
	if body != (common.Address{}) {
		return body, nil
	}
	if p, ok := principalFrom(r.Context()); ok {
		return p.caller, nil
	}
	return common.Address{}, errMissingCaller
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, adapter.ErrInvalidAmount) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathAddress(r *http.Request) (common.Address, error) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", errBadRequest, raw)
	}
	return common.HexToAddress(raw), nil
}

func decString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
