package controllers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/flameberry/PrimePatrol/middleware"
	"github.com/flameberry/PrimePatrol/utils"
)

// ProxyController forwards gateway traffic to one upstream service.
type ProxyController struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

func NewProxyController(upstream string) (*ProxyController, error) {
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", upstream)
	}

	p := &ProxyController{target: target}
	base := httputil.NewSingleHostReverseProxy(target)
	director := base.Director
	base.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
		otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(r.Header))
	}
	base.ModifyResponse = func(resp *http.Response) error {
		utils.Logger.Debug("proxied",
			zap.String("method", resp.Request.Method),
			zap.String("path", resp.Request.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return nil
	}
	base.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		utils.Logger.Error("upstream request failed",
			zap.String("upstream", target.String()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":50201,"message":"upstream service unavailable"}`))
	}
	base.FlushInterval = 100 * time.Millisecond
	p.proxy = base
	return p, nil
}

// Forward relays the request, passing the authenticated user id along.
func (p *ProxyController) Forward(ctx *gin.Context) {
	ctx.Request.Header.Del("X-User-Id")
	if uid := ctx.GetString(middleware.ContextUserIDKey); uid != "" {
		ctx.Request.Header.Set("X-User-Id", uid)
	}
	p.proxy.ServeHTTP(ctx.Writer, ctx.Request)
}
