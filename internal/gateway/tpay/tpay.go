package tpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/gateway/domain"
	"github.com/smallbiznis/ridepay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	resultSuccess = "0000"
	maxBodyBytes  = 1 << 20
)

// refundSuccessCodes are the cancel results treated as accepted.
var refundSuccessCodes = map[string]struct{}{
	"0000": {},
	"2001": {},
	"2013": {},
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Metrics   *metrics.Metrics `optional:"true"`
	Log       *zap.Logger
}

// Provider talks to the tpay billing API with form-encoded posts.
type Provider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(p Params) *Provider {
	cfg := p.Config.Gateway
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	provider := &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		metrics: p.Metrics,
		log:     p.Log.Named("gateway.tpay"),
	}

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				provider.client.CloseIdleConnections()
				return nil
			},
		})
	}
	return provider
}

type response struct {
	ResultCode string `json:"result_cd"`
	ResultMsg  string `json:"result_msg"`
	CardToken  string `json:"card_token"`
	CardName   string `json:"card_name"`
	CardNum    string `json:"card_num"`
	TID        string `json:"tid"`
}

func (p *Provider) GenerateBillingKey(ctx context.Context, creds domain.Credentials, card domain.CardDetails) (domain.BillingToken, error) {
	form := url.Values{}
	form.Set("mid", creds.Identity)
	form.Set("api_key", creds.SecretKey)
	form.Set("card_num", card.CardNumber)
	form.Set("card_exp", card.Expiry)
	form.Set("card_pwd", card.Password)
	form.Set("buyer_auth_num", card.Birthday)

	res, err := p.post(ctx, domain.OperationGenerate, form, isSuccess)
	if err != nil {
		return domain.BillingToken{}, err
	}
	return domain.BillingToken{
		Token:     res.CardToken,
		CardLabel: strings.TrimSpace(res.CardName + " " + res.CardNum),
	}, nil
}

func (p *Provider) PayWithToken(ctx context.Context, primary, sub domain.Credentials, req domain.ChargeRequest) (string, error) {
	form := url.Values{}
	form.Set("mid", primary.Identity)
	form.Set("api_key", primary.SecretKey)
	form.Set("sub_mid", sub.Identity)
	form.Set("sub_mid_key", sub.SecretKey)
	form.Set("goods_nm", req.ProductName)
	form.Set("card_token", req.Token)
	form.Set("amt", strconv.FormatInt(req.Amount, 10))
	form.Set("buyer_name", req.PayerName)
	form.Set("buyer_tel", req.PayerPhone)

	res, err := p.post(ctx, domain.OperationCharge, form, isSuccess)
	if err != nil {
		return "", err
	}
	return res.TID, nil
}

func (p *Provider) Cancel(ctx context.Context, creds domain.Credentials, req domain.RefundRequest) error {
	partial := "0"
	if req.Partial {
		partial = "1"
	}
	form := url.Values{}
	form.Set("mid", creds.Identity)
	form.Set("api_key", creds.SecretKey)
	form.Set("tid", req.TID)
	form.Set("cancel_amt", strconv.FormatInt(req.Amount, 10))
	form.Set("cancel_msg", req.Reason)
	form.Set("partial_cancel", partial)

	_, err := p.post(ctx, domain.OperationCancel, form, isRefundSuccess)
	return err
}

func (p *Provider) DeleteBillingKey(ctx context.Context, creds domain.Credentials, token string) error {
	form := url.Values{}
	form.Set("mid", creds.Identity)
	form.Set("api_key", creds.SecretKey)
	form.Set("card_token", token)

	_, err := p.post(ctx, domain.OperationDelete, form, isSuccess)
	return err
}

func (p *Provider) post(ctx context.Context, operation string, form url.Values, ok func(string) bool) (*response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.RecordGatewayCall(ctx, operation, "throttled")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+operation, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.metrics.RecordGatewayCall(ctx, operation, "transport_error")
		p.log.Warn("gateway request failed", zap.String("operation", operation), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		p.metrics.RecordGatewayCall(ctx, operation, "transport_error")
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, operation, err)
	}

	var res response
	if err := json.Unmarshal(body, &res); err != nil {
		p.metrics.RecordGatewayCall(ctx, operation, "invalid_response")
		p.log.Warn("gateway returned non-json body",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: %s: status %d", domain.ErrProviderUnavailable, operation, resp.StatusCode)
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("result_cd", res.ResultCode),
		zap.Duration("duration", time.Since(start)),
	}
	if !ok(res.ResultCode) {
		p.metrics.RecordGatewayCall(ctx, operation, "declined")
		p.log.Info("gateway declined", fields...)
		return nil, &domain.ProviderError{
			Operation: operation,
			Code:      res.ResultCode,
			Message:   res.ResultMsg,
		}
	}

	p.metrics.RecordGatewayCall(ctx, operation, "success")
	p.log.Debug("gateway call succeeded", fields...)
	return &res, nil
}

func isSuccess(code string) bool {
	return code == resultSuccess
}

func isRefundSuccess(code string) bool {
	_, ok := refundSuccessCodes[code]
	return ok
}

var _ domain.Provider = (*Provider)(nil)
