package tpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/gateway/domain"
	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	forms []url.Values
	reply map[string]map[string]string
}

func (r *recorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			t.Errorf("unexpected method %s", req.Method)
		}
		if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", got)
		}
		if err := req.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		r.mu.Lock()
		r.paths = append(r.paths, req.URL.Path)
		r.forms = append(r.forms, req.PostForm)
		body := r.reply[req.URL.Path]
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func newTestProvider(t *testing.T, reply map[string]map[string]string) (*Provider, *recorder) {
	t.Helper()
	rec := &recorder{reply: reply}
	srv := httptest.NewServer(rec.handler(t))
	t.Cleanup(srv.Close)

	cfg := config.Config{Gateway: config.GatewayConfig{BaseURL: srv.URL + "/api/v1"}}
	return New(Params{Config: cfg, Log: zap.NewNop()}), rec
}

func TestGenerateBillingKey(t *testing.T) {
	provider, rec := newTestProvider(t, map[string]map[string]string{
		"/api/v1/gen_billkey": {"result_cd": "0000", "card_token": "tok_1", "card_name": "신한", "card_num": "1234-****-****-5678"},
	})

	token, err := provider.GenerateBillingKey(context.Background(),
		domain.Credentials{Identity: "mid", SecretKey: "key"},
		domain.CardDetails{CardNumber: "1234567812345678", Expiry: "2703", Password: "12", Birthday: "900101"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Token != "tok_1" || token.CardLabel != "신한 1234-****-****-5678" {
		t.Fatalf("unexpected token %+v", token)
	}

	form := rec.forms[0]
	if form.Get("mid") != "mid" || form.Get("api_key") != "key" || form.Get("card_exp") != "2703" || form.Get("buyer_auth_num") != "900101" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestPayWithTokenSendsPrimaryAndSubMerchant(t *testing.T) {
	provider, rec := newTestProvider(t, map[string]map[string]string{
		"/api/v1/payments_token": {"result_cd": "0000", "tid": "tid_1"},
	})

	tid, err := provider.PayWithToken(context.Background(),
		domain.Credentials{Identity: "primary", SecretKey: "pkey"},
		domain.Credentials{Identity: "sub", SecretKey: "skey"},
		domain.ChargeRequest{Token: "tok", Amount: 12000, PayerName: "홍길동", PayerPhone: "01012345678", ProductName: "ride"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tid != "tid_1" {
		t.Fatalf("expected tid_1, got %s", tid)
	}

	form := rec.forms[0]
	want := map[string]string{
		"mid":         "primary",
		"api_key":     "pkey",
		"sub_mid":     "sub",
		"sub_mid_key": "skey",
		"card_token":  "tok",
		"amt":         "12000",
		"buyer_name":  "홍길동",
		"buyer_tel":   "01012345678",
		"goods_nm":    "ride",
	}
	for k, v := range want {
		if form.Get(k) != v {
			t.Fatalf("form[%s] = %q, want %q", k, form.Get(k), v)
		}
	}
}

func TestPayWithTokenDeclined(t *testing.T) {
	provider, _ := newTestProvider(t, map[string]map[string]string{
		"/api/v1/payments_token": {"result_cd": "3011", "result_msg": "한도초과"},
	})

	_, err := provider.PayWithToken(context.Background(), domain.Credentials{}, domain.Credentials{}, domain.ChargeRequest{Token: "tok", Amount: 1})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Code != "3011" || perr.Message != "한도초과" || perr.Operation != domain.OperationCharge {
		t.Fatalf("unexpected provider error %+v", perr)
	}
}

func TestCancelAcceptsRefundCodes(t *testing.T) {
	for _, code := range []string{"0000", "2001", "2013"} {
		t.Run(code, func(t *testing.T) {
			provider, rec := newTestProvider(t, map[string]map[string]string{
				"/api/v1/cancel": {"result_cd": code},
			})
			err := provider.Cancel(context.Background(), domain.Credentials{Identity: "mid"}, domain.RefundRequest{TID: "tid", Amount: 4000, Reason: "test", Partial: true})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.forms[0].Get("partial_cancel") != "1" || rec.forms[0].Get("cancel_amt") != "4000" {
				t.Fatalf("unexpected form %v", rec.forms[0])
			}
		})
	}

	provider, _ := newTestProvider(t, map[string]map[string]string{
		"/api/v1/cancel": {"result_cd": "2002", "result_msg": "취소 불가"},
	})
	if err := provider.Cancel(context.Background(), domain.Credentials{}, domain.RefundRequest{TID: "tid", Amount: 1}); err == nil {
		t.Fatalf("expected error for non-refund code")
	}
}

func TestDeleteBillingKeyOnlyAcceptsSuccess(t *testing.T) {
	provider, _ := newTestProvider(t, map[string]map[string]string{
		"/api/v1/del_billkey": {"result_cd": "2001"},
	})
	if err := provider.DeleteBillingKey(context.Background(), domain.Credentials{}, "tok"); err == nil {
		t.Fatalf("expected error, 2001 is only a refund success code")
	}
}

func TestNonJSONResponseIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(srv.Close)

	provider := New(Params{Config: config.Config{Gateway: config.GatewayConfig{BaseURL: srv.URL}}, Log: zap.NewNop()})
	err := provider.DeleteBillingKey(context.Background(), domain.Credentials{}, "tok")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
