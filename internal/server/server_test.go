package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/ridepay/internal/auth/domain"
	"github.com/smallbiznis/ridepay/internal/auth/session"
	"github.com/smallbiznis/ridepay/internal/authorization"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	"github.com/smallbiznis/ridepay/internal/config"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	coupondomain "github.com/smallbiznis/ridepay/internal/coupon/domain"
	coupongroupdomain "github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	dunningdomain "github.com/smallbiznis/ridepay/internal/dunning/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
	"github.com/smallbiznis/ridepay/internal/observability"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	webhookdomain "github.com/smallbiznis/ridepay/internal/webhook/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	riderSession  = "rider-session"
	internalToken = "internal-token"
)

type fakeAuthService struct {
	rider coreservicedomain.User
}

func (f *fakeAuthService) Authenticate(_ context.Context, sessionID string) (coreservicedomain.User, error) {
	if sessionID != riderSession {
		return coreservicedomain.User{}, authdomain.ErrInvalidSession
	}
	return f.rider, nil
}

func (f *fakeAuthService) Forget(string) {}

func (f *fakeAuthService) VerifyInternal(_ context.Context, token string) (authdomain.Internal, error) {
	if token != internalToken {
		return authdomain.Internal{}, authdomain.ErrInvalidInternalToken
	}
	return authdomain.Internal{Issuer: "coreservice", Subject: "coreservice-payments", Audience: "system@hikick.kr"}, nil
}

type fakeAccounts struct {
	coreservicedomain.Accounts
	users map[string]coreservicedomain.User
}

func (f *fakeAccounts) GetUser(_ context.Context, userID string) (coreservicedomain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return coreservicedomain.User{}, &coreservicedomain.UpstreamError{Service: "accounts", StatusCode: http.StatusNotFound}
	}
	return user, nil
}

type fakeCards struct {
	carddomain.Service
	cards    []carddomain.Card
	readyErr error
	revoked  []snowflake.ID
}

func (f *fakeCards) List(_ context.Context, userID string, _ bool) ([]carddomain.Card, error) {
	var out []carddomain.Card
	for _, card := range f.cards {
		if card.UserID == userID {
			out = append(out, card)
		}
	}
	return out, nil
}

func (f *fakeCards) Get(_ context.Context, userID string, cardID snowflake.ID, _ bool) (carddomain.Card, error) {
	for _, card := range f.cards {
		if card.UserID == userID && card.ID == cardID {
			return card, nil
		}
	}
	return carddomain.Card{}, carddomain.ErrNotFound
}

func (f *fakeCards) CheckReady(context.Context, string) error {
	return f.readyErr
}

func (f *fakeCards) Revoke(_ context.Context, _ string, card carddomain.Card) error {
	f.revoked = append(f.revoked, card.ID)
	return nil
}

type fakeRecords struct {
	recorddomain.Service
	records  map[snowflake.ID]recorddomain.Record
	refunds  []recorddomain.RefundRequest
	listUser []string
}

func (f *fakeRecords) GetRecord(_ context.Context, recordID snowflake.ID, userID string) (recorddomain.Record, error) {
	record, ok := f.records[recordID]
	if !ok || record.UserID != userID {
		return recorddomain.Record{}, recorddomain.ErrNotFound
	}
	return record, nil
}

func (f *fakeRecords) GetRecords(_ context.Context, req recorddomain.ListRecordRequest) (recorddomain.ListRecordResponse, error) {
	f.listUser = append(f.listUser, req.UserID)
	var out []recorddomain.Record
	for _, record := range f.records {
		if req.UserID == "" || record.UserID == req.UserID {
			out = append(out, record)
		}
	}
	return recorddomain.ListRecordResponse{Records: out, Total: int64(len(out))}, nil
}

func (f *fakeRecords) RefundRecord(_ context.Context, record recorddomain.Record, req recorddomain.RefundRequest) (recorddomain.Record, error) {
	if record.RefundedAt != nil {
		return recorddomain.Record{}, recorddomain.ErrAlreadyRefunded
	}
	f.refunds = append(f.refunds, req)
	if req.Amount != nil {
		record.Amount = *req.Amount
	}
	return record, nil
}

type fakeCoupons struct {
	coupondomain.Service
}

type fakeGroups struct {
	coupongroupdomain.Service
}

type fakeGateway struct {
	gatewaydomain.Service
	chargeErr error
	charged   []gatewaydomain.ChargeRequest
}

func (f *fakeGateway) CreateBillingToken(_ context.Context, card gatewaydomain.CardDetails, _ *snowflake.ID) (gatewaydomain.BillingToken, error) {
	if _, err := gatewaydomain.ValidateCard(card); err != nil {
		return gatewaydomain.BillingToken{}, err
	}
	return gatewaydomain.BillingToken{Token: "bk-1", CardLabel: "국민카드 1234"}, nil
}

func (f *fakeGateway) Charge(_ context.Context, req gatewaydomain.ChargeRequest, _ *snowflake.ID) (string, error) {
	if f.chargeErr != nil {
		return "", f.chargeErr
	}
	f.charged = append(f.charged, req)
	return "tid-1", nil
}

type fakeDunnings struct {
	dunningdomain.Service
	items map[snowflake.ID][]dunningdomain.Dunning
}

func (f fakeDunnings) List(_ context.Context, recordID snowflake.ID) ([]dunningdomain.Dunning, error) {
	return f.items[recordID], nil
}

type fakeWebhooks struct {
	webhookdomain.Service
}

func (fakeWebhooks) OnRefund(_ context.Context, event webhookdomain.RefundEvent) (webhookdomain.Result, error) {
	return webhookdomain.Result{}, fmt.Errorf("payment %s: %w", event.Data.PaymentID, webhookdomain.ErrCannotFindRecord)
}

type testServer struct {
	srv      *Server
	cards    *fakeCards
	records  *fakeRecords
	gateway  *fakeGateway
	accounts *fakeAccounts
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer()
	require.NoError(t, err)

	rider := coreservicedomain.User{UserID: "rider-1", Realname: "김라이더", PhoneNo: "010-0000-0000"}
	cards := &fakeCards{cards: []carddomain.Card{
		{ID: 11, UserID: "rider-1", CardName: "국민카드 1234"},
		{ID: 12, UserID: "rider-2", CardName: "신한카드 5678"},
	}}
	records := &fakeRecords{records: map[snowflake.ID]recorddomain.Record{
		21: {ID: 21, UserID: "rider-1", Amount: 3000, InitialAmount: 3000, Name: "[이용료] K123 킥보드"},
	}}
	gateway := &fakeGateway{}
	retried := snowflake.ID(21)
	accounts := &fakeAccounts{users: map[string]coreservicedomain.User{"rider-1": rider}}

	cfg := config.Config{AppName: "ridepay", AppVersion: "test", Environment: "test"}
	engine := NewEngine(cfg, observability.Config{Environment: "test"}, nil)
	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Log:        zap.NewNop(),
		Authsvc:    &fakeAuthService{rider: rider},
		Sessions:   session.NewManager(),
		AuthzSvc:   authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		Accounts:   accounts,
		CardSvc:    cards,
		RecordSvc:  records,
		DunningSvc: fakeDunnings{items: map[snowflake.ID][]dunningdomain.Dunning{21: {{ID: 31, RecordRetryID: &retried}}}},
		CouponSvc:  fakeCoupons{},
		GroupSvc:   fakeGroups{},
		GatewaySvc: gateway,
		WebhookSvc: fakeWebhooks{},
		Tracker:    errtrack.Nop{},
	})

	return testServer{srv: srv, cards: cards, records: records, gateway: gateway, accounts: accounts}
}

func (ts testServer) do(t *testing.T, method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	payload, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error payload: %v", body)
	code, _ := payload["code"].(string)
	return code
}

func TestServiceInfo(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, OpcodeSuccess, body["opcode"])
	require.Equal(t, "ridepay", body["name"])
}

func TestUnknownRouteIsInvalidAPI(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.EqualValues(t, OpcodeNotFound, body["opcode"])
	require.Equal(t, "invalid_api", errorCode(t, body))
}

func TestUserRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/cards", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.EqualValues(t, OpcodeRequiredLogin, body["opcode"])
	require.Equal(t, "missing_token", errorCode(t, body))

	w, body = ts.do(t, http.MethodGet, "/cards", "expired", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_session", errorCode(t, body))
}

func TestListCardsScopedToRider(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/cards", riderSession, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, OpcodeSuccess, body["opcode"])
	cards, ok := body["cards"].([]any)
	require.True(t, ok)
	require.Len(t, cards, 1)
	require.Equal(t, "국민카드 1234", cards[0].(map[string]any)["cardName"])
}

func TestRevokeCardChecksReadinessFirst(t *testing.T) {
	ts := newTestServer(t)
	ts.cards.readyErr = carddomain.ErrHasUnpaidRecord

	w, body := ts.do(t, http.MethodDelete, "/cards/11", riderSession, "")
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	require.EqualValues(t, OpcodePreconditionFailed, body["opcode"])
	require.Equal(t, "has_unpaid_record", errorCode(t, body))
	require.Empty(t, ts.cards.revoked)

	ts.cards.readyErr = nil
	w, _ = ts.do(t, http.MethodDelete, "/cards/11", riderSession, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []snowflake.ID{11}, ts.cards.revoked)
}

func TestForeignCardIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/cards/12", riderSession, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "card_not_found", errorCode(t, body))

	w, body = ts.do(t, http.MethodGet, "/cards/not-a-number", riderSession, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "card_not_found", errorCode(t, body))
}

func TestInternalRoutesRequireServiceToken(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/internal/records", riderSession, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.EqualValues(t, OpcodeRequiredInternalLogin, body["opcode"])

	w, body = ts.do(t, http.MethodGet, "/internal/records?token="+internalToken, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, body["total"])
	require.Equal(t, []string{""}, ts.records.listUser)
}

func TestInternalRefund(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodPost, "/internal/rider-1/records/21/refund", internalToken, `{"amount":1200,"reason":"고객 요청"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.EqualValues(t, OpcodeSuccess, body["opcode"])
	require.Len(t, ts.records.refunds, 1)
	require.EqualValues(t, 1200, *ts.records.refunds[0].Amount)
	require.Equal(t, "고객 요청", *ts.records.refunds[0].Reason)

	record := body["record"].(map[string]any)
	require.EqualValues(t, 1200, record["amount"])
}

func TestInternalRecordDunnings(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/internal/rider-1/records/21/dunnings", internalToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dunnings := body["dunnings"].([]any)
	require.Len(t, dunnings, 1)
	require.Equal(t, "21", dunnings[0].(map[string]any)["recordRetryId"])

	w, body = ts.do(t, http.MethodGet, "/internal/rider-1/records/99/dunnings", internalToken, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, recorddomain.ErrNotFound.Error(), errorCode(t, body))
}

func TestInternalUnknownUser(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/internal/ghost/ready", internalToken, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "cannot_find_user", errorCode(t, body))
}

func TestRefundWebhookUnknownPayment(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodPost, "/webhook/refund", internalToken, `{"data":{"paymentId":"p-1"}}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "cannot_find_record", errorCode(t, body))

	w, body = ts.do(t, http.MethodPost, "/webhook/refund", internalToken, `{"data":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_webhook_payload", errorCode(t, body))
}

func TestDirectGatewayPassthrough(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodPost, "/direct/generate", internalToken,
		`{"cardNumber":"1234567812345678","expiry":"2029-04","password":"12","birthday":"900101"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "bk-1", body["billingKey"])
	require.Equal(t, "국민카드 1234", body["cardName"])

	w, body = ts.do(t, http.MethodPost, "/legacy/generate", internalToken,
		`{"cardNumber":"1234567812345678","expiry":"2029-04","password":"12","birthday":"900101"}`)
	require.Equal(t, http.StatusOK, w.Code)
	nested := body["billingKey"].(map[string]any)
	require.Equal(t, "bk-1", nested["billingKey"])

	w, body = ts.do(t, http.MethodPost, "/direct/generate", internalToken,
		`{"cardNumber":"1234","expiry":"2029-04","password":"12","birthday":"900101"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_cardNumber", errorCode(t, body))
}

func TestDirectInvokeSurfacesProviderMessage(t *testing.T) {
	ts := newTestServer(t)
	ts.gateway.chargeErr = &gatewaydomain.ProviderError{
		Operation: gatewaydomain.OperationCharge,
		Code:      "3011",
		Message:   "한도초과",
	}

	w, body := ts.do(t, http.MethodPost, "/direct/invoke", internalToken,
		`{"billingKey":"bk-1","amount":1000,"realname":"김라이더","phone":"01000000000","paymentKeyId":"77"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.EqualValues(t, OpcodeUpstream, body["opcode"])
	payload := body["error"].(map[string]any)
	require.Equal(t, "한도초과", payload["message"])

	ts.gateway.chargeErr = nil
	w, body = ts.do(t, http.MethodPost, "/direct/invoke", internalToken,
		`{"billingKey":"bk-1","amount":1000,"realname":"김라이더","phone":"01000000000","paymentKeyId":"77"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tid-1", body["tid"])
	require.Equal(t, "김라이더", ts.gateway.charged[0].PayerName)
}

func TestRiderCannotUseGateway(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodPost, "/direct/invoke", riderSession, `{}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.EqualValues(t, OpcodeRequiredInternalLogin, body["opcode"])
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped already paid", fmt.Errorf("retry: %w", recorddomain.ErrAlreadyPaid), http.StatusConflict, "already_paid"},
		{"duplicate group code", coupongroupdomain.ErrDuplicateCode, http.StatusConflict, "duplicate_coupon_group_code"},
		{"expired coupon", coupondomain.ErrExpiredCoupon, http.StatusPreconditionFailed, "expired_coupon"},
		{"no card", recorddomain.ErrNoAvailableCard, http.StatusPreconditionFailed, "no_available_card"},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"accounts down", &coreservicedomain.UpstreamError{Service: "accounts", StatusCode: 500}, http.StatusBadGateway, "accounts_failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := mapError(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, resp.Error.Code)
			require.NotEqual(t, OpcodeSuccess, resp.Opcode)
		})
	}
}
