package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.Config {
	return config.Config{
		CoreService: config.CoreServiceConfig{
			AccountsURL:   url,
			AccountsKey:   "accounts-secret",
			RideURL:       url + "/ride",
			RideKey:       "ride-secret",
			PaymentsURL:   "https://payments.test",
			Audience:      "system@hikick.kr",
			MonitoringURL: url + "/monitoring",
			MonitoringKey: "monitor-key",
			Timeout:       time.Second,
		},
		Platform: config.PlatformConfig{URL: url + "/platform", AccessKey: "platform-key", Timeout: time.Second},
	}
}

func TestAccountsGetUserSignsServiceToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/users/u-1", r.URL.Path)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return []byte("accounts-secret"), nil
		})
		require.NoError(t, err)
		require.Equal(t, accountsSubject, claims.Subject)
		require.Equal(t, "https://payments.test", claims.Issuer)
		require.Equal(t, jwt.ClaimStrings{"system@hikick.kr"}, claims.Audience)

		_, _ = w.Write([]byte(`{"opcode":0,"user":{"userId":"u-1","realname":"홍길동","phoneNo":"01012345678"}}`))
	}))
	defer srv.Close()

	user, err := NewAccounts(testConfig(srv.URL)).GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "홍길동", user.Realname)
	require.Equal(t, "01012345678", user.PhoneNo)
}

func TestAccountsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"opcode":-1,"message":"user not found"}`))
	}))
	defer srv.Close()

	_, err := NewAccounts(testConfig(srv.URL)).GetUser(context.Background(), "missing")
	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.True(t, upstream.IsNotFound())
	require.Equal(t, "user not found", upstream.Message)
}

func TestAccountsCentercoin(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/users/u-1/centercoin", r.URL.Path)
		methods = append(methods, r.Method)
		var body centercoinBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(120), body.CentercoinBalance)
		require.Equal(t, "ride", body.Message)
		_, _ = w.Write([]byte(`{"opcode":0}`))
	}))
	defer srv.Close()

	accounts := NewAccounts(testConfig(srv.URL))
	require.NoError(t, accounts.AddCentercoin(context.Background(), "u-1", 120, "ride"))
	require.NoError(t, accounts.RemoveCentercoin(context.Background(), "u-1", 120, "ride"))
	require.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestRidesAndPlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ride/rides/byOpenAPI/open-1":
			_, _ = w.Write([]byte(`{"opcode":0,"ride":{"rideId":"ride-1","kickboardCode":"AB12"}}`))
		case r.URL.Path == "/ride/rides/ride-1" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			require.JSONEq(t, `{"price":6000}`, string(body))
			_, _ = w.Write([]byte(`{"opcode":0,"ride":{"rideId":"ride-1","price":6000}}`))
		case r.URL.Path == "/platform/discount/discountGroups/dg-1/generate":
			require.Equal(t, "Bearer platform-key", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"opcode":0,"discount":{"discountId":"d-1","expiredAt":"2026-12-31T00:00:00Z"}}`))
		case r.URL.Path == "/platform/ride/rides/open-1/payments/pay-1/process":
			_, _ = w.Write([]byte(`{"opcode":0}`))
		case r.URL.Path == "/monitoring/monitors/mon-1/metrics":
			require.Equal(t, "Bearer monitor-key", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"opcode":0}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	ctx := context.Background()

	rides := NewRides(cfg)
	ride, err := rides.GetByOpenAPIRideID(ctx, "open-1")
	require.NoError(t, err)
	require.Equal(t, "AB12", ride.KickboardCode)
	ride, err = rides.UpdatePrice(ctx, ride.RideID, 6000)
	require.NoError(t, err)
	require.Equal(t, int64(6000), ride.Price)

	platform := NewPlatform(cfg)
	discount, err := platform.GenerateDiscount(ctx, "dg-1")
	require.NoError(t, err)
	require.Equal(t, "dg-1", discount.DiscountGroupID)
	require.Equal(t, "d-1", discount.DiscountID)
	require.NotNil(t, discount.ExpiredAt)
	require.NoError(t, platform.MarkPaymentProcessed(ctx, "open-1", "pay-1"))

	require.NoError(t, NewMonitoring(cfg).Report(ctx, "mon-1", domain.RunMetrics{Job: "unpaid_records"}))
	require.NoError(t, NewMonitoring(cfg).Report(ctx, "", domain.RunMetrics{}))
}

func TestUnconfiguredService(t *testing.T) {
	_, err := NewRides(config.Config{}).GetByOpenAPIRideID(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestTokenSignerReusesUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	signer := newTokenSigner("secret", "sub", "iss", "aud")
	signer.now = func() time.Time { return now }

	first, err := signer.Token()
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	second, err := signer.Token()
	require.NoError(t, err)
	require.Equal(t, first, second)

	now = now.Add(31 * time.Minute)
	third, err := signer.Token()
	require.NoError(t, err)
	require.NotEqual(t, first, third)

	_, err = newTokenSigner("", "sub", "iss", "aud").Token()
	require.Error(t, err)
}
