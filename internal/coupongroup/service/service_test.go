package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	"github.com/smallbiznis/ridepay/internal/coupongroup/repository"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"github.com/smallbiznis/ridepay/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const knownDiscountGroup = "8c1b7f0e-4b7a-4e3c-9f55-0d5a3c2f9a11"

type fakePlatform struct {
	coreservicedomain.Platform
	generated int
}

func (f *fakePlatform) GetDiscountGroup(_ context.Context, id string) (coreservicedomain.DiscountGroup, error) {
	if id != knownDiscountGroup {
		return coreservicedomain.DiscountGroup{}, &coreservicedomain.UpstreamError{Service: "platform", StatusCode: 404, Message: "할인 그룹을 찾을 수 없습니다."}
	}
	return coreservicedomain.DiscountGroup{DiscountGroupID: id}, nil
}

func (f *fakePlatform) GenerateDiscount(_ context.Context, id string) (coreservicedomain.Discount, error) {
	f.generated++
	expires := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return coreservicedomain.Discount{DiscountGroupID: id, DiscountID: "d-1", ExpiredAt: &expires}, nil
}

func newService(t *testing.T) (domain.Service, *gorm.DB, *fakePlatform) {
	t.Helper()
	conn := testutil.NewDB(t)
	platform := &fakePlatform{}
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    testutil.NewNode(t),
		Clock:    clock.NewFake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		Platform: platform,
	})
	return svc, conn, platform
}

func strPtr(v string) *string { return &v }

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	zero := int64(0)
	negative := -1

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{name: "short name", req: domain.CreateRequest{Name: "a", Type: domain.TypeOneTime}, want: domain.ErrInvalidName},
		{name: "long name", req: domain.CreateRequest{Name: "가나다라마바사아자차카타파하가나다", Type: domain.TypeOneTime}, want: domain.ErrInvalidName},
		{name: "type", req: domain.CreateRequest{Name: "welcome", Type: "FOREVER"}, want: domain.ErrInvalidType},
		{name: "validity", req: domain.CreateRequest{Name: "welcome", Type: domain.TypeOneTime, Validity: &zero}, want: domain.ErrInvalidValidity},
		{name: "limit", req: domain.CreateRequest{Name: "welcome", Type: domain.TypeOneTime, Limit: &negative}, want: domain.ErrInvalidLimit},
		{
			name: "discount group not uuid",
			req: domain.CreateRequest{Name: "welcome", Type: domain.TypeOneTime, Properties: &domain.Properties{
				OpenAPI: &domain.OpenAPIDiscountGroup{DiscountGroupID: "abc"},
			}},
			want: domain.ErrInvalidDiscountGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateRejectsUnknownDiscountGroup(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "welcome",
		Type: domain.TypeOneTime,
		Properties: &domain.Properties{OpenAPI: &domain.OpenAPIDiscountGroup{
			DiscountGroupID: "00000000-0000-4000-8000-000000000000",
		}},
	})
	var upstream *coreservicedomain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.True(t, upstream.IsNotFound())
}

func TestCreateEnforcesUniqueNameAndCode(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, domain.CreateRequest{Code: strPtr(" WELCOME "), Name: "첫 이용 할인", Type: domain.TypeOneTime})
	require.NoError(t, err)
	require.Equal(t, "WELCOME", *group.Code)
	require.NotNil(t, group.Abbreviation)
	require.NotEmpty(t, *group.Abbreviation)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "첫 이용 할인", Type: domain.TypeLongTime})
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	_, err = svc.Create(ctx, domain.CreateRequest{Code: strPtr("WELCOME"), Name: "other", Type: domain.TypeLongTime})
	require.ErrorIs(t, err, domain.ErrDuplicateCode)

	// Two groups without a code never collide.
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "no code a", Type: domain.TypeOneTime})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "no code b", Type: domain.TypeOneTime, Code: strPtr("  ")})
	require.NoError(t, err)

	byCode, err := svc.GetByCode(ctx, "WELCOME")
	require.NoError(t, err)
	require.Equal(t, group.ID, byCode.ID)

	_, err = svc.GetByCode(ctx, "MISSING")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModifyKeepsOwnNameAndCode(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, domain.CreateRequest{Code: strPtr("SPRING"), Name: "spring", Type: domain.TypeOneTime})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "summer", Type: domain.TypeOneTime})
	require.NoError(t, err)

	limit := 3
	modified, err := svc.Modify(ctx, group, domain.ModifyRequest{Code: strPtr("SPRING"), Limit: &limit})
	require.NoError(t, err)
	require.Equal(t, 3, *modified.Limit)

	_, err = svc.Modify(ctx, modified, domain.ModifyRequest{Name: strPtr("summer")})
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	stored, err := svc.Get(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, "spring", stored.Name)
	require.Equal(t, 3, *stored.Limit)
}

func TestDeleteRemovesCoupons(t *testing.T) {
	svc, conn, _ := newService(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, domain.CreateRequest{Name: "autumn", Type: domain.TypeLongTime})
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, conn.Exec(
		`INSERT INTO coupons (id, user_id, coupon_group_id, properties, created_at, updated_at) VALUES (?, ?, ?, '{}', ?, ?)`,
		1, "user-1", group.ID, now, now,
	).Error)

	require.NoError(t, svc.Delete(ctx, group))

	_, err = svc.Get(ctx, group.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	var remaining int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM coupons`).Scan(&remaining).Error)
	require.Zero(t, remaining)
}

func TestIssueDiscount(t *testing.T) {
	svc, _, platform := newService(t)
	ctx := context.Background()

	linked, err := svc.Create(ctx, domain.CreateRequest{
		Name:       "linked",
		Type:       domain.TypeLongTime,
		Properties: &domain.Properties{OpenAPI: &domain.OpenAPIDiscountGroup{DiscountGroupID: knownDiscountGroup}},
	})
	require.NoError(t, err)

	discount, err := svc.IssueDiscount(ctx, linked, false)
	require.NoError(t, err)
	require.Nil(t, discount)
	require.Zero(t, platform.generated)

	discount, err = svc.IssueDiscount(ctx, linked, true)
	require.NoError(t, err)
	require.Equal(t, knownDiscountGroup, discount.DiscountGroupID)
	require.Equal(t, "d-1", discount.DiscountID)
	require.Equal(t, 1, platform.generated)
}

func TestListSearchesAndSorts(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: name, Type: domain.TypeOneTime, Description: name + " promo"})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, domain.ListRequest{Search: "promo"})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Total)

	res, err = svc.List(ctx, domain.ListRequest{Search: "bet"})
	require.NoError(t, err)
	require.Len(t, res.CouponGroups, 1)
	require.Equal(t, "beta", res.CouponGroups[0].Name)

	_, err = svc.List(ctx, domain.ListRequest{OrderBy: "name"})
	require.ErrorIs(t, err, domain.ErrInvalidSortField)
}
