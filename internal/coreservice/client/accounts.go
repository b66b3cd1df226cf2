package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

const accountsSubject = "coreservice-accounts"

type Accounts struct {
	req *requester
}

// NewAccounts talks to {ACCOUNTS_URL}/internal with a signed service token.
func NewAccounts(cfg config.Config) *Accounts {
	cs := cfg.CoreService
	signer := newTokenSigner(cs.AccountsKey, accountsSubject, cs.PaymentsURL, cs.Audience)
	base := ""
	if cs.AccountsURL != "" {
		base = cs.AccountsURL + "/internal"
	}
	return &Accounts{req: newRequester("accounts", base, cs.Timeout, signer.Token)}
}

type userEnvelope struct {
	User domain.User `json:"user"`
}

type centercoinBody struct {
	CentercoinBalance int64  `json:"centercoinBalance"`
	Message           string `json:"message"`
}

func (a *Accounts) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var out userEnvelope
	if err := a.req.do(ctx, http.MethodGet, "users/"+url.PathEscape(userID), nil, &out); err != nil {
		return domain.User{}, err
	}
	return out.User, nil
}

func (a *Accounts) Authorize(ctx context.Context, sessionID string) (domain.User, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	var out userEnvelope
	body := map[string]string{"sessionId": sessionID}
	if err := a.req.do(ctx, http.MethodPost, "users/authorize", body, &out); err != nil {
		return domain.User{}, err
	}
	if out.User.UserID == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	return out.User, nil
}

func (a *Accounts) AddCentercoin(ctx context.Context, userID string, amount int64, message string) error {
	return a.req.do(ctx, http.MethodPut, "users/"+url.PathEscape(userID)+"/centercoin", centercoinBody{
		CentercoinBalance: amount,
		Message:           message,
	}, nil)
}

func (a *Accounts) RemoveCentercoin(ctx context.Context, userID string, amount int64, message string) error {
	return a.req.do(ctx, http.MethodDelete, "users/"+url.PathEscape(userID)+"/centercoin", centercoinBody{
		CentercoinBalance: amount,
		Message:           message,
	}, nil)
}

var _ domain.Accounts = (*Accounts)(nil)
