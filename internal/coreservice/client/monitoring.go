package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

type Monitoring struct {
	req *requester
}

func NewMonitoring(cfg config.Config) *Monitoring {
	cs := cfg.CoreService
	return &Monitoring{req: newRequester("monitoring", cs.MonitoringURL, cs.Timeout, staticToken(cs.MonitoringKey))}
}

func (m *Monitoring) Report(ctx context.Context, monitorID string, metrics domain.RunMetrics) error {
	monitorID = strings.TrimSpace(monitorID)
	if monitorID == "" {
		return nil
	}
	return m.req.do(ctx, http.MethodPost, "monitors/"+url.PathEscape(monitorID)+"/metrics", metrics, nil)
}

var _ domain.Monitoring = (*Monitoring)(nil)
