package health

import (
	"context"
	"errors"
	"fmt"

	"tianji-hq/oracle/pkg/providerfactory"
)

// ProviderHealth is implemented by providerfactory.Manager.
type ProviderHealth interface {
	GetHealthSummary() providerfactory.HealthSummary
}

// ProvidersCheck fails when no provider is registered or none is healthy.
func ProvidersCheck(m ProviderHealth) CheckFunc {
	return func(ctx context.Context) error {
		summary := m.GetHealthSummary()
		if summary.Total == 0 {
			return errors.New("no providers registered")
		}
		if summary.Healthy == 0 {
			return fmt.Errorf("0/%d providers healthy", summary.Total)
		}
		return nil
	}
}

// Pinger is implemented by ledger stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps a Pinger.
func PingCheck(p Pinger) CheckFunc {
	return p.Ping
}
