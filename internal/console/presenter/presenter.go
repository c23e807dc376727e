//go:generate mockgen -source ./presenter.go -destination=./mocks/presenter.go -package=mock_presenter
package presenter

import (
	"context"

	"go.uber.org/zap"

	"github.com/herdvest/backoffice/internal/console/gateway"
	"github.com/herdvest/backoffice/internal/console/querystore"
	"github.com/herdvest/backoffice/internal/workflow"
)

const placeholder = "—"

// DetailAPI is the slice of the gateway the presenter needs.
type DetailAPI interface {
	GetOrder(ctx context.Context, orderID string) (*querystore.Order, *gateway.Transaction, error)
	GetHistory(ctx context.Context, orderID string) ([]workflow.HistoryEntry, error)
	GetInvestor(ctx context.Context, mobile string) (*gateway.Investor, error)
}

// Detail is the display-ready aggregation of one order. Missing sub-objects
// render as placeholders; only a missing order itself is an error.
type Detail struct {
	Order       querystore.Order
	Status      workflow.Status
	Transaction *gateway.Transaction
	Investor    gateway.Investor
	History     []workflow.HistoryEntry
}

type Presenter struct {
	api DetailAPI
	log *zap.Logger
}

func New(api DetailAPI, log *zap.Logger) *Presenter {
	return &Presenter{api: api, log: log.Named("presenter")}
}

// Aggregate assembles order + transaction + investor + history. known may
// carry the order from the already-fetched list; when nil (deep link) the
// order is fetched individually.
func (p *Presenter) Aggregate(ctx context.Context, orderID string, known *querystore.Order) (*Detail, error) {
	var order *querystore.Order
	var txn *gateway.Transaction

	if known != nil && known.ID == orderID {
		copied := *known
		order = &copied
		_, txn, _ = p.api.GetOrder(ctx, orderID)
	} else {
		var err error
		order, txn, err = p.api.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}

	detail := &Detail{
		Order:       *order,
		Transaction: txn,
		Investor: gateway.Investor{
			Mobile:    order.InvestorMobile,
			Name:      placeholder,
			KYCStatus: placeholder,
		},
	}

	// History entries render oldest-first, check results verbatim.
	history, err := p.api.GetHistory(ctx, orderID)
	if err != nil {
		p.log.Warn("history fetch failed, rendering without it",
			zap.String("order_id", orderID), zap.Error(err))
	} else {
		detail.History = history
	}
	status := workflow.DeriveStatus(initialStatus(order, detail.History), detail.History)
	// The re-review flag lives only in the stored status; it stands in for
	// the super-admin stage the fold would otherwise report.
	if status == workflow.StatusPendingSuperAdmin &&
		order.PaymentStatus == workflow.StatusPendingSuperAdminRejection {
		status = workflow.StatusPendingSuperAdminRejection
	}
	detail.Status = status

	if order.InvestorMobile != "" {
		investor, err := p.api.GetInvestor(ctx, order.InvestorMobile)
		if err != nil {
			p.log.Warn("investor fetch failed, rendering placeholder",
				zap.String("mobile", order.InvestorMobile), zap.Error(err))
		} else if investor != nil {
			detail.Investor = *investor
		}
	}

	return detail, nil
}

// initialStatus picks the fold's starting point: with history present the
// review began at the admin stage; without it the listed status stands.
func initialStatus(order *querystore.Order, history []workflow.HistoryEntry) workflow.Status {
	if len(history) == 0 {
		return order.PaymentStatus
	}
	return workflow.StatusPendingAdmin
}
