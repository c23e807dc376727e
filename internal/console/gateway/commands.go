package gateway

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/herdvest/backoffice/internal/console/querystore"
	"github.com/herdvest/backoffice/internal/workflow"
)

// Decision is an operator's approve/reject submission together with the
// order context the gate needs to evaluate it.
type Decision struct {
	OrderID       string
	Status        workflow.Status
	PaymentType   workflow.PaymentType
	CoinsRedeemed int64
	Checks        workflow.CheckSet
	Remarks       string
}

// Refresher reloads the order list with the currently active filters.
type Refresher interface {
	Filters() querystore.Filters
	Refresh(ctx context.Context)
}

// Executor sends decisions to the API. A decision the gate would refuse is
// never sent; duplicate submissions for the same order are collapsed
// client-side while one is in flight.
type Executor struct {
	client   *Client
	store    Refresher
	identity workflow.Identity
	group    singleflight.Group
}

func NewExecutor(client *Client, store Refresher, identity workflow.Identity) *Executor {
	return &Executor{
		client:   client,
		store:    store,
		identity: identity,
	}
}

// CanApprove reports whether the approve action is currently enabled for the
// decision as composed so far.
func (e *Executor) CanApprove(d Decision) bool {
	return workflow.CanApprove(d.Status, e.identity.Roles, d.PaymentType, d.CoinsRedeemed, d.Checks)
}

// CanReject reports whether the reject action is currently enabled for the
// decision as composed so far.
func (e *Executor) CanReject(d Decision) bool {
	return workflow.CanReject(d.Status, e.identity.Roles, d.PaymentType, d.CoinsRedeemed, d.Checks, d.Remarks)
}

func (e *Executor) Approve(ctx context.Context, d Decision) error {
	if err := workflow.EvaluateApprove(d.Status, e.identity.Roles, d.PaymentType, d.CoinsRedeemed, d.Checks); err != nil {
		return err
	}
	return e.submit(ctx, "/approve-unit", d)
}

func (e *Executor) Reject(ctx context.Context, d Decision) error {
	if err := workflow.EvaluateReject(d.Status, e.identity.Roles, d.PaymentType, d.CoinsRedeemed, d.Checks, d.Remarks); err != nil {
		return err
	}
	return e.submit(ctx, "/reject-unit", d)
}

func (e *Executor) submit(ctx context.Context, path string, d Decision) error {
	// Single-flight per (action, order): a second click while the first
	// request is pending joins it instead of issuing a duplicate.
	key := path + ":" + d.OrderID
	_, err, _ := e.group.Do(key, func() (interface{}, error) {
		if _, err := e.client.post(ctx, path, decisionPayload(d)); err != nil {
			return nil, fmt.Errorf("decision submit failed: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		// No local state was touched; the displayed status only changes
		// once a refresh confirms the transition.
		return err
	}

	e.store.Refresh(ctx)
	return nil
}

// decisionPayload builds the wire body. Only explicitly-set checks appear;
// an unset check must not be transmitted as false.
func decisionPayload(d Decision) map[string]interface{} {
	payload := map[string]interface{}{
		"orderId": d.OrderID,
	}
	if d.Remarks != "" {
		payload["comments"] = d.Remarks
	}
	for key, value := range d.Checks.Payload() {
		payload[key] = value
	}
	return payload
}
