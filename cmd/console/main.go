// Command console is the operator-side client: it drives the order list,
// detail aggregation and approve/reject submissions against a running
// back-office API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/herdvest/backoffice/internal/console/gateway"
	"github.com/herdvest/backoffice/internal/console/presenter"
	"github.com/herdvest/backoffice/internal/console/querystore"
	"github.com/herdvest/backoffice/internal/logger"
	"github.com/herdvest/backoffice/internal/workflow"
)

func main() {
	var (
		baseURL  = flag.String("base", "http://localhost:9000", "back-office API base URL")
		mobile   = flag.String("mobile", "", "admin mobile for login")
		password = flag.String("password", "", "admin password for login")
		roles    = flag.String("roles", "ADMIN", "comma-separated roles carried by the login")

		status  = flag.String("status", "", "status filter")
		search  = flag.String("search", "", "free-text search filter")
		farm    = flag.String("farm", "", "farm id filter")
		page    = flag.Int("page", 0, "page to jump to (0 keeps the persisted page)")
		show    = flag.String("show", "", "order id to show in detail")
		approve = flag.String("approve", "", "order id to approve")
		reject  = flag.String("reject", "", "order id to reject")
		remarks = flag.String("remarks", "", "justification for a rejection")

		units    = flag.String("units", "", "unitsChecked: true|false, empty leaves it unset")
		proof    = flag.String("proof", "", "paymentProof: true|false, empty leaves it unset")
		received = flag.String("received", "", "paymentReceived: true|false, empty leaves it unset")
		coins    = flag.String("coins", "", "coinsChecked: true|false, empty leaves it unset")
	)
	flag.Parse()

	zl := logger.New()
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := login(ctx, *baseURL, *mobile, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	client := gateway.NewClient(*baseURL, token)
	persist := querystore.NewFileViewStore(viewStatePath())
	store := querystore.NewStore(client, persist, 400*time.Millisecond, zl)

	if *status != "" {
		store.SetFilter(ctx, querystore.FieldStatus, *status)
	}
	if *farm != "" {
		store.SetFilter(ctx, querystore.FieldFarm, *farm)
	}
	if *search != "" {
		store.SetFilter(ctx, querystore.FieldSearch, *search)
	}
	if *page > 0 {
		store.SetPage(ctx, *page)
	}
	store.Refresh(ctx)

	identity := workflow.Identity{Mobile: *mobile, Roles: workflow.ParseRoles(splitComma(*roles))}
	executor := gateway.NewExecutor(client, store, identity)

	switch {
	case *approve != "":
		runDecision(ctx, client, store, executor.Approve, *approve, *remarks, checkSet(*units, *proof, *received, *coins))
	case *reject != "":
		runDecision(ctx, client, store, executor.Reject, *reject, *remarks, checkSet(*units, *proof, *received, *coins))
	case *show != "":
		showDetail(ctx, client, store, *show)
	default:
		printList(store.Snapshot())
	}
}

func login(ctx context.Context, baseURL, mobile, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"mobile": mobile, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func runDecision(ctx context.Context, client *gateway.Client, store *querystore.Store, act func(context.Context, gateway.Decision) error, orderID, remarks string, checks workflow.CheckSet) {
	order, ok := findOrder(store.Snapshot(), orderID)
	if !ok {
		log.Fatalf("Order %s is not on the current page; adjust filters first", orderID)
	}

	decision := gateway.Decision{
		OrderID:       orderID,
		Status:        order.PaymentStatus,
		PaymentType:   client.ResolvePaymentType(ctx, order),
		CoinsRedeemed: order.CoinsRedeemed,
		Checks:        checks,
		Remarks:       remarks,
	}
	if err := act(ctx, decision); err != nil {
		log.Fatalf("Decision refused: %v", err)
	}
	fmt.Println("Decision recorded; refreshed list:")
	printList(store.Snapshot())
}

func showDetail(ctx context.Context, client *gateway.Client, store *querystore.Store, orderID string) {
	zl := logger.New()
	p := presenter.New(client, zl)

	var known *querystore.Order
	if order, ok := findOrder(store.Snapshot(), orderID); ok {
		known = &order
	}

	detail, err := p.Aggregate(ctx, orderID, known)
	if err != nil {
		log.Fatalf("Failed to load order %s: %v", orderID, err)
	}
	store.SetExpandedOrder(orderID)

	fmt.Printf("Order %s  status=%s  investor=%s (%s)\n",
		detail.Order.ID, detail.Status, detail.Investor.Name, detail.Investor.Mobile)
	if detail.Transaction != nil {
		fmt.Printf("  payment=%s amount=%d\n", detail.Transaction.PaymentType, detail.Transaction.Amount)
	}
	for _, entry := range detail.History {
		fmt.Printf("  %s %s by %s (%s): %s %v\n",
			entry.At.Format(time.RFC3339), entry.Action, entry.ActorName, entry.ActorMobile,
			entry.Comments, entry.Checks.Payload())
	}
}

func printList(state querystore.State) {
	if state.Err != nil {
		fmt.Printf("WARNING: last fetch failed (%v), showing previous data\n", state.Err)
	}
	fmt.Printf("Page %d (%d filtered / %d total)\n", state.Filters.Page, state.TotalFiltered, state.TotalAllOrders)
	for status, count := range state.CountsByStatus {
		fmt.Printf("  [%s] %d\n", status, count)
	}
	for _, order := range state.Items {
		fmt.Printf("%-14s %-32s units=%-3d total=%-8d coins=%-6d %s\n",
			order.ID, order.FarmLocation, order.Units, order.TotalCost, order.CoinsRedeemed, order.PaymentStatus)
	}
}

func findOrder(state querystore.State, orderID string) (querystore.Order, bool) {
	for _, order := range state.Items {
		if order.ID == orderID {
			return order, true
		}
	}
	return querystore.Order{}, false
}

func checkSet(units, proof, received, coins string) workflow.CheckSet {
	checks := make(workflow.CheckSet)
	add := func(c workflow.Check, v string) {
		switch v {
		case "true":
			checks[c] = true
		case "false":
			checks[c] = false
		}
	}
	add(workflow.CheckUnits, units)
	add(workflow.CheckPaymentProof, proof)
	add(workflow.CheckPaymentReceived, received)
	add(workflow.CheckCoins, coins)
	return checks
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func viewStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".backoffice-view.json"
	}
	return filepath.Join(home, ".backoffice-view.json")
}
