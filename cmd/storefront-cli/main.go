package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-state/internal/app"
	"storefront-state/internal/config"
	"storefront-state/internal/domain"
	"storefront-state/internal/observability"
)

// storefront-cli drives the state engine against a running storefront API:
// it logs in, reads the catalogue through the signed client, fills the cart
// and checks out.
func main() {
	email := flag.String("email", "ana@example.com", "login email")
	password := flag.String("password", "secret", "login password")
	quantity := flag.Int("qty", 1, "quantity of each product to add")
	checkout := flag.Bool("checkout", false, "check out after filling the cart")
	logout := flag.Bool("logout", false, "log out before exiting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *email, *password, *quantity, *checkout, *logout); err != nil {
		slog.Error("storefront session failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type printNavigator struct{}

func (printNavigator) Navigate(path string) {
	fmt.Printf("-> navigate %s\n", path)
}

func run(ctx context.Context, cfg *config.Config, email, password string, qty int, checkout, logout bool) error {
	a, err := app.New(ctx, cfg, nil, app.WithNavigator(printNavigator{}))
	if err != nil {
		return err
	}
	defer a.Close()

	unsubscribe := a.Cart.Subscribe(func(lines []domain.CartLine) {
		fmt.Printf("cart: %d line(s)\n", len(lines))
	})
	defer unsubscribe()

	if !a.Sessions.IsAuthenticated() {
		loginCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		identity, err := a.Sessions.Login(loginCtx, domain.Credentials{Username: email, Password: password})
		cancel()
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Printf("logged in as %s (%s)\n", identity.DisplayName, identity.Role)
	}

	products, err := fetchProducts(ctx, a)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := a.Cart.AddItem(p, qty); err != nil {
			return err
		}
	}

	totals := a.Cart.Summary()
	fmt.Printf("items=%d subtotal=%.2f shipping=%.2f tax=%.2f total=%.2f\n",
		totals.Count, totals.Subtotal, totals.Shipping, totals.Tax, totals.Total)

	if checkout {
		receipt, err := a.Cart.Checkout()
		if err != nil && !errors.Is(err, domain.ErrEmptyCart) {
			return err
		}
		if receipt != nil {
			fmt.Printf("order %s placed for %.2f\n", receipt.OrderID, receipt.Totals.Total)
		}
	}

	if logout {
		a.Sessions.Logout()
	}
	return nil
}

func fetchProducts(ctx context.Context, a *app.App) ([]domain.ProductSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Config.APIBaseURL+"/api/products", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var products []domain.ProductSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
