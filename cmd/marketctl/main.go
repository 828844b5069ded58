// marketctl is a small command line client for the marketplace API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/client"
)

var (
	apiURL  string
	token   string
	timeout time.Duration
)

func tokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "marketctl", "token"), nil
}

func loadToken() string {
	if token != "" {
		return token
	}
	if env := os.Getenv("MARKET_TOKEN"); env != "" {
		return env
	}
	path, err := tokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(t string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(t), 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func newClient() *client.MarketplaceClient {
	return client.NewMarketplaceClient(apiURL, loadToken())
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Sign in and remember the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := newClient()
			session, err := c.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			if err := saveToken(session.Token); err != nil {
				return err
			}
			fmt.Printf("✅ Signed in as %s (until %s)\n", session.User.Email, session.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (optional for the mock identity)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := newClient().Logout(ctx); err != nil {
				return err
			}
			path, err := tokenPath()
			if err == nil {
				if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("failed to remove token: %w", err)
				}
			}
			fmt.Println("👋 Signed out")
			return nil
		},
	}
}

func listingsCmd() *cobra.Command {
	var search, category, sort string
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Browse available listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			listings, err := newClient().ListListings(ctx, search, category, sort)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPRICE\tSTOCK\tCATEGORY")
			for _, l := range listings {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", l.ID, l.Title, l.Price.StringFixed(2), l.Stock, l.Category)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "text to look for")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&sort, "sort", "", "newest, price-asc, price-desc or name-asc")
	return cmd
}

func cartCmd() *cobra.Command {
	var coupon string
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := newClient()
			cart, err := c.Cart(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LISTING\tTITLE\tQTY\tUNIT\tSUBTOTAL")
			for _, l := range cart.Lines {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.ListingID, l.Title, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal().StringFixed(2))
			}
			fmt.Fprintf(w, "\t\t%d\t\t%s\n", cart.TotalItems, cart.TotalPrice.StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}

			if coupon == "" {
				return nil
			}
			quote, err := c.Quote(ctx, coupon)
			if err != nil {
				return err
			}
			return printJSON(quote)
		},
	}
	cmd.Flags().StringVar(&coupon, "coupon", "", "also show a quote with this coupon")

	add := &cobra.Command{
		Use:   "add LISTING_ID",
		Short: "Add a listing to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			qty, _ := cmd.Flags().GetInt("quantity")
			cart, err := newClient().AddToCart(ctx, args[0], qty)
			if err != nil {
				return err
			}
			fmt.Printf("🛒 %d items, %s total\n", cart.TotalItems, cart.TotalPrice.StringFixed(2))
			return nil
		},
	}
	add.Flags().IntP("quantity", "q", 1, "units to add")
	cmd.AddCommand(add)

	return cmd
}

func checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Turn the cart into an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			order, err := newClient().Checkout(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Order %s created, total %s\n", order.ID, order.Total.StringFixed(2))
			return nil
		},
	}
}

func ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			list, err := newClient().Orders(ctx)
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Command line client for the student marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("MARKET_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}
	root.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "marketplace API or gateway URL")
	root.PersistentFlags().StringVar(&token, "token", "", "session token (defaults to the saved one)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")

	root.AddCommand(loginCmd(), logoutCmd(), listingsCmd(), cartCmd(), checkoutCmd(), ordersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
