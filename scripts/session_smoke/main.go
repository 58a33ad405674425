// Command session_smoke runs the full session lifecycle against a live API:
// login, persist, rehydrate in a fresh manager, call an authenticated route,
// then log out and verify both stores are empty. Exits non-zero on the first
// failed step.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/fitdesk/fitdesk-api/pkg/client"
	"github.com/fitdesk/fitdesk-api/pkg/session"
)

func main() {
	var (
		baseURL   string
		email     string
		password  string
		storePath string
		timeout   time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", "", "Trainer email")
	flag.StringVar(&password, "password", "", "Trainer password")
	flag.StringVar(&storePath, "store", filepath.Join(os.TempDir(), "fitdesk-smoke-session.json"), "Session store file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if email == "" || password == "" {
		log.Fatal("both -email and -password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer os.Remove(storePath) //nolint:errcheck

	if err := run(ctx, baseURL, email, password, storePath); err != nil {
		log.Fatalf("smoke failed: %v", err)
	}
	fmt.Println("session smoke passed")
}

func run(ctx context.Context, baseURL, email, password, storePath string) error {
	api, mgr, err := newClient(baseURL, storePath)
	if err != nil {
		return err
	}

	res, err := api.Login(ctx, client.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("logged in as %s (expires in %ds)\n", res.Email, res.ExpiresIn)

	if mgr.Store().Read(session.KeyAccessToken) == "" {
		return fmt.Errorf("store missing access token after login")
	}

	// fresh manager over the same store file simulates a new process
	api2, mgr2, err := newClient(baseURL, storePath)
	if err != nil {
		return err
	}
	if !mgr2.State().IsAuthenticated() {
		return fmt.Errorf("rehydrated state is not authenticated")
	}

	info, err := api2.Me(ctx)
	if err != nil {
		return fmt.Errorf("me after rehydration: %w", err)
	}
	fmt.Printf("profile: %s <%s>\n", info.FullName, info.Email)

	if _, err := api2.GetDashboard(ctx); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	fmt.Println("dashboard reachable")

	if err := api2.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if mgr2.State().IsAuthenticated() {
		return fmt.Errorf("state still authenticated after logout")
	}
	if mgr2.Store().Read(session.KeyAccessToken) != "" {
		return fmt.Errorf("store still holds access token after logout")
	}
	fmt.Println("logout cleared state and store")
	return nil
}

func newClient(baseURL, storePath string) (*client.Client, *session.Manager, error) {
	store, err := session.NewFileStore(storePath, hostOf(baseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	mgr := session.NewManager(store, session.NewState())
	mgr.Hydrate()
	return client.New(baseURL, mgr), mgr, nil
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}
