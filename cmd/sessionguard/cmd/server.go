package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/internquest/sessionguard/api"
	"github.com/internquest/sessionguard/credential"
	"github.com/internquest/sessionguard/internal/util"
	"github.com/internquest/sessionguard/session"
	bboltstorage "github.com/internquest/sessionguard/storage/bbolt"
)

var (
	port           int
	dataDir        string
	tlsCert        string
	tlsKey         string
	sessionTTL     time.Duration
	lockAfter      time.Duration
	lockBackground time.Duration
	logoutAfter    time.Duration
	logoutBg       time.Duration
	webhookURL     string
	webhookAuth    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the session lifecycle service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		repo, err := bboltstorage.NewRepositoryFromFile(dataDir+"/sessionguard.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer repo.Close()

		sessions := session.NewBoltStore(repo, logoutAfter)
		defer sessions.Close()

		opts := []api.Option{
			api.WithSessionTTL(sessionTTL),
			api.WithSupervisorOptions(
				session.WithLockThresholds(lockAfter, lockBackground),
				session.WithLogoutThresholds(logoutAfter, logoutBg),
			),
		}
		if webhookURL != "" {
			opts = append(opts, api.WithWebhook(webhookURL, webhookAuth))
		}

		a := api.New(repo, sessions, credential.NewCache(), opts...)
		defer a.Close()

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		var tlsConfig *tls.Config
		if tlsCert != "" && tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		} else {
			cert, err := util.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			fmt.Println("Using self-signed runtime generated certificate for TLS")
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s)...\n", port, dataDir)
		fmt.Printf("Lock after %s idle (%s backgrounded), logout after %s idle (%s backgrounded)\n",
			lockAfter, lockBackground, logoutAfter, logoutBg)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8443, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().DurationVar(&sessionTTL, "session-ttl", session.DefaultSessionTTL, "Absolute session lifetime")
	serverCmd.Flags().DurationVar(&lockAfter, "lock-after", session.DefaultLockInactivity, "Inactivity before a session locks")
	serverCmd.Flags().DurationVar(&lockBackground, "lock-background", session.DefaultLockBackground, "Background time before a session locks")
	serverCmd.Flags().DurationVar(&logoutAfter, "logout-after", session.DefaultLogoutInactivity, "Inactivity before a session is logged out")
	serverCmd.Flags().DurationVar(&logoutBg, "logout-background", session.DefaultLogoutBackground, "Background time before a session is logged out")
	serverCmd.Flags().StringVar(&webhookURL, "audit-webhook", "", "URL to forward audit events to")
	serverCmd.Flags().StringVar(&webhookAuth, "audit-webhook-auth", "", `Auth header for the webhook ("Header: Value")`)
}
