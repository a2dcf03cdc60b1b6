package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nephroinnovate/renal-console/internal/bff"
	"github.com/nephroinnovate/renal-console/internal/config"
	"github.com/nephroinnovate/renal-console/internal/domain/hdsessions"
	"github.com/nephroinnovate/renal-console/internal/domain/institutions"
	"github.com/nephroinnovate/renal-console/internal/domain/labs"
	"github.com/nephroinnovate/renal-console/internal/domain/patients"
	"github.com/nephroinnovate/renal-console/internal/domain/users"
	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/internal/platform/session"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "renal-console",
		Short: "Admin console for the dialysis care platform",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(patientsCmd())
	rootCmd.AddCommand(institutionsCmd())
	rootCmd.AddCommand(hdSessionsCmd())
	rootCmd.AddCommand(labsCmd())
	rootCmd.AddCommand(usersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			factory := bff.MemStoreFactory()
			if cfg.DatabaseURL != "" {
				pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect to database: %w", err)
				}
				defer pool.Close()
				if _, err := pool.Exec(ctx, session.MigrationConsoleSessions); err != nil {
					return fmt.Errorf("migrate session table: %w", err)
				}
				logger.Info().Msg("sessions backed by postgres")
				factory = func(scopeID string) session.Store {
					return session.NewPGStoreFromPool(pool, scopeID)
				}
			}

			return bff.NewServer(cfg, factory, logger).Start(ctx)
		},
	}
}

// cliScope assembles the session manager, gateway and auth client the CLI
// commands share, backed by the local session file.
func cliScope(cfg *config.Config) (*session.Manager, *gateway.Client, *users.AuthClient, error) {
	path := cfg.SessionFile
	if path == "" {
		path = session.DefaultSessionPath()
	}

	hc := &http.Client{Timeout: cfg.RequestTimeout()}
	logger := newLogger(cfg).Level(zerolog.WarnLevel)
	auth := users.NewAuthClient(cfg.APIBaseURL, hc, logger)
	mgr := session.NewManager(session.NewFileStore(path), auth.RefreshFunc())

	gw, err := gateway.New(gateway.Config{
		BaseURL:    cfg.APIBaseURL,
		Session:    mgr,
		HTTPClient: hc,
		Logger:     logger,
		OnAuthExpired: func() {
			fmt.Fprintln(os.Stderr, "Session expired; run 'renal-console login' again.")
		},
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return mgr, gw, auth, nil
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			mgr, _, auth, err := cliScope(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess, err := auth.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := mgr.Set(ctx, sess); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", email, sess.Role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			mgr, _, _, err := cliScope(cfg)
			if err != nil {
				return err
			}
			if err := mgr.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			mgr, _, _, err := cliScope(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if !mgr.IsAuthenticated(ctx) {
				fmt.Println("Not logged in.")
				return nil
			}
			cur := mgr.Current(ctx)
			fmt.Printf("Role:             %s\n", cur.Role)
			fmt.Printf("User ID:          %s\n", cur.UserID)
			if cur.RelatedEntityID != "" {
				fmt.Printf("Related entity:   %s\n", cur.RelatedEntityID)
			}
			if claims, err := mgr.Claims(ctx); err == nil {
				if claims.Subject != "" {
					fmt.Printf("Token subject:    %s\n", claims.Subject)
				}
				if !claims.ExpiresAt.IsZero() {
					fmt.Printf("Token expires:    %s\n", claims.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
				}
			}
			return nil
		},
	}
}

func listParams(cmd *cobra.Command) pagination.Params {
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")
	return pagination.Params{Page: page, PageSize: size}
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("page-size", 20, "Items per page")
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Browse patients",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, gw, _, err := cliScope(cfg)
			if err != nil {
				return err
			}

			search, _ := cmd.Flags().GetString("search")
			items, total, err := patients.NewClient(gw).List(cmd.Context(), search, listParams(cmd))
			if err != nil {
				return err
			}

			fmt.Printf("%-12s %-24s %-12s %-8s %s\n", "ID", "NAME", "MRN", "DRY KG", "ACCESS")
			for _, p := range items {
				fmt.Printf("%-12s %-24s %-12s %-8d %s\n",
					p.ID, p.LastName+", "+p.FirstName, p.MRN, p.DryWeightKg, p.VascularAccess)
			}
			fmt.Printf("%d of %d patient(s)\n", len(items), total)
			return nil
		},
	}
	listCmd.Flags().String("search", "", "Filter by name")
	addListFlags(listCmd)
	cmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, gw, _, err := cliScope(cfg)
			if err != nil {
				return err
			}
			p, err := patients.NewClient(gw).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(p)
			return nil
		},
	}
	cmd.AddCommand(getCmd)

	return cmd
}

func institutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "institutions",
		Short: "Browse dialysis centres",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List institutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, gw, _, err := cliScope(cfg)
			if err != nil {
				return err
			}
			items, total, err := institutions.NewClient(gw).List(cmd.Context(), listParams(cmd))
			if err != nil {
				return err
			}

			fmt.Printf("%-12s %-32s %-10s %-9s %s\n", "ID", "NAME", "CODE", "STATIONS", "TYPE")
			for _, i := range items {
				fmt.Printf("%-12s %-32s %-10s %-9d %s\n",
					i.ID, i.Name, i.FacilityCode, i.DialysisStations, i.CenterType)
			}
			fmt.Printf("%d of %d institution(s)\n", len(items), total)
			return nil
		},
	}
	addListFlags(listCmd)
	cmd.AddCommand(listCmd)
	return cmd
}

func hdSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hd-sessions",
		Short: "Browse hemodialysis session logs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List session logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, gw, _, err := cliScope(cfg)
			if err != nil {
				return err
			}
			patientID, _ := cmd.Flags().GetString("patient")
			items, total, err := hdsessions.NewClient(gw).List(cmd.Context(), patientID, listParams(cmd))
			if err != nil {
				return err
			}

			fmt.Printf("%-12s %-12s %-22s %-8s %-8s %s\n", "ID", "PATIENT", "STARTED", "MINS", "UF (L)", "ACCESS")
			for _, s := range items {
				fmt.Printf("%-12s %-12s %-22s %-8d %-8.1f %s\n",
					s.ID, s.PatientID, s.StartedAt, s.DurationMinutes, s.UltrafiltrationL, s.AccessUsed)
			}
			fmt.Printf("%d of %d session(s)\n", len(items), total)
			return nil
		},
	}
	listCmd.Flags().String("patient", "", "Filter by patient id")
	addListFlags(listCmd)
	cmd.AddCommand(listCmd)
	return cmd
}

func labsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labs",
		Short: "Browse lab results",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List lab results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, gw, _, err := cliScope(cfg)
			if err != nil {
				return err
			}
			patientID, _ := cmd.Flags().GetString("patient")
			code, _ := cmd.Flags().GetString("code")
			items, total, err := labs.NewClient(gw).List(cmd.Context(), patientID, code, listParams(cmd))
			if err != nil {
				return err
			}

			fmt.Printf("%-12s %-12s %-10s %-24s %10s %-8s %s\n", "ID", "PATIENT", "CODE", "NAME", "VALUE", "UNIT", "DATE")
			for _, r := range items {
				fmt.Printf("%-12s %-12s %-10s %-24s %10.2f %-8s %s\n",
					r.ID, r.PatientID, r.Code, r.Name, r.Value, r.Unit, r.EffectiveDate)
			}
			fmt.Printf("%d of %d result(s)\n", len(items), total)
			return nil
		},
	}
	listCmd.Flags().String("patient", "", "Filter by patient id")
	listCmd.Flags().String("code", "", "Filter by LOINC code")
	addListFlags(listCmd)
	cmd.AddCommand(listCmd)
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse platform users",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, gw, _, err := cliScope(cfg)
			if err != nil {
				return err
			}
			role, _ := cmd.Flags().GetString("role")
			items, total, err := users.NewClient(gw).List(cmd.Context(), role, listParams(cmd))
			if err != nil {
				return err
			}

			fmt.Printf("%-12s %-32s %-18s %-8s %s\n", "ID", "EMAIL", "ROLE", "ACTIVE", "ENTITY")
			for _, u := range items {
				fmt.Printf("%-12s %-32s %-18s %-8t %s\n",
					u.ID, u.Email, u.Role, u.IsActive, u.RelatedEntityID)
			}
			fmt.Printf("%d of %d user(s)\n", len(items), total)
			return nil
		},
	}
	listCmd.Flags().String("role", "", "Filter by role")
	addListFlags(listCmd)
	cmd.AddCommand(listCmd)
	return cmd
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
