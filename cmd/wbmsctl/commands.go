package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository/postgres"
	"github.com/chmc/wbms-api/internal/service/account"
	"github.com/chmc/wbms-api/internal/service/document"
	"github.com/chmc/wbms-api/internal/service/report"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/metrics"
	"github.com/chmc/wbms-api/pkg/security"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, _, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.NewMigrator(db, nil).Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	})
	return cmd
}

func createAdminCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the superuser account, or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("WBMS_ADMIN_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or WBMS_ADMIN_PASSWORD) are required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			files, err := storage.NewFileStore(cfg.Documents.StorageRoot)
			if err != nil {
				return err
			}
			svc := account.NewService(store.Repos().Accounts, files, security.NewBcryptHasher(0))
			acct, created, err := svc.EnsureSuperuser(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created superuser %s (id %d)\n", acct.Email, acct.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "superuser %s exists (id %d), password reset\n", acct.Email, acct.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "superuser email")
	cmd.Flags().StringVar(&password, "password", "", "superuser password")
	return cmd
}

func verifyCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-code CODE",
		Short: "Look up the examination behind a document code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			codes := document.NewCodes(cfg.Documents.CodePrefix, cfg.Secrets.Code())
			// Lookup reads only the database.
			verifier := document.NewVerifier(store.Repos(), codes, nil, nil, metrics.NewNop())
			exam, err := verifier.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "examination %d, file %s\n", exam.ID, exam.FileNumber)
			fmt.Fprintf(out, "patient: %s\n", exam.Patient.FullNameWithMiddleInitial())
			fmt.Fprintf(out, "doctor:  %s\n", exam.Doctor.FullNameWithMiddleInitial())
			fmt.Fprintf(out, "edited:  %t\n", exam.HasEditedDocument())
			return nil
		},
	}
}

func exportPaymentsCmd() *cobra.Command {
	var filter model.PaymentReportFilter
	var out string
	cmd := &cobra.Command{
		Use:   "export-payments",
		Short: "Write the payments report as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			repos := store.Repos()
			if err := report.NewService(repos.Reports, repos.Examinations).ExportPayments(cmd.Context(), f, filter); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.From, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&filter.To, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&out, "out", "payments.xlsx", "output file")
	return cmd
}

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage the examination document template",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the built-in template to PATH or the configured location",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Documents.TemplatePath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists, use --force to overwrite", path)
			}

			data, err := document.DefaultTemplateSource()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote template to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing template")
	cmd.AddCommand(initCmd)
	return cmd
}
