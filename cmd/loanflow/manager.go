package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"loanflow/internal/api"
	"loanflow/internal/common/config"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/store"
	"loanflow/internal/flow/manager"
	"loanflow/internal/models"
	"loanflow/internal/notify"
)

// runManager drives the review flow interactively on the terminal.
func runManager(ctx context.Context, cfg *config.Config, client *api.Client, st store.Store, notifier notify.Notifier, log logger.Logger) error {
	flow := manager.New(client, st, notifier, log, cfg.Delays)
	in := bufio.NewScanner(os.Stdin)

	for flow.State() == manager.StateLogin {
		fmt.Print("Email: ")
		email, ok := readLine(in)
		if !ok {
			return nil
		}
		fmt.Print("Password: ")
		password, ok := readLine(in)
		if !ok {
			return nil
		}
		if err := flow.Login(ctx, email, password); err != nil {
			continue
		}
	}

	if err := flow.LoadDashboard(ctx); err != nil {
		return err
	}

	for {
		printDashboard(flow.Applications())
		fmt.Print("Application id to open, r to refresh, l to logout, q to quit: ")
		line, ok := readLine(in)
		if !ok {
			return nil
		}
		switch line {
		case "q":
			return nil
		case "l":
			return flow.Logout()
		case "r":
			if err := flow.LoadDashboard(ctx); err != nil && flow.State() == manager.StateLogin {
				return err
			}
		case "":
		default:
			if err := flow.OpenDetail(ctx, line); err != nil {
				if flow.State() == manager.StateLogin {
					return err
				}
				continue
			}
			if err := reviewDetail(ctx, flow, in); err != nil {
				return err
			}
		}
	}
}

func reviewDetail(ctx context.Context, flow *manager.Flow, in *bufio.Scanner) error {
	for flow.State() == manager.StateDetail {
		printDetail(flow.Detail())
		if flow.CanReview() {
			fmt.Print("a to approve, j to reject, b to go back: ")
		} else {
			fmt.Print("b to go back: ")
		}
		line, ok := readLine(in)
		if !ok {
			return nil
		}
		switch {
		case line == "a" && flow.CanReview():
			if err := flow.Approve(ctx); err != nil && flow.State() == manager.StateLogin {
				return err
			}
		case line == "j" && flow.CanReview():
			if err := flow.Reject(ctx); err != nil && flow.State() == manager.StateLogin {
				return err
			}
		case line == "b":
			flow.CloseDetail()
		}
	}
	return nil
}

func printDashboard(apps []models.ApplicationSummary) {
	if len(apps) == 0 {
		fmt.Println("No applications found")
		return
	}
	fmt.Printf("%-12s %-20s %12s %8s %-14s %s\n", "ID", "NAME", "LOAN", "SCORE", "STATUS", "CREATED")
	for _, app := range apps {
		fmt.Printf("%-12s %-20s %12.0f %8d %-14s %s\n",
			app.ID, app.Name, app.LoanAmount, app.CreditScore, app.FinalStatus, app.CreatedAt)
	}
}

func printDetail(d *models.ApplicationDetail) {
	if d == nil {
		return
	}
	fmt.Printf("Application %s (session %s)\n", d.ID, d.SessionID)
	fmt.Printf("  Name:               %s\n", d.Name)
	fmt.Printf("  Claimed income:     %.0f\n", d.IncomeClaimed)
	fmt.Printf("  Extracted income:   %.0f\n", d.IncomeExtracted)
	fmt.Printf("  Loan amount:        %.0f\n", d.LoanAmount)
	fmt.Printf("  Credit score:       %d\n", d.CreditScore)
	fmt.Printf("  Employment:         %s\n", d.EmploymentType)
	fmt.Printf("  Existing EMI:       %.0f\n", d.EMIDetected)
	fmt.Printf("  Aadhaar verified:   %t\n", d.AadhaarVerified)
	fmt.Printf("  Documents verified: %t\n", d.DocumentsVerified)
	fmt.Printf("  Eligibility score:  %.2f\n", d.EligibilityScore)
	fmt.Printf("  Status:             %s\n", d.FinalStatus)
	if d.AadhaarDocumentURL != "" {
		fmt.Printf("  Aadhaar document:   %s\n", d.AadhaarDocumentURL)
	}
	if d.BankStatementURL != "" {
		fmt.Printf("  Bank statement:     %s\n", d.BankStatementURL)
	}
	fmt.Printf("  Created: %s  Updated: %s\n", d.CreatedAt, d.UpdatedAt)
	for _, factor := range d.ShapExplanation {
		fmt.Printf("    %-24s %+.3f (%s) value=%v\n", factor.Feature, factor.Impact, factor.Direction, factor.Value)
	}
}
