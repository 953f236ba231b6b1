package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"loanflow/internal/api"
	"loanflow/internal/common/config"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/store"
	"loanflow/internal/flow/applicant"
	"loanflow/internal/notify"
)

// runApply drives the applicant flow interactively on the terminal.
func runApply(ctx context.Context, cfg *config.Config, client *api.Client, st store.Store, notifier notify.Notifier, log logger.Logger) error {
	flow := applicant.New(client, st, notifier, log, cfg.Delays, cfg.App.Channel)
	in := bufio.NewScanner(os.Stdin)

	fmt.Println("Loan eligibility check")
	fmt.Println("Press Enter to start your application, or type q to quit.")
	if line, ok := readLine(in); !ok || line == "q" {
		return nil
	}

	if err := flow.BeginApplication(ctx); err != nil {
		return err
	}
	printAssistant(flow)

	for flow.State() == applicant.StateChat {
		fmt.Print("> ")
		line, ok := readLine(in)
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}
		if err := flow.SendMessage(ctx, line); err != nil {
			return err
		}
		printAssistant(flow)
	}

	for flow.State() == applicant.StateUploadDocuments {
		fmt.Print("Path to Aadhaar document (txt or pdf): ")
		aadhaar, ok := readLine(in)
		if !ok {
			return nil
		}
		fmt.Print("Path to bank statement (txt or pdf): ")
		bank, ok := readLine(in)
		if !ok {
			return nil
		}

		flow.SelectAadhaarDocument(aadhaar)
		flow.SelectBankStatement(bank)
		if !flow.CanSubmitDocuments() {
			fmt.Println("Both documents are required.")
			continue
		}
		if err := flow.SubmitDocuments(ctx); err != nil {
			if flow.State() != applicant.StateUploadDocuments {
				return err
			}
			// selections are preserved; let the user retry or bail
			fmt.Print("Retry? [y/n] ")
			if line, ok := readLine(in); !ok || line != "y" {
				return err
			}
		}
	}

	if flow.State() == applicant.StateAadhaarStatus {
		income, emi := flow.Extraction()
		fmt.Printf("Extracted monthly income: %.0f, existing EMI: %.0f\n", income, emi)
		fmt.Println("Checking identity verification...")
		if err := flow.CheckVerification(ctx); err != nil {
			return err
		}
		if v := flow.Verification(); v.Verified {
			fmt.Println("Identity verified.")
		} else {
			fmt.Println("Identity verification failed. A manager will review your application.")
		}
		fmt.Println("Press Enter to see your result.")
		if _, ok := readLine(in); !ok {
			return nil
		}
		if err := flow.ProceedToResult(); err != nil {
			return err
		}
	}

	if flow.State() == applicant.StateResult {
		if err := flow.LoadResult(ctx); err == nil {
			printResult(flow.Result())
		}
		fmt.Println("Press Enter to finish.")
		readLine(in)
		return flow.ReturnToLanding()
	}

	return nil
}

func printAssistant(flow *applicant.Flow) {
	msgs := flow.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	fmt.Printf("assistant: %s\n", last.Content)
}

func printResult(res applicant.Result) {
	if res.Unavailable {
		fmt.Println("Results are unavailable right now.")
		return
	}
	fmt.Printf("Eligibility score: %s\n", applicant.FormatScore(res.Score))
	if res.Eligible {
		fmt.Println("You are eligible for the loan.")
	} else {
		fmt.Println("You are not eligible at this time.")
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	for _, factor := range res.Factors {
		fmt.Printf("  %-24s %+.3f (%s) value=%v\n", factor.Feature, factor.Impact, factor.Direction, factor.Value)
	}
}

func readLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}
