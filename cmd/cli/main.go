package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "custody-cli",
		Short: "Custody CLI tool",
		Long:  `A command line interface for interacting with the custody API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the custody API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	// Ledger commands
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}

	ledgerCmd.AddCommand(consistencyCmd)
	rootCmd.AddCommand(ledgerCmd)

	// Lock commands
	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Time lock operations",
	}

	lockStatusCmd := &cobra.Command{
		Use:   "status <entry-id>",
		Short: "Show withdrawability of a time lock",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/locks/" + args[0] + "/status")
		},
	}

	lockTotalCmd := &cobra.Command{
		Use:   "total",
		Short: "Show the total value still locked",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/locks/total")
		},
	}

	lockCmd.AddCommand(lockStatusCmd, lockTotalCmd)
	rootCmd.AddCommand(lockCmd)

	// Draw commands
	drawCmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw pool operations",
	}

	drawRoundCmd := &cobra.Command{
		Use:   "round",
		Short: "Show the current draw round",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/draw/round")
		},
	}

	drawPrizeCmd := &cobra.Command{
		Use:   "prize",
		Short: "Show the current prize pool",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/draw/prize")
		},
	}

	drawWinnerCmd := &cobra.Command{
		Use:   "winner <round-number>",
		Short: "Show the winner of a settled round",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/draw/rounds/" + args[0] + "/winner")
		},
	}

	drawCmd.AddCommand(drawRoundCmd, drawPrizeCmd, drawWinnerCmd)
	rootCmd.AddCommand(drawCmd)

	// Stake commands
	stakeCmd := &cobra.Command{
		Use:   "stake",
		Short: "Staking operations",
	}

	stakeTotalCmd := &cobra.Command{
		Use:   "total",
		Short: "Show the total principal staked",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/stakes/total")
		},
	}

	stakeShowCmd := &cobra.Command{
		Use:   "show <address>",
		Short: "Show a stake record",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/stakes/" + args[0])
		},
	}

	stakeRewardCmd := &cobra.Command{
		Use:   "reward <address>",
		Short: "Show the pending reward for a stake",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/stakes/" + args[0] + "/reward")
		},
	}

	stakeCmd.AddCommand(stakeTotalCmd, stakeShowCmd, stakeRewardCmd)
	rootCmd.AddCommand(stakeCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func checkConsistency() {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/api/v1/ledger/consistency")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Consistency check PASSED\n")
	if consistent, ok := result["consistent"].(bool); ok {
		fmt.Printf("Consistent: %v\n", consistent)
	}
	fmt.Printf("Status: %s\n", result["status"])
}

func getJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}

	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
