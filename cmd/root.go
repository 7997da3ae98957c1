package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"surge/internal/cli"
	"surge/internal/dummy"
)

var (
	cfgFile string

	// Shared target flags
	url     string
	method  string
	body    string
	headers []string
	timeout time.Duration
	verbose bool

	// Run flags
	users      int
	duration   time.Duration
	requests   int
	rampUp     time.Duration
	thinkMin   time.Duration
	thinkMax   time.Duration
	maxWorkers int
	outPrefix  string
	history    bool

	// Stress flags
	maxUsers     int
	stepSize     int
	stepDuration time.Duration

	// Bench flags
	iterations int
	baseline   bool
)

var rootCmd = &cobra.Command{
	Use:   "surge",
	Short: "Surge - Load testing and benchmarking engine",
	Long: `
Surge drives a target operation under configurable concurrent load, measures
latency/throughput/error behavior, searches for breaking points under
escalating load, and supports deterministic micro-benchmarking with baseline
regression comparison.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if url == "" {
			return cmd.Usage()
		}
		return cli.Run(runOptions())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runOptions() cli.RunOptions {
	opts := cli.RunOptions{
		URL:        url,
		Method:     method,
		Body:       body,
		Headers:    make(map[string]string),
		Users:      users,
		Duration:   duration,
		Requests:   requests,
		RampUp:     rampUp,
		ThinkMin:   thinkMin,
		ThinkMax:   thinkMax,
		Timeout:    timeout,
		MaxWorkers: maxWorkers,
		OutPrefix:  outPrefix,
		Verbose:    verbose,
	}
	for _, h := range headers {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			opts.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	if history {
		if home, err := os.UserHomeDir(); err == nil {
			opts.HistoryPath = filepath.Join(home, ".surge", "history.db")
		}
	}
	return opts
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Escalate load until the target breaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if url == "" {
			return fmt.Errorf("--url is required")
		}
		return cli.Stress(cli.StressOptions{
			RunOptions:   runOptions(),
			MaxUsers:     maxUsers,
			StepSize:     stepSize,
			StepDuration: stepDuration,
		})
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Micro-benchmark a single request path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if url == "" {
			return fmt.Errorf("--url is required")
		}
		return cli.Bench(cli.BenchOptions{
			RunOptions: runOptions(),
			Iterations: iterations,
			Baseline:   baseline,
		})
	},
}

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run internal dummy server",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		dummy.Start(dummy.ServerConfig{Port: port})
		select {}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(dummyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.surge.yaml)")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "", "Target URL")
	rootCmd.PersistentFlags().StringVarP(&method, "method", "X", "GET", "HTTP Method")
	rootCmd.PersistentFlags().StringVarP(&body, "body", "b", "", "Request body (supports {{uuid}}, {{randomInt a b}}, ...)")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "HTTP Header (e.g. \"Key: Value\")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose engine logging")

	rootCmd.Flags().IntVarP(&users, "users", "U", 10, "Virtual users")
	rootCmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "Test duration")
	rootCmd.Flags().IntVar(&requests, "requests", 0, "Per-user request cap (0 = unbounded)")
	rootCmd.Flags().DurationVar(&rampUp, "ramp-up", 0, "Ramp-up window")
	rootCmd.Flags().DurationVar(&thinkMin, "think-min", 0, "Minimum think time between requests")
	rootCmd.Flags().DurationVar(&thinkMax, "think-max", 0, "Maximum think time between requests")
	rootCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Concurrency bound on the worker pool (0 = default)")
	rootCmd.Flags().StringVarP(&outPrefix, "out", "o", "", "Output filename prefix for reports")
	rootCmd.Flags().BoolVar(&history, "history", false, "Save the run to $HOME/.surge/history.db")

	stressCmd.Flags().IntVar(&maxUsers, "max-users", 500, "Maximum users to escalate to")
	stressCmd.Flags().IntVar(&stepSize, "step", 100, "User increment per step")
	stressCmd.Flags().DurationVar(&stepDuration, "step-duration", 30*time.Second, "Duration of each step")

	benchCmd.Flags().IntVarP(&iterations, "iterations", "n", 100, "Iterations to time")
	benchCmd.Flags().BoolVar(&baseline, "baseline", false, "Run twice and compare against the first pass")

	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".surge")
		}
	}
	viper.AutomaticEnv()
	viper.ReadInConfig()
}
