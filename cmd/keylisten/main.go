// Command keylisten listens for keyboard presses and releases on the
// terminal and prints them, demonstrating the keylisten library over a
// plain SSH session.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/keylisten"
	"github.com/dshills/keylisten/dispatch"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type listenFlags struct {
	configPath      string
	until           string
	policy          string
	sequential      bool
	delaySecondChar float64
	delayOtherChars float64
	noLower         bool
	debug           bool
	maxWorkers      int
	pollInterval    float64
	waitForHandlers bool
}

func newRootCmd() *cobra.Command {
	var flags listenFlags

	cmd := &cobra.Command{
		Use:   "keylisten",
		Short: "Print keyboard press/release events from raw terminal input",
		Long: `keylisten switches the terminal to raw mode and prints a line for
every inferred key press and release. It needs no input hooks or
elevated privileges, so it works over SSH. Press the until key
(default "esc") or send SIGINT to stop.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd, &flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVar(&flags.until, "until", keylisten.DefaultUntil, "key that ends listening (empty to disable)")
	cmd.Flags().StringVar(&flags.policy, "policy", "concurrent", "dispatch policy: sequential, concurrent, or coroutine")
	cmd.Flags().BoolVar(&flags.sequential, "sequential", false, "shorthand for --policy sequential")
	cmd.Flags().Float64Var(&flags.delaySecondChar, "delay-second-char", 0.75, "seconds before the first key repeat")
	cmd.Flags().Float64Var(&flags.delayOtherChars, "delay-other-chars", 0.05, "seconds between later key repeats")
	cmd.Flags().BoolVar(&flags.noLower, "no-lower", false, "keep key names in their original case")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "log dropped bytes and handler failures")
	cmd.Flags().IntVar(&flags.maxWorkers, "max-workers", 0, "worker pool size for the concurrent policy (0 = auto)")
	cmd.Flags().Float64Var(&flags.pollInterval, "poll-interval", 0.05, "seconds between input polls")
	cmd.Flags().BoolVar(&flags.waitForHandlers, "wait-for-handlers", false, "wait for in-flight concurrent handlers on stop")

	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runListen(cmd *cobra.Command, flags *listenFlags) error {
	fileCfg, err := loadFileConfig(flags.configPath)
	if err != nil {
		return err
	}

	merged := *flags
	if fileCfg != nil {
		fileCfg.apply(cmd, &merged)
	}
	opts := buildOptions(&merged)

	opts = append(opts,
		keylisten.WithOnPress(func(key string) {
			fmt.Printf("pressed  %q\r\n", key)
		}),
		keylisten.WithOnRelease(func(key string) {
			fmt.Printf("released %q\r\n", key)
		}),
	)

	// Restore the terminal on Ctrl-C and SIGTERM as well.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		keylisten.StopListening()
	}()

	fmt.Printf("listening, press %q to exit\n", merged.until)
	return keylisten.Listen(opts...)
}

// buildOptions turns merged flag values into session options. Merge order
// is explicit flags first, then file values, then library defaults.
func buildOptions(merged *listenFlags) []keylisten.Option {
	opts := []keylisten.Option{
		keylisten.WithUntil(merged.until),
		keylisten.WithDelays(secondsToDuration(merged.delaySecondChar), secondsToDuration(merged.delayOtherChars)),
		keylisten.WithLower(!merged.noLower),
		keylisten.WithDebug(merged.debug),
		keylisten.WithPollInterval(secondsToDuration(merged.pollInterval)),
		keylisten.WithWaitForHandlers(merged.waitForHandlers),
	}

	if merged.sequential {
		opts = append(opts, keylisten.WithSequential())
	} else if policy, err := dispatch.ParsePolicy(merged.policy); err == nil {
		opts = append(opts, keylisten.WithPolicy(policy))
	}
	if merged.maxWorkers > 0 {
		opts = append(opts, keylisten.WithMaxWorkers(merged.maxWorkers))
	}
	return opts
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("keylisten %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
