// Package main provides the CLI entry point for the EthernetICMP tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teivovo/EthernetICMP/internal/config"
	"github.com/teivovo/EthernetICMP/internal/logging"
	"github.com/teivovo/EthernetICMP/internal/metrics"
	"github.com/teivovo/EthernetICMP/internal/monitor"
	"github.com/teivovo/EthernetICMP/internal/ping"
	"github.com/teivovo/EthernetICMP/internal/wizard"
)

var (
	// Version is set at build time
	Version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ethping",
		Short: "ethping - ICMP echo engine and monitor",
		Long: `ethping sends ICMP echo requests with bounded retries and
per-attempt timeouts, and reports structured results.

It can run as a one-shot ping command or as a continuous monitor
with a Prometheus metrics endpoint.`,
		Version: Version,
	}

	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pingCmd() *cobra.Command {
	var (
		count      int
		retries    int
		timeout    time.Duration
		interval   time.Duration
		size       int
		privileged bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "ping <host>",
		Short: "Ping a host",
		Long:  "Send ICMP echo requests to a host and print per-reply results and a summary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]
			target, err := resolveIPv4(host)
			if err != nil {
				return err
			}

			level := "warn"
			if verbose {
				level = "debug"
			}
			logger := logging.NewLogger(level, "text")

			transport, err := ping.NewSocketTransport(privileged)
			if err != nil {
				return err
			}
			defer transport.Close()

			engine := ping.NewEngine(transport, transport.LocalIdentifier(),
				ping.WithLogger(logger),
				ping.WithAttemptTimeout(timeout),
				ping.WithPayloadLen(size))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("PING %s (%s): %d data bytes\n", host, target, size)

			var sent, received int
			var min, max, total time.Duration

			for i := 0; i < count; i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(interval):
					}
				}
				if ctx.Err() != nil {
					break
				}

				sent++
				reply, err := engine.Ping(ctx, target, retries)
				if err != nil {
					break
				}

				if reply.Status == ping.StatusSuccess {
					received++
					rtt := reply.RTT(time.Now())
					total += rtt
					if min == 0 || rtt < min {
						min = rtt
					}
					if rtt > max {
						max = rtt
					}
					fmt.Printf("reply from %s: icmp_seq=%d ttl=%d time=%s\n",
						reply.Responder, reply.Seq, reply.TTL, rtt.Round(time.Microsecond))
				} else {
					fmt.Printf("no reply from %s: icmp_seq=%d status=%s\n",
						target, reply.Seq, reply.Status)
				}
			}

			printSummary(host, sent, received, min, max, total)

			if received == 0 && sent > 0 {
				return fmt.Errorf("no reply from %s", host)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 4, "Number of pings to send")
	cmd.Flags().IntVarP(&retries, "retries", "r", 3, "Attempts per ping")
	cmd.Flags().DurationVarP(&timeout, "timeout", "W", time.Second, "Per-attempt reply timeout")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Time between pings")
	cmd.Flags().IntVarP(&size, "size", "s", ping.DefaultPayloadLen, "Payload size in bytes")
	cmd.Flags().BoolVar(&privileged, "privileged", false, "Use a raw ICMP socket (requires root)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log per-attempt details")

	return cmd
}

func printSummary(host string, sent, received int, min, max, total time.Duration) {
	fmt.Printf("\n--- %s ping statistics ---\n", host)

	loss := 0.0
	if sent > 0 {
		loss = float64(sent-received) / float64(sent) * 100
	}
	fmt.Printf("%s packets transmitted, %s received, %.1f%% packet loss\n",
		humanize.Comma(int64(sent)), humanize.Comma(int64(received)), loss)

	if received > 0 {
		avg := total / time.Duration(received)
		fmt.Printf("round-trip min/avg/max = %s/%s/%s\n",
			min.Round(time.Microsecond), avg.Round(time.Microsecond), max.Round(time.Microsecond))
	}
}

func watchCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously monitor configured targets",
		Long:  "Ping every configured target on an interval and expose Prometheus metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(cfg.Monitor.Targets) == 0 {
				return fmt.Errorf("no monitor targets configured in %s", configPath)
			}

			logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Metrics.Enabled {
				srv := monitor.NewMetricsServer(cfg.Metrics.Address, logger)
				if err := srv.Start(); err != nil {
					return fmt.Errorf("start metrics server: %w", err)
				}
				defer srv.Stop()
			}

			mon := monitor.New(monitor.Options{
				Interval:     cfg.Monitor.Interval,
				Retries:      cfg.Pinger.Retries,
				RateLimit:    cfg.Monitor.RateLimit,
				PollInterval: cfg.Pinger.PollInterval,
				Logger:       logger,
			})

			baseID, auto, err := cfg.Pinger.IdentifierValue()
			if err != nil {
				return err
			}

			for i, name := range cfg.Monitor.Targets {
				target, err := resolveIPv4(name)
				if err != nil {
					return err
				}

				transport, err := ping.NewSocketTransport(cfg.Pinger.Privileged)
				if err != nil {
					return fmt.Errorf("target %s: %w", name, err)
				}
				defer transport.Close()

				id := engineIdentifier(transport.LocalIdentifier(), baseID, auto, cfg.Pinger.Privileged, i)

				engine := ping.NewEngine(transport, id,
					ping.WithLogger(logger),
					ping.WithMetrics(metrics.Default()),
					ping.WithAttemptTimeout(cfg.Pinger.AttemptTimeout),
					ping.WithPollInterval(cfg.Pinger.PollInterval),
					ping.WithPayloadLen(cfg.Pinger.PayloadSize))

				mon.Add(name, target, engine)
			}

			err = mon.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./ethping.yaml", "Path to configuration file")

	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a configuration interactively",
		Long:  "Run the setup wizard and write a watch-mode configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wizard.New().Run()
			return err
		},
	}
}

// engineIdentifier picks the echo identifier for the i-th watch target.
// Engines sharing a link need distinct identifiers: unprivileged sockets
// already carry distinct kernel-assigned ones, but raw sockets all derive
// the same process id, so privileged mode offsets the base per target.
func engineIdentifier(local, base uint16, auto, privileged bool, i int) uint16 {
	id := local
	if !auto {
		id = base
	}
	if privileged {
		id += uint16(i)
	}
	return id
}

// resolveIPv4 resolves a hostname or literal to an IPv4 address.
func resolveIPv4(host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		if !addr.Is4() && !addr.Is4In6() {
			return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", host)
		}
		return addr.Unmap(), nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("lookup %q: %w", host, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			addr, _ := netip.AddrFromSlice(ip4)
			return addr, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no IPv4 address for %q", host)
}
