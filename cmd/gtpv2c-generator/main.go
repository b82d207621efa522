package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/internal/network"
	"gtpv2c-generator/internal/pcap"
	"gtpv2c-generator/internal/session"
	"gtpv2c-generator/internal/stats"
)

var (
	version = "1.0.0"
	cfgFile string
	dryRun  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gtpv2c-generator",
		Short: "GTPv2-C Message Generator - Build and send EPC signaling messages",
		Long: `A Go-based tool that emulates an SGW control-plane node, building GTPv2-C
Create Session Response and Create Bearer Request messages from a configured
bearer profile and sending them to a target peer, or recording them to pcap.`,
		Version: version,
		RunE:    run,
	}

	// Configuration file
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Configuration file path (default: config.yaml)")

	// CLI overrides
	rootCmd.Flags().String("local-ip", "", "Local GTP-C IP address")
	rootCmd.Flags().String("peer-ip", "", "Target peer IP address")
	rootCmd.Flags().Int("peer-port", 0, "Target peer GTP-C port")
	rootCmd.Flags().Int("count", 0, "Number of sessions to generate")
	rootCmd.Flags().String("ue-pool", "", "UE IPv4 address pool (CIDR)")
	rootCmd.Flags().Uint32("teid-start", 0, "Starting local TEID value")
	rootCmd.Flags().String("teid-strategy", "", "TEID allocation strategy (sequential|random)")
	rootCmd.Flags().Int("message-interval", -1, "Delay between sessions in ms")
	rootCmd.Flags().Int("timeout", 0, "Response timeout in ms")
	rootCmd.Flags().Int("max-retries", -1, "Max retransmission attempts")
	rootCmd.Flags().String("pcap-out", "", "Write generated messages to this pcap file")
	rootCmd.Flags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build messages only, do not send to the peer")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Load configuration
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK if using CLI flags
		log.Debug("No config file found, using defaults and CLI flags")
	}

	// CLI flags override config file values
	bindViperFlags(v, cmd)

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupLogging(cfg)

	fmt.Printf("GTPv2-C Message Generator v%s\n", version)
	fmt.Println("==============================")
	fmt.Print(cfg.Summary())
	fmt.Println()

	if dryRun {
		if err := cfg.ValidateOffline(); err != nil {
			return err
		}
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Optional pcap output
	var capture *pcap.Writer
	if cfg.Output.PcapFile != "" {
		capture, err = pcap.NewWriter(cfg.Output.PcapFile,
			net.ParseIP(cfg.Local.Address), net.ParseIP(cfg.Peer.Address),
			cfg.Local.Port, cfg.Peer.Port)
		if err != nil {
			return fmt.Errorf("failed to create pcap writer: %w", err)
		}
		defer capture.Close()
	}

	// Network plumbing, skipped entirely in dry-run mode
	var (
		client   *network.UDPClient
		receiver *network.Receiver
		tracker  *network.TransactionTracker
	)
	if !dryRun {
		client, err = network.NewUDPClient(cfg.Local.Address, cfg.Local.Port, cfg.Peer.Address, cfg.Peer.Port)
		if err != nil {
			return fmt.Errorf("failed to create UDP client: %w", err)
		}
		defer client.Close()

		log.WithField("local_addr", client.LocalAddr()).Info("UDP client started")

		receiver = network.NewReceiver(client.Conn())
		receiver.Start(ctx)

		tracker = network.NewTransactionTracker(client, cfg.Timing.ResponseTimeoutMs, cfg.Timing.MaxRetries)
		tracker.StartTimeoutMonitor(ctx)
	}

	// Stats collector and reporter
	statsCollector := stats.NewCollector()
	reporter := stats.NewReporter(statsCollector, cfg.Stats.ReportIntervalSec, cfg.Stats.ExportFile)
	if cfg.Stats.Enabled {
		reporter.StartPeriodicReport(ctx)
	}

	mgr, err := session.NewManager(cfg, client, receiver, tracker, statsCollector, capture)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	if dryRun {
		fmt.Println("Dry-run mode: building messages without network transmission")
	} else {
		fmt.Println("Sending messages to peer...")
	}

	if err := mgr.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("Generation interrupted by shutdown")
		} else {
			log.WithError(err).Error("Generation failed")
		}
	}

	if tracker != nil {
		tracker.CancelAll()
	}

	if cfg.Stats.Enabled {
		reporter.PrintFinalReport()
		if err := reporter.ExportJSON(); err != nil {
			log.WithError(err).Warn("Failed to export statistics")
		}
	}

	return nil
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithError(err).Warn("Failed to open log file, using console only")
		} else {
			log.SetOutput(f)
		}
	}
}

func bindViperFlags(v *viper.Viper, cmd *cobra.Command) {
	if cmd.Flags().Changed("local-ip") {
		val, _ := cmd.Flags().GetString("local-ip")
		v.Set("local.address", val)
	}
	if cmd.Flags().Changed("peer-ip") {
		val, _ := cmd.Flags().GetString("peer-ip")
		v.Set("peer.address", val)
	}
	if cmd.Flags().Changed("peer-port") {
		val, _ := cmd.Flags().GetInt("peer-port")
		v.Set("peer.port", val)
	}
	if cmd.Flags().Changed("count") {
		val, _ := cmd.Flags().GetInt("count")
		v.Set("session.count", val)
	}
	if cmd.Flags().Changed("ue-pool") {
		val, _ := cmd.Flags().GetString("ue-pool")
		v.Set("session.ue_ip_pool", val)
	}
	if cmd.Flags().Changed("teid-start") {
		val, _ := cmd.Flags().GetUint32("teid-start")
		v.Set("session.teid_start", val)
	}
	if cmd.Flags().Changed("teid-strategy") {
		val, _ := cmd.Flags().GetString("teid-strategy")
		v.Set("session.teid_strategy", val)
	}
	if cmd.Flags().Changed("message-interval") {
		val, _ := cmd.Flags().GetInt("message-interval")
		v.Set("timing.message_interval_ms", val)
	}
	if cmd.Flags().Changed("timeout") {
		val, _ := cmd.Flags().GetInt("timeout")
		v.Set("timing.response_timeout_ms", val)
	}
	if cmd.Flags().Changed("max-retries") {
		val, _ := cmd.Flags().GetInt("max-retries")
		v.Set("timing.max_retries", val)
	}
	if cmd.Flags().Changed("pcap-out") {
		val, _ := cmd.Flags().GetString("pcap-out")
		v.Set("output.pcap_file", val)
	}
	if cmd.Flags().Changed("log-level") {
		val, _ := cmd.Flags().GetString("log-level")
		v.Set("logging.level", val)
	}
}
