package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/matheuscscp/ethmcast/config"
	"github.com/matheuscscp/ethmcast/internal/session"
	"github.com/matheuscscp/ethmcast/layers/link"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	configFile   string
	listen       bool
	multicast    bool
	etherType    string
	intf         string
	destination  string
	capture      string
	kernelFilter bool
	metricsAddr  string
	logLevel     string
}

var (
	rootFlags flags

	rootCmd = &cobra.Command{
		Use:   "ethmcast [-l] [-m] [-e <ethertype>] [-i <device>] [-d <dest-addr>] [msg]",
		Short: "Send and receive raw ethernet frames (unicast, broadcast and multicast)",
		Long: fmt.Sprintf(`Send one raw ethernet frame carrying msg (default %q), or listen for
frames with a given ethertype on an interface.

In listen mode frames addressed to the interface, to the broadcast
address or to one of the multicast groups (%s)
are printed, anything else is printed as UNEXPECTED. With -m the
listener also subscribes to the multicast groups and unsubscribes
when interrupted.

Requires root or CAP_NET_RAW (and CAP_NET_ADMIN for some options).`,
			config.DefaultMessage, multicastGroupsText()),
		Example: `  # listener subscribed to the multicast groups
  ethmcast -l -m -i enp0s8

  # send to one of the multicast groups
  ethmcast -i enp0s8 -d 01:00:5e:00:00:10 hello

  # send unicast with a custom ethertype
  ethmcast -i enp0s8 -e 0x88b5 -d 08:00:27:d4:12:02`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(rootFlags.logLevel); err != nil {
				return err
			}
			conf, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			return run(conf)
		},
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&rootFlags.configFile, "config", "c", "", "yaml config file, flags take precedence over it")
	f.BoolVarP(&rootFlags.listen, "listen", "l", false, "listen mode (wait for frames to be received)")
	f.BoolVarP(&rootFlags.multicast, "multicast", "m", false, "subscribe to the multicast groups in listen mode")
	f.StringVarP(&rootFlags.etherType, "ethertype", "e", fmt.Sprintf("0x%04x", link.DefaultEtherType), "ethertype in hex, between 0x0600 and 0xffff")
	f.StringVarP(&rootFlags.intf, "interface", "i", config.DefaultInterface, "send/receive to/from this interface")
	f.StringVarP(&rootFlags.destination, "destination", "d", link.BroadcastMACAddress().String(), "ethernet destination address")
	f.StringVar(&rootFlags.capture, "capture", "", "write every sent/received frame to this pcapng file")
	f.BoolVar(&rootFlags.kernelFilter, "kernel-filter", false, "drop frames with other destinations in the kernel (nothing is reported as UNEXPECTED)")
	f.StringVar(&rootFlags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9100")
	f.StringVar(&rootFlags.logLevel, "log-level", logrus.InfoLevel.String(), "log level")
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	conf := config.Default()
	if rootFlags.configFile != "" {
		if err := config.ReadYAML(rootFlags.configFile, &conf); err != nil {
			return config.Config{}, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("listen") {
		conf.Listen = rootFlags.listen
	}
	if changed("multicast") {
		conf.Multicast = rootFlags.multicast
	}
	if changed("ethertype") {
		conf.EtherType = rootFlags.etherType
	}
	if changed("interface") {
		conf.Interface = rootFlags.intf
	}
	if changed("destination") {
		conf.Destination = rootFlags.destination
	}
	if changed("capture") {
		conf.Capture = &link.CaptureConfig{Filename: rootFlags.capture}
	}
	if changed("kernel-filter") {
		conf.KernelFilter = rootFlags.kernelFilter
	}
	if changed("metrics-addr") {
		conf.MetricsAddr = rootFlags.metricsAddr
	}
	if len(args) > 0 {
		conf.Message = args[0]
	}
	return conf, nil
}

func run(conf config.Config) error {
	sessionConf, err := conf.Session()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithCancelOnInterrupt(context.Background())
	defer cancel()

	if conf.MetricsAddr != "" {
		stop, err := serveMetrics(conf.MetricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	s, err := session.Open(sessionConf)
	if err != nil {
		return err
	}
	return s.Run(ctx, link.NewTextReporter(os.Stdout))
}

func multicastGroupsText() string {
	groups := link.DefaultMulticastGroups()
	return fmt.Sprintf("%s and %s", groups[0], groups[1])
}
