// Command slinkmon exposes a simulated datalink over MQTT: payloads
// published to <prefix>/send travel down the link to the base side,
// and messages the datalink delivers come back on <prefix>/recv.
// With echo enabled the base reflects every message it receives.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/modtalks/slink.go/pkg/base"
	"github.com/modtalks/slink.go/pkg/dl"
	"github.com/modtalks/slink.go/pkg/hal/sim"
	"github.com/modtalks/slink.go/pkg/relay/mqtt"
	"github.com/modtalks/slink.go/pkg/run"
)

var (
	configPath = flag.String("config", "", "Path to TOML config file.")
	broker     = flag.String("broker", "", "Broker URL, overrides config.")
	echo       = flag.Bool("echo", false, "Base echoes received messages.")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		glog.Error(err)
		os.Exit(1)
	}
	if *broker != "" {
		cfg.Broker = *broker
	}
	if *echo {
		cfg.Echo = true
	}

	ctx, cancel := run.SignalContext(context.Background())
	defer cancel()

	port, peer := sim.New()
	link := dl.NewLinkWithDepth(port, cfg.QueueDepth)
	drv := base.NewDriver(peer)
	drv.Handler = dl.HandleMessageFunc(func(_ context.Context, msg []byte) {
		glog.Infof("base received %d bytes", len(msg))
		if cfg.Echo {
			if err := drv.Send(msg); err != nil {
				glog.Warningf("echo: %v", err)
			}
		}
	})

	relay, err := mqtt.NewRelayFromURL(link, cfg.Broker)
	if err != nil {
		glog.Error(err)
		os.Exit(1)
	}

	glog.Infof("bridging simulated datalink to %s", cfg.Broker)
	group := run.NewGroup(ctx).Go(link, drv, relay)
	peer.SetAttached(true)

	if err := group.Wait(); err != nil {
		glog.Error(err)
		os.Exit(1)
	}
}
