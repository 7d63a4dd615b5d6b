// Command slinkcli is an interactive playground for the datalink: a
// simulated bus with the datalink on one end and a base driver on the
// other, driven from an ishell prompt.
package main

import (
	"bytes"
	"context"
	"flag"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/modtalks/slink.go/pkg/base"
	"github.com/modtalks/slink.go/pkg/dl"
	"github.com/modtalks/slink.go/pkg/hal/sim"
	"github.com/modtalks/slink.go/pkg/run"
)

func trimPad(msg []byte) []byte {
	// Delivered messages carry the frame padding; trim it for display.
	return bytes.TrimRight(msg, "\x00")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx, cancel := run.SignalContext(context.Background())
	defer cancel()

	port, peer := sim.New()
	link := dl.NewLink(port)
	drv := base.NewDriver(peer)

	sh := ishell.New()
	sh.SetPrompt("slink > ")
	sh.Println("simulated accessory bus; type 'help' for commands")

	link.Handler = dl.HandleMessageFunc(func(_ context.Context, msg []byte) {
		sh.Printf("mod  <= %q\n", trimPad(msg))
	})
	link.Notifier = dl.AttachChangedFunc(func(_ context.Context, attached bool) {
		sh.Printf("link attached=%v\n", attached)
	})
	drv.Handler = dl.HandleMessageFunc(func(_ context.Context, msg []byte) {
		sh.Printf("base <= %q\n", trimPad(msg))
	})

	group := run.NewGroup(ctx).Go(link, drv)
	peer.SetAttached(true)

	sh.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "send a message from the mod side: send <text>",
		Func: func(c *ishell.Context) {
			if err := link.Send([]byte(strings.Join(c.Args, " "))); err != nil {
				c.Err(err)
			}
		},
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "base-send",
		Help: "send a message from the base side: base-send <text>",
		Func: func(c *ishell.Context) {
			if err := drv.Send([]byte(strings.Join(c.Args, " "))); err != nil {
				c.Err(err)
			}
		},
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "attach",
		Help: "raise the attach event",
		Func: func(c *ishell.Context) { peer.SetAttached(true) },
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "detach",
		Help: "raise the detach event (drops queued frames)",
		Func: func(c *ishell.Context) { peer.SetAttached(false) },
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "print link counters",
		Func: func(c *ishell.Context) {
			s := link.Stats()
			c.Printf("tx-frames=%d rx-frames=%d rx-messages=%d rx-dropped=%d detaches=%d queued=%d\n",
				s.TxFrames, s.RxFrames, s.RxMessages, s.RxDropped, s.Detaches, link.QueueLen())
		},
	})

	// The shell has no context of its own; a SIGINT that stops the link
	// also has to stop the prompt.
	run.Detached(ctx, sh.Stop, func() error {
		sh.Run()
		return nil
	})
	cancel()
	if err := group.Wait(); err != nil {
		glog.Error(err)
	}
}
