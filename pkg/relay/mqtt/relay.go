// Package mqtt bridges a datalink to an MQTT broker.
package mqtt

import (
	"context"
	"net/url"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/modtalks/slink.go/pkg/dl"
)

// Relay republishes messages delivered by the link on <prefix>/recv
// and sends payloads arriving on <prefix>/send down the link.
type Relay struct {
	Client      paho.Client
	TopicPrefix string

	link   *dl.Link
	recvCh chan []byte
}

// NewRelay creates a Relay over the link. It takes over link.Handler.
func NewRelay(link *dl.Link, options *paho.ClientOptions, topicPrefix string) *Relay {
	r := &Relay{
		Client:      paho.NewClient(options),
		TopicPrefix: topicPrefix,
		link:        link,
		recvCh:      make(chan []byte, 16),
	}
	link.Handler = dl.HandleMessageFunc(func(ctx context.Context, msg []byte) {
		// Publishing happens on the relay goroutine; the link reactor
		// only parks the message here.
		select {
		case r.recvCh <- msg:
		case <-ctx.Done():
		}
	})
	return r
}

// NewRelayFromURL creates a Relay from a broker URL. The URL path
// becomes the topic prefix, credentials become the MQTT login and a
// client-id query parameter pins the client identifier.
func NewRelayFromURL(link *dl.Link, brokerURL string) (*Relay, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewRelay(link, clientOptions(u), strings.Trim(u.Path, "/")), nil
}

func clientOptions(u *url.URL) *paho.ClientOptions {
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	opts := paho.NewClientOptions().
		AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		opts.SetClientID(id)
	}
	return opts
}

func (r *Relay) topic(suffix string) string {
	if r.TopicPrefix == "" {
		return suffix
	}
	return r.TopicPrefix + "/" + suffix
}

// Run implements Runnable: connects, subscribes and relays until the
// context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if token := r.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer r.Client.Disconnect(250)

	sendTopic := r.topic("send")
	glog.V(2).Infof("SUB %q", sendTopic)
	token := r.Client.Subscribe(sendTopic, 0, func(_ paho.Client, m paho.Message) {
		if err := r.link.Send(m.Payload()); err != nil {
			glog.Warningf("drop %d bytes from %q: %v", len(m.Payload()), m.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	recvTopic := r.topic("recv")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-r.recvCh:
			glog.V(2).Infof("PUB %q %d bytes", recvTopic, len(msg))
			if t := r.Client.Publish(recvTopic, 0, false, msg); t.Wait() && t.Error() != nil {
				glog.Warningf("publish: %v", t.Error())
			}
		}
	}
}
