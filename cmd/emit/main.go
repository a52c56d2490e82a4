// Command emit publishes one committed domain event to the realtime relay.
//
// The event is read as a {"type", "payload"} envelope from a file or stdin:
//
//	echo '{"type":"message_deleted","payload":{"messageId":"m1","channelId":"general"}}' | emit -redis localhost:6379
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"clawchat/internal/app/realtime"
	"clawchat/internal/app/relay"
	"clawchat/internal/pkg/logx"
)

func main() {
	redisAddr := flag.String("redis", envOr("REDIS_ADDR", "localhost:6379"), "Redis address")
	channel := flag.String("channel", envOr("REDIS_EVENTS_CHANNEL", "clawchat:events"), "relay channel")
	file := flag.String("file", "-", "event envelope file, - for stdin")
	timeout := flag.Duration("timeout", 5*time.Second, "publish timeout")
	flag.Parse()

	logx.InitGlobalLogger(true)

	evt, err := readEvent(*file)
	if err != nil {
		logx.Fatal(err, "Failed to read event")
	}

	client := relay.NewClient(*redisAddr)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	receivers, err := relay.NewPublisher(client, *channel).Publish(ctx, evt)
	if err != nil {
		logx.Fatal(err, "Failed to publish event", "channel", *channel)
	}

	logx.Info("Event published.", "type", string(evt.Type()), "channel", *channel, "receivers", receivers)
}

func readEvent(path string) (realtime.DomainEvent, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}

	return realtime.DecodeEvent(data)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
