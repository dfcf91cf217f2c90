// Command realtimetest measures websocket delivery under load.
//
// It opens many sockets as one subscriber while a second account keeps
// following and unfollowing that subscriber. Every follow should arrive on
// every open socket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var p probe
	flag.StringVar(&p.host, "host", "localhost:8375", "API host:port")
	subscriber := flag.String("subscriber", "jake@example.com", "account whose sockets receive events")
	actor := flag.String("actor", "jane@example.com", "account that follows the subscriber")
	password := flag.String("password", "password123", "password of both accounts")
	flag.IntVar(&p.sockets, "clients", 10, "sockets to open; the server allows 12 per user")
	duration := flag.Duration("duration", 30*time.Second, "how long to run")
	flag.DurationVar(&p.interval, "interval", time.Second, "delay between follow toggles")
	flag.Parse()
	p.client.Timeout = 5 * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := p.login(ctx, *subscriber, *password)
	if err != nil {
		log.Fatalf("login %s: %v", *subscriber, err)
	}
	act, err := p.login(ctx, *actor, *password)
	if err != nil {
		log.Fatalf("login %s: %v", *actor, err)
	}

	log.Printf("probing %s: %d sockets as %s for %s", p.host, p.sockets, sub.Username, *duration)
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	if err := p.run(ctx, sub, act); err != nil {
		log.Fatalf("probe: %v", err)
	}
	p.stats.print(os.Stdout)
}
