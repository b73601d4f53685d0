package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/xo-messenger-bot/internal/messenger"
)

func main() {
	sendTo := flag.String("send", "", "optional recipient id for a test message")
	observe := flag.Duration("observe", 10*time.Second, "how long to watch relay events")
	flag.Parse()

	_ = godotenv.Load()
	graphURL := os.Getenv("GRAPH_API_URL")
	if graphURL == "" {
		graphURL = "https://graph.facebook.com/v19.0"
	}
	token := os.Getenv("PAGE_ACCESS_TOKEN")
	wsURL := os.Getenv("RELAY_WS_URL")

	if token == "" {
		log.Fatal("PAGE_ACCESS_TOKEN is required")
	}

	client := messenger.NewClient(graphURL, token, messenger.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	page, err := client.Me(ctx)
	if err != nil {
		log.Printf("/me error: %v", err)
	} else {
		log.Printf("/me ok: id=%s name=%q", page.ID, page.Name)
	}

	if *sendTo != "" {
		if err := client.SendText(ctx, *sendTo, "xo bot connectivity check"); err != nil {
			log.Printf("send error: %v", err)
		} else {
			log.Printf("send ok: recipient=%s", *sendTo)
		}
	}

	if wsURL == "" {
		log.Println("RELAY_WS_URL not set; skipping relay check")
		return
	}

	relay := messenger.NewRelay(wsURL, 0)
	relay.OnStateChange(func(state messenger.RelayState) {
		log.Printf("relay state: %s", state)
	})
	relay.OnEvent(func(ev messenger.Event) {
		fmt.Printf("relay event conversation=%s from=%s text=%q\n", ev.ConversationID, ev.SenderID, ev.Text)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := relay.Connect(cctx); err != nil {
		log.Printf("relay connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(*observe)
	<-t.C

	_ = relay.Close(context.Background())
}
