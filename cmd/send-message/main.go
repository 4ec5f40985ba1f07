package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shannonbirch/shanbot/manychat"
)

func main() {
	_ = godotenv.Load()

	apiToken := os.Getenv("MANYCHAT_API_TOKEN")
	if apiToken == "" {
		fmt.Println("Error: MANYCHAT_API_TOKEN must be set")
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		fmt.Println("Usage: send-message <subscriber_id> <message>")
		os.Exit(1)
	}

	subscriberID := os.Args[1]
	message := os.Args[2]

	client := manychat.NewClient(apiToken)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.SendText(ctx, subscriberID, message); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Message sent successfully!")
}
