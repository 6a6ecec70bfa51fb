package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

// Seed a running server with demo payment orders
func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the kaspay server")
	username := flag.String("username", "merchant", "merchant username")
	password := flag.String("password", "", "merchant password")
	flag.Parse()

	if *password == "" {
		log.Fatal("-password is required")
	}

	token, err := login(*addr, *username, *password)
	if err != nil {
		log.Fatalf("Failed to log in: %v", err)
	}

	demos := []struct {
		AmountUSD   float64 `json:"amount_usd"`
		Asset       string  `json:"asset"`
		Description string  `json:"description"`
	}{
		{4.5, "KAS", "coffee"},
		{125, "BTC", "invoice #1042"},
		{10, "DOGE", "donation"},
	}

	for _, demo := range demos {
		body, _ := json.Marshal(demo)
		req, err := http.NewRequest("POST", *addr+"/orders", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("Failed to build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatalf("Failed to create order: %v", err)
		}

		var order struct {
			ID          string  `json:"id"`
			Asset       string  `json:"asset"`
			AssetAmount float64 `json:"asset_amount"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
			resp.Body.Close()
			log.Fatalf("Failed to decode response: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			log.Fatalf("Order creation returned %d", resp.StatusCode)
		}
		fmt.Printf("Created order %s: %.8f %s (%s)\n", order.ID, order.AssetAmount, order.Asset, demo.Description)
	}

	fmt.Println("Successfully seeded the server with demo orders!")
}

func login(addr, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(addr+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
