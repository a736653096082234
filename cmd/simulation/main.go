package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api/deck/v1"
const wsURL = "ws://localhost:3000/api/deck/v1"

type baseResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type createSessionData struct {
	SessionId string `json:"session_id"`
}

func main() {
	request := flag.String("request", "Build a 5-slide introduction to vector databases", "Deck request to send")
	debug := flag.Bool("debug", true, "Subscribe to debug events")
	flag.Parse()

	color.Cyan("=== Deck Builder Simulation Client ===")

	sessionID, err := createSession()
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	color.Green("Session Created: %s", sessionID)

	// Attach the watcher before starting the build so no events are missed
	dialURL := fmt.Sprintf("%s/ws/%s", wsURL, sessionID)
	if *debug {
		dialURL += "?debug=true"
	}
	conn, _, err := websocket.DefaultDialer.Dial(dialURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect websocket: %v", err)
	}
	defer conn.Close()

	done := make(chan string, 1)
	confirm := make(chan struct{}, 1)
	go readEvents(conn, confirm, done)

	color.Cyan("\nUSER: %s", *request)
	start := time.Now()
	if err := postJSON("/chat", map[string]string{
		"session_id": sessionID,
		"message":    *request,
	}); err != nil {
		log.Fatalf("Failed to start deck: %v", err)
	}

	select {
	case <-confirm:
		color.Yellow("Outline ready, confirming as-is...")
		if err := postJSON("/confirm-outline", map[string]string{
			"session_id": sessionID,
		}); err != nil {
			log.Fatalf("Failed to confirm outline: %v", err)
		}
	case terminal := <-done:
		log.Fatalf("Build ended before confirmation: %s", terminal)
	case <-time.After(5 * time.Minute):
		log.Fatal("Timed out waiting for outline")
	}

	select {
	case terminal := <-done:
		color.Cyan("\nBuild finished (%s) in %v", terminal, time.Since(start).Round(time.Millisecond))
	case <-time.After(15 * time.Minute):
		log.Fatal("Timed out waiting for completion")
	}
}

func readEvents(conn *websocket.Conn, confirm chan<- struct{}, done chan<- string) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			done <- "connection closed"
			return
		}

		var peek struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &peek); err != nil {
			continue
		}

		printEvent(peek.Type, frame)

		switch peek.Type {
		case "awaiting_confirmation":
			confirm <- struct{}{}
		case "complete", "error":
			done <- peek.Type
			return
		}
	}
}

func printEvent(eventType string, frame []byte) {
	switch eventType {
	case "error":
		color.Red("<< %s", frame)
	case "complete", "deck_compiled":
		color.Green("<< %s", frame)
	case "slide_selected", "slide_not_found", "judge_invoked":
		color.Cyan("<< %s", frame)
	case "outline_pending", "awaiting_confirmation", "revision_progress":
		color.Yellow("<< %s", frame)
	default:
		if len(eventType) > 6 && eventType[:6] == "debug_" {
			color.White("   .. %s", frame)
			return
		}
		fmt.Printf("<< %s\n", frame)
	}
}

func createSession() (string, error) {
	resp, err := http.Post(baseURL+"/session", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res baseResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	var data createSessionData
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return "", err
	}
	return data.SessionId, nil
}

func postJSON(path string, payload any) error {
	body, _ := json.Marshal(payload)
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
