// Package main is a CI-friendly smoke test for the realtime events gateway.
//
// It validates, against a running server:
//   - login over HTTP
//   - websocket handshake + subprotocol selection
//   - task create/move/delete fanout as board.event envelopes
//
// Usage:
//
//	go run ./tools/scripts -base http://127.0.0.1:8080 -email admin@example.com -password secret
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	subprotocol  = "taskboard.events.v1"
	maxReadBytes = 1 << 20
)

type envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type boardEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
}

func main() {
	base := flag.String("base", "http://127.0.0.1:8080", "server base URL")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	timeout := flag.Duration("timeout", 15*time.Second, "overall deadline")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "ws-smoke: -email and -password are required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, strings.TrimRight(*base, "/"), *email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "ws-smoke: FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ws-smoke: OK")
}

func run(ctx context.Context, base, email, password string) error {
	access, err := login(ctx, base, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	conn, err := dialWS(ctx, base, access)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	taskID, err := createTask(ctx, base, access, "ws-smoke "+time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if err := expectEvent(ctx, conn, "task.created", taskID); err != nil {
		return err
	}

	if err := moveTask(ctx, base, access, taskID, "IN_PROGRESS"); err != nil {
		return fmt.Errorf("move task: %w", err)
	}
	if err := expectEvent(ctx, conn, "task.moved", taskID); err != nil {
		return err
	}

	if err := deleteTask(ctx, base, access, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectEvent(ctx, conn, "task.deleted", taskID)
}

func login(ctx context.Context, base, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Session.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return out.Session.AccessToken, nil
}

func dialWS(ctx context.Context, base, access string) (*websocket.Conn, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer " + access}},
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxReadBytes)
	if got := conn.Subprotocol(); got != subprotocol {
		conn.Close(websocket.StatusProtocolError, "bad subprotocol")
		return nil, fmt.Errorf("subprotocol %q, want %q", got, subprotocol)
	}
	return conn, nil
}

func expectEvent(ctx context.Context, conn *websocket.Conn, wantType, wantTaskID string) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", wantType, err)
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("bad envelope: %w", err)
		}
		if env.Type != "board.event" {
			continue
		}

		var ev boardEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("bad board event payload: %w", err)
		}
		if ev.TaskID != wantTaskID {
			continue
		}
		if ev.Type != wantType {
			return fmt.Errorf("task %s: got event %q, want %q", wantTaskID, ev.Type, wantType)
		}
		fmt.Printf("ws-smoke: got %s for %s\n", ev.Type, ev.TaskID)
		return nil
	}
}

func createTask(ctx context.Context, base, access, title string) (string, error) {
	body, _ := json.Marshal(map[string]string{"title": title})
	resp, err := doJSON(ctx, http.MethodPost, base+"/tasks", access, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func moveTask(ctx context.Context, base, access, id, status string) error {
	body, _ := json.Marshal(map[string]string{"status": status})
	resp, err := doJSON(ctx, http.MethodPost, base+"/tasks/"+id+"/move", access, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func deleteTask(ctx context.Context, base, access, id string) error {
	resp, err := doJSON(ctx, http.MethodDelete, base+"/tasks/"+id, access, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func doJSON(ctx context.Context, method, url, access string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+access)
	return http.DefaultClient.Do(req)
}
