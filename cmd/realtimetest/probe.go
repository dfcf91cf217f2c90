package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

type account struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type stats struct {
	dialed, dialFailed atomic.Int64
	follows, delivered atomic.Int64
	errors             atomic.Int64
}

// expected is how many deliveries a perfect run would see.
func (s *stats) expected() int64 {
	return s.follows.Load() * s.dialed.Load()
}

func (s *stats) print(w io.Writer) {
	fmt.Fprintf(w, "sockets     %d open, %d failed\n", s.dialed.Load(), s.dialFailed.Load())
	fmt.Fprintf(w, "follows     %d\n", s.follows.Load())
	fmt.Fprintf(w, "delivered   %d of %d\n", s.delivered.Load(), s.expected())
	fmt.Fprintf(w, "errors      %d\n", s.errors.Load())
	if want := s.expected(); want > 0 {
		fmt.Fprintf(w, "ratio       %.1f%%\n", 100*float64(s.delivered.Load())/float64(want))
	}
}

type probe struct {
	host     string
	sockets  int
	interval time.Duration
	client   http.Client
	stats    stats
}

func (p *probe) url(path string) string {
	return (&url.URL{Scheme: "http", Host: p.host, Path: path}).String()
}

func (p *probe) login(ctx context.Context, email, password string) (account, error) {
	body, _ := json.Marshal(map[string]any{"user": map[string]string{"email": email, "password": password}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url("/api/users/login"), bytes.NewReader(body))
	if err != nil {
		return account{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return account{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return account{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		User account `json:"user"`
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out.User, err
}

// run holds the sockets open and toggles the follow until ctx ends.
func (p *probe) run(ctx context.Context, sub, act account) error {
	g, ctx := errgroup.WithContext(ctx)
	for range p.sockets {
		g.Go(func() error {
			p.listen(ctx, sub.Token)
			return nil
		})
		time.Sleep(20 * time.Millisecond)
	}
	g.Go(func() error {
		p.toggleFollow(ctx, act.Token, sub.Username)
		return nil
	})
	return g.Wait()
}

func (p *probe) listen(ctx context.Context, token string) {
	u := url.URL{Scheme: "ws", Host: p.host, Path: "/api/ws", RawQuery: url.Values{"token": {token}}.Encode()}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		p.stats.dialFailed.Add(1)
		p.stats.errors.Add(1)
		return
	}
	p.stats.dialed.Add(1)

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &event) == nil && event.Type == "user_followed" {
			p.stats.delivered.Add(1)
		}
	}
}

// toggleFollow alternates follow and unfollow. Only follows emit events.
func (p *probe) toggleFollow(ctx context.Context, token, target string) {
	endpoint := p.url("/api/profiles/" + url.PathEscape(target) + "/follow")
	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	method := http.MethodPost
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return
		}
		req.Header.Set("Authorization", "Token "+token)
		resp, err := p.client.Do(req)
		if err != nil {
			p.stats.errors.Add(1)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			p.stats.errors.Add(1)
			continue
		}

		if method == http.MethodPost {
			p.stats.follows.Add(1)
			method = http.MethodDelete
		} else {
			method = http.MethodPost
		}
	}
}
