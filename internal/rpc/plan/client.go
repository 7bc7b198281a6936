package plan

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/bufbuild/connect-go"
	"golang.org/x/net/http2"

	"github.com/ultratune/ultratune/internal/rpc"
	"github.com/ultratune/ultratune/internal/rpc/connectjson"
	"github.com/ultratune/ultratune/internal/version"
)

// DaemonURL turns a listen address such as ":8090" into a base URL.
func DaemonURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// H2CClient speaks cleartext HTTP/2, as the daemon's Connect endpoint expects.
func H2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

// StreamConnect calls the Connect Plan procedure and hands every event to fn.
func StreamConnect(ctx context.Context, client *http.Client, baseURL string, req rpc.PlanRequest, fn func(rpc.PlanEvent) error) error {
	c := connect.NewClient[rpc.PlanRequest, rpc.PlanEvent](client, baseURL+ConnectPlanProcedure, connect.WithCodec(connectjson.Codec{}))
	creq := connect.NewRequest(&req)
	creq.Header().Set("User-Agent", version.UserAgent())
	stream, err := c.CallServerStream(ctx, creq)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(*stream.Msg()); err != nil {
			return err
		}
	}
	return stream.Err()
}

// StreamNDJSON posts to the NDJSON plan endpoint and hands every event to fn.
func StreamNDJSON(ctx context.Context, client *http.Client, baseURL string, req rpc.PlanRequest, fn func(rpc.PlanEvent) error) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+NDJSONPath, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev rpc.PlanEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return scanner.Err()
}
