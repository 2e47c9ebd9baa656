package inspector

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// proxyServer wires the built-in target into an HTTP test server the
// way Attach wires it into the dev server.
func proxyServer(t *testing.T) (*proxyTarget, *httptest.Server) {
	t.Helper()
	target := newProxyTarget("/proj", "", zerolog.Nop())

	mux := http.NewServeMux()
	target.BindWebSocket(func(path string, handler http.Handler) {
		mux.Handle(path, handler)
	})
	mux.Handle("/json/", target.Handler())
	mux.Handle("/json", target.Handler())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return target, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func listPages(t *testing.T, srv *httptest.Server) []page {
	t.Helper()
	resp, err := http.Get(srv.URL + "/json/list")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var pages []page
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		t.Fatalf("discovery list not JSON: %v", err)
	}
	return pages
}

func TestProxy_DiscoveryListsDevices(t *testing.T) {
	_, srv := proxyServer(t)

	if pages := listPages(t, srv); len(pages) != 0 {
		t.Errorf("pages = %v, want empty before any device connects", pages)
	}

	dialWS(t, wsURL(srv, devicePath+"?name=iPhone&app=demo"))

	deadline := time.Now().Add(2 * time.Second)
	var pages []page
	for {
		pages = listPages(t, srv)
		if len(pages) == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(pages) != 1 {
		t.Fatalf("pages = %v, want one device", pages)
	}
	if pages[0].Title != "iPhone" || pages[0].Description != "demo" {
		t.Errorf("page = %+v", pages[0])
	}
	if !strings.Contains(pages[0].WebSocketDebuggerURL, debugPath+"?device="+pages[0].ID) {
		t.Errorf("debugger URL = %q", pages[0].WebSocketDebuggerURL)
	}
}

func TestProxy_RelaysFramesBothWays(t *testing.T) {
	_, srv := proxyServer(t)

	device := dialWS(t, wsURL(srv, devicePath+"?name=sim"))

	deadline := time.Now().Add(2 * time.Second)
	var id string
	for id == "" && !time.Now().After(deadline) {
		if pages := listPages(t, srv); len(pages) == 1 {
			id = pages[0].ID
		}
	}
	if id == "" {
		t.Fatal("device never appeared in the discovery list")
	}

	debugger := dialWS(t, wsURL(srv, debugPath+"?device="+id))

	if err := debugger.WriteMessage(websocket.TextMessage, []byte(`{"id":1,"method":"Debugger.enable"}`)); err != nil {
		t.Fatal(err)
	}
	if got := readText(t, device); !strings.Contains(got, "Debugger.enable") {
		t.Errorf("device received %q", got)
	}

	if err := device.WriteMessage(websocket.TextMessage, []byte(`{"id":1,"result":{}}`)); err != nil {
		t.Fatal(err)
	}
	if got := readText(t, debugger); !strings.Contains(got, "result") {
		t.Errorf("debugger received %q", got)
	}
}

func TestProxy_UnknownDevice(t *testing.T) {
	_, srv := proxyServer(t)

	resp, err := http.Get(srv.URL + debugPath + "?device=99")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unknown device", resp.StatusCode)
	}
}

func TestProxy_Version(t *testing.T) {
	_, srv := proxyServer(t)

	resp, err := http.Get(srv.URL + "/json/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var v map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v["Protocol-Version"] == "" {
		t.Errorf("version = %v", v)
	}
}
