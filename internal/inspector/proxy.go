package inspector

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	devicePath = "/inspector/device"
	debugPath  = "/inspector/debug"
)

// proxyTarget is the built-in debugging proxy. App runtimes register
// on the device endpoint; browser frontends connect on the debug
// endpoint and frames are relayed between the pair.
type proxyTarget struct {
	projectRoot string
	serverAddr  string
	logger      zerolog.Logger
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	nextID  int
	devices map[string]*device
}

// device is one connected app runtime.
type device struct {
	id   string
	name string
	app  string

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	debugger *websocket.Conn
}

func newProxyTarget(projectRoot, serverAddr string, logger zerolog.Logger) *proxyTarget {
	return &proxyTarget{
		projectRoot: projectRoot,
		serverAddr:  serverAddr,
		logger:      logger.With().Str("component", "inspector").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		devices: make(map[string]*device),
	}
}

// BindWebSocket registers the device and debugger upgrade endpoints.
func (t *proxyTarget) BindWebSocket(register func(path string, handler http.Handler)) {
	register(devicePath, http.HandlerFunc(t.handleDevice))
	register(debugPath, http.HandlerFunc(t.handleDebugger))
}

// Handler serves debugger discovery over plain HTTP.
func (t *proxyTarget) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/json", t.handleList)
	mux.HandleFunc("/json/list", t.handleList)
	mux.HandleFunc("/json/version", t.handleVersion)
	return mux
}

// handleDevice registers an app runtime and relays its frames to the
// attached debugger, if any.
func (t *proxyTarget) handleDevice(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Debug().Err(err).Msg("device upgrade failed")
		return
	}

	t.mu.Lock()
	t.nextID++
	d := &device{
		id:   strconv.Itoa(t.nextID),
		name: r.URL.Query().Get("name"),
		app:  r.URL.Query().Get("app"),
		conn: conn,
	}
	t.devices[d.id] = d
	t.mu.Unlock()
	t.logger.Info().Str("device", d.id).Str("name", d.name).Msg("device connected")

	defer func() {
		t.mu.Lock()
		delete(t.devices, d.id)
		t.mu.Unlock()
		d.detachDebugger()
		conn.Close()
		t.logger.Info().Str("device", d.id).Msg("device disconnected")
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		d.mu.Lock()
		dbg := d.debugger
		d.mu.Unlock()
		if dbg != nil {
			dbg.WriteMessage(kind, data)
		}
	}
}

// handleDebugger attaches a frontend to a device and relays its frames.
func (t *proxyTarget) handleDebugger(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("device")
	t.mu.Lock()
	d := t.devices[id]
	t.mu.Unlock()
	if d == nil {
		http.Error(w, "unknown device "+id, http.StatusNotFound)
		return
	}

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Debug().Err(err).Msg("debugger upgrade failed")
		return
	}

	d.mu.Lock()
	if d.debugger != nil {
		// Latest frontend wins; the previous one is disconnected.
		d.debugger.Close()
	}
	d.debugger = conn
	d.mu.Unlock()
	t.logger.Info().Str("device", id).Msg("debugger attached")

	defer func() {
		d.mu.Lock()
		if d.debugger == conn {
			d.debugger = nil
		}
		d.mu.Unlock()
		conn.Close()
		t.logger.Info().Str("device", id).Msg("debugger detached")
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		d.writeMu.Lock()
		werr := d.conn.WriteMessage(kind, data)
		d.writeMu.Unlock()
		if werr != nil {
			return
		}
	}
}

func (d *device) detachDebugger() {
	d.mu.Lock()
	dbg := d.debugger
	d.debugger = nil
	d.mu.Unlock()
	if dbg != nil {
		dbg.Close()
	}
}

// page is one entry in the DevTools discovery list.
type page struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func (t *proxyTarget) handleList(w http.ResponseWriter, r *http.Request) {
	host := t.serverAddr
	if host == "" {
		host = r.Host
	}

	t.mu.Lock()
	pages := make([]page, 0, len(t.devices))
	for _, d := range t.devices {
		title := d.name
		if title == "" {
			title = "device " + d.id
		}
		pages = append(pages, page{
			ID:                   d.id,
			Title:                title,
			Description:          d.app,
			Type:                 "node",
			WebSocketDebuggerURL: "ws://" + host + debugPath + "?device=" + d.id,
		})
	}
	t.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pages)
}

func (t *proxyTarget) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"Browser":          "skiff-inspector",
		"Protocol-Version": "1.1",
	})
}
